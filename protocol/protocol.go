// Package protocol implements the framed serial link between a matrix
// controller and its host.
//
// Every message block is
//
//	len seq payload... crc_hi crc_lo 0x7E
//
// where len counts the whole block, seq carries 0x10 in its high nibble and a
// sequence number in its low nibble, and the payload is a run of
// VLQ-encoded command ids and arguments. A block with an empty payload is an
// ack carrying the receiver's next expected sequence.
package protocol

// Version is the wire protocol version reported in the data dictionary
const Version = "greymatrix-1"

// Block layout
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	MessageSeqMask = 0x0F
)

// MessageMax is the size of a scratch output buffer: room for several
// blocks queued between flushes.
const MessageMax = 512

// NextSequence returns the sequence byte that follows seq
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
