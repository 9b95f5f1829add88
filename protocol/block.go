package protocol

import "errors"

var (
	// ErrShortBlock means more bytes are needed before the block is complete
	ErrShortBlock = errors.New("incomplete message block")
	// ErrBadBlock means the bytes at the start of the input are not a valid
	// block and the reader must resynchronise on the next sync byte
	ErrBadBlock = errors.New("invalid message block")
	// ErrBlockTooLong means a payload does not fit in one block
	ErrBlockTooLong = errors.New("message block too long")
)

// Block is one decoded message block. Payload aliases the input.
type Block struct {
	Sequence uint8
	Payload  []byte
}

// IsAck reports whether the block carries no commands
func (b Block) IsAck() bool {
	return len(b.Payload) == 0
}

// ParseBlock decodes the block at the start of data and returns it together
// with the number of bytes it occupied. Leading sync bytes must already have
// been skipped.
func ParseBlock(data []byte) (Block, int, error) {
	if len(data) < MessageLengthMin {
		return Block{}, 0, ErrShortBlock
	}

	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return Block{}, 0, ErrBadBlock
	}

	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return Block{}, 0, ErrBadBlock
	}

	if len(data) < msgLen {
		return Block{}, 0, ErrShortBlock
	}

	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return Block{}, 0, ErrBadBlock
	}

	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return Block{}, 0, ErrBadBlock
	}

	return Block{
		Sequence: seq,
		Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
	}, msgLen, nil
}

// AppendBlock appends a complete block wrapping payload to dst
func AppendBlock(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	msgLen := MessageLengthMin + len(payload)
	if msgLen > MessageLengthMax {
		return dst, ErrBlockTooLong
	}

	start := len(dst)
	dst = append(dst, uint8(msgLen), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync), nil
}

// skipToSync returns the index just past the first sync byte in data, or -1
func skipToSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i + 1
		}
	}
	return -1
}
