package protocol

import "sync/atomic"

// CommandHandler is a function type for handling decoded commands.
// The handler decodes its own arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the controller end of the link: it receives command blocks,
// acknowledges them, and frames responses.
type Transport struct {
	synchronized atomic.Bool
	// Next sequence expected from the host. Acks and responses carry the
	// same value.
	nextSequence atomic.Uint32

	output       OutputBuffer
	handler      CommandHandler
	errorHandler func(cmdID uint16, err error)
}

// NewTransport creates a synchronised transport expecting sequence 0x10
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{
		output:  output,
		handler: handler,
	}
	t.synchronized.Store(true)
	t.nextSequence.Store(MessageDest)
	return t
}

// Receive processes whatever complete blocks input holds and pops the bytes
// it consumed. A partial block is left in place for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.synchronized.Load() {
			pos := skipToSync(data)
			if pos < 0 {
				data = nil
				break
			}
			data = data[pos:]
			t.synchronized.Store(true)
			t.encodeAckNak()
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		blk, n, err := ParseBlock(data)
		if err == ErrShortBlock {
			break
		}
		if err != nil {
			t.synchronized.Store(false)
			continue
		}
		data = data[n:]

		expected := uint8(t.nextSequence.Load())
		if blk.Sequence == MessageDest && expected != MessageDest {
			// Host restarted its sequence
			t.nextSequence.Store(MessageDest)
			expected = MessageDest
		}

		if blk.Sequence == expected {
			t.nextSequence.Store(uint32(NextSequence(blk.Sequence)))
			_ = t.parseFrame(blk.Payload)
		}
		// Ack every block; after a sequence mismatch this is the nak
		t.encodeAckNak()
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// parseFrame dispatches every command in a block payload
func (t *Transport) parseFrame(frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.synchronized.Store(false)
		}
	}()

	for len(frame) > 0 {
		cmdID, err := DecodeVLQUint(&frame)
		if err != nil {
			t.synchronized.Store(false)
			return err
		}

		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &frame); err != nil {
			// The rest of the block cannot be decoded reliably
			if t.errorHandler != nil {
				t.errorHandler(uint16(cmdID), err)
			}
			return err
		}
	}
	return nil
}

// encodeAckNak sends an empty block carrying the next expected sequence
func (t *Transport) encodeAckNak() {
	ns := uint8(t.nextSequence.Load())
	crc := CRC16([]byte{MessageLengthMin, ns})

	t.output.Output([]byte{
		MessageLengthMin,
		ns,
		uint8(crc >> 8),
		uint8(crc),
		MessageValueSync,
	})
}

// EncodeFrame frames whatever frameData writes into one block
func (t *Transport) EncodeFrame(frameData func(output OutputBuffer)) {
	cursor := t.output.CurPosition()

	seq := uint8(t.nextSequence.Load())
	t.output.Output([]byte{0, seq})

	frameData(t.output)

	changed := len(t.output.DataSince(cursor))
	t.output.Update(cursor, uint8(changed+MessageTrailerSize))

	crc := CRC16(t.output.DataSince(cursor))
	t.output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc),
		MessageValueSync,
	})
}

// SendCommand frames one response with its arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the transport to its power-on state
func (t *Transport) Reset() {
	t.synchronized.Store(true)
	t.nextSequence.Store(MessageDest)
}

// SetErrorHandler sets a callback for command handler failures
func (t *Transport) SetErrorHandler(handler func(cmdID uint16, err error)) {
	t.errorHandler = handler
}
