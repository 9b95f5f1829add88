package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTransportClosed is returned by waits that were cut short by Close
var ErrTransportClosed = errors.New("transport closed")

// Message is a received block with its payload copied out of the read buffer
type Message struct {
	Sequence uint8
	Payload  []byte
}

// HostTransport is the host end of the link: it frames commands, waits for
// acks, and queues responses.
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq   atomic.Uint32
	synchronized atomic.Bool

	inputBuffer *FifoBuffer
	outputBuf   []byte

	ackChan      chan *Message
	responseChan chan *Message

	writeMutex sync.Mutex
	readMutex  sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewHostTransport creates a host transport and starts its reader
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		inputBuffer:  NewFifoBuffer(512),
		outputBuf:    make([]byte, 0, MessageLengthMax),
		ackChan:      make(chan *Message, 1),
		responseChan: make(chan *Message, 16),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	t.currentSeq.Store(MessageDest)
	t.synchronized.Store(true)

	go t.readLoop()

	return t
}

// Send sends a command and waits for the controller to acknowledge it
func (t *HostTransport) Send(ctx context.Context, cmdID uint16, args func(output OutputBuffer)) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	msg, err := t.buildCommandMessage(cmdID, args)
	if err != nil {
		return fmt.Errorf("build command %d: %w", cmdID, err)
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return fmt.Errorf("write command %d: %w", cmdID, err)
	}
	if n != len(msg) {
		return fmt.Errorf("write command %d: short write %d/%d bytes", cmdID, n, len(msg))
	}

	if err := t.waitForAck(ctx); err != nil {
		return fmt.Errorf("command %d: %w", cmdID, err)
	}
	return nil
}

// buildCommandMessage frames one command. Caller holds writeMutex.
func (t *HostTransport) buildCommandMessage(cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}

	seq := uint8(t.currentSeq.Load())
	var err error
	t.outputBuf, err = AppendBlock(t.outputBuf[:0], seq, scratch.Result())
	if err != nil {
		return nil, err
	}
	return t.outputBuf, nil
}

// waitForAck waits for the ack of the block just written and advances the
// sequence
func (t *HostTransport) waitForAck(ctx context.Context) error {
	expected := uint8(t.currentSeq.Load())
	next := NextSequence(expected)

	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence == expected {
				// Controller is still waiting for this block: a nak
				return fmt.Errorf("nak at sequence 0x%02x", ack.Sequence)
			}
			if ack.Sequence != next {
				// Stale ack from an earlier exchange
				continue
			}
			t.currentSeq.Store(uint32(next))
			return nil

		case <-ctx.Done():
			return fmt.Errorf("waiting for ack: %w", ctx.Err())

		case <-t.stopChan:
			return ErrTransportClosed
		}
	}
}

// Receive waits for the next response block
func (t *HostTransport) Receive(ctx context.Context) (*Message, error) {
	select {
	case resp := <-t.responseChan:
		return resp, nil

	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for response: %w", ctx.Err())

	case <-t.stopChan:
		return nil, ErrTransportClosed
	}
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case <-t.stopChan:
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		if n > 0 {
			t.inputBuffer.Write(buffer[:n])
			t.processMessages()
		}
	}
}

// processMessages parses complete blocks out of the input buffer
func (t *HostTransport) processMessages() {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	data := t.inputBuffer.Data()

	for len(data) > 0 {
		if !t.synchronized.Load() {
			pos := skipToSync(data)
			if pos < 0 {
				data = nil
				break
			}
			data = data[pos:]
			t.synchronized.Store(true)
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

		payload := make([]byte, len(blk.Payload))
		copy(payload, blk.Payload)
		t.dispatchMessage(&Message{Sequence: blk.Sequence, Payload: payload})
	}

	consumed := t.inputBuffer.Available() - len(data)
	if consumed > 0 {
		t.inputBuffer.Pop(consumed)
	}
}

// dispatchMessage routes a block to the ack or response channel
func (t *HostTransport) dispatchMessage(msg *Message) {
	if len(msg.Payload) == 0 {
		// Keep only the newest ack
		select {
		case <-t.ackChan:
		default:
		}
		t.ackChan <- msg
		return
	}

	select {
	case t.responseChan <- msg:
	default:
		// Full: drop the oldest response
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Drain discards queued responses
func (t *HostTransport) Drain() {
	for {
		select {
		case <-t.responseChan:
		default:
			return
		}
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// Reset returns the transport to sequence 0x10 and drops queued input
func (t *HostTransport) Reset() {
	t.synchronized.Store(true)
	t.currentSeq.Store(MessageDest)

	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	t.Drain()

	t.readMutex.Lock()
	if t.inputBuffer.Available() > 0 {
		t.inputBuffer.Pop(t.inputBuffer.Available())
	}
	t.readMutex.Unlock()
}

// CurrentSequence returns the sequence the next command will carry
func (t *HostTransport) CurrentSequence() uint8 {
	return uint8(t.currentSeq.Load())
}
