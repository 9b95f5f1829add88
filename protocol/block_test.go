package protocol

import (
	"bytes"
	"testing"
)

func TestAppendParseBlock(t *testing.T) {
	payload := []byte{0x03, 0x01, 0x02}
	blk, err := AppendBlock(nil, MessageDest|0x04, payload)
	if err != nil {
		t.Fatalf("AppendBlock failed: %v", err)
	}
	if len(blk) != MessageLengthMin+len(payload) {
		t.Fatalf("block length %d, want %d", len(blk), MessageLengthMin+len(payload))
	}
	if blk[len(blk)-1] != MessageValueSync {
		t.Errorf("block does not end with sync byte")
	}

	// Trailing bytes after the block are left alone
	parsed, n, err := ParseBlock(append(blk, 0xAA))
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}
	if n != len(blk) {
		t.Errorf("consumed %d bytes, want %d", n, len(blk))
	}
	if parsed.Sequence != MessageDest|0x04 {
		t.Errorf("sequence 0x%02x, want 0x14", parsed.Sequence)
	}
	if !bytes.Equal(parsed.Payload, payload) {
		t.Errorf("payload %v, want %v", parsed.Payload, payload)
	}
	if parsed.IsAck() {
		t.Error("block with payload reported as ack")
	}
}

func TestParseBlockErrors(t *testing.T) {
	good, _ := AppendBlock(nil, MessageDest, []byte{1, 2})

	corrupt := func(i int, v byte) []byte {
		b := append([]byte(nil), good...)
		b[i] = v
		return b
	}

	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{"too short", good[:3], ErrShortBlock},
		{"partial", good[:len(good)-1], ErrShortBlock},
		{"length too small", corrupt(0, 2), ErrBadBlock},
		{"length too large", corrupt(0, MessageLengthMax+1), ErrBadBlock},
		{"bad destination", corrupt(1, 0x20), ErrBadBlock},
		{"bad crc", corrupt(2, 9), ErrBadBlock},
		{"missing sync", corrupt(len(good)-1, 0), ErrBadBlock},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ParseBlock(tc.data); err != tc.want {
				t.Errorf("ParseBlock error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAppendBlockTooLong(t *testing.T) {
	if _, err := AppendBlock(nil, MessageDest, make([]byte, MessagePayloadMax)); err != nil {
		t.Errorf("largest payload rejected: %v", err)
	}
	if _, err := AppendBlock(nil, MessageDest, make([]byte, MessagePayloadMax+1)); err != ErrBlockTooLong {
		t.Errorf("expected ErrBlockTooLong, got %v", err)
	}
}

func TestNextSequence(t *testing.T) {
	if got := NextSequence(0x10); got != 0x11 {
		t.Errorf("NextSequence(0x10) = 0x%02x", got)
	}
	if got := NextSequence(0x1F); got != 0x10 {
		t.Errorf("NextSequence(0x1f) = 0x%02x, want wrap to 0x10", got)
	}
}
