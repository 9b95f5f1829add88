// Package link is the host end of the matrix command link: it retrieves the
// controller's data dictionary and sends images and display commands by name.
package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"greymatrix/host/serial"
	"greymatrix/protocol"
)

const (
	// Messages with fixed ids, usable before the dictionary is known
	idIdentifyResponse = 0
	idIdentify         = 1

	identifyChunk = 40
	maxDictionary = 64 << 10
)

var ErrNoDictionary = errors.New("link: dictionary not retrieved")

// Geometry is the controller's reply to get_config
type Geometry struct {
	Rows         int
	Columns      int
	ImageRows    int
	ImageColumns int
	CycleTicks   uint16
}

// Stats is the controller's reply to get_stats
type Stats struct {
	Primary   uint32
	Secondary uint32
	Frames    uint32
	Errors    uint32
}

// Link talks to one controller
type Link struct {
	transport *protocol.HostTransport
	log       zerolog.Logger

	dict *Dictionary
	raw  []byte
}

// Open opens the serial device and returns an unidentified link
func Open(cfg serial.Config, log zerolog.Logger) (*Link, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("device", cfg.Device).Int("baud", cfg.Baud).Msg("serial port open")
	return New(port, log), nil
}

// New runs a link over an already open port
func New(port io.ReadWriteCloser, log zerolog.Logger) *Link {
	return &Link{
		transport: protocol.NewHostTransport(port),
		log:       log,
	}
}

// Close closes the link and its port
func (l *Link) Close() error {
	return l.transport.Close()
}

// Connect retrieves the dictionary; every other call needs it.
func (l *Link) Connect(ctx context.Context) error {
	if err := l.RetrieveDictionary(ctx); err != nil {
		return err
	}
	l.log.Info().
		Str("version", l.dict.Version).
		Str("mcu", l.dict.Config["MCU"]).
		Int("messages", len(l.dict.Commands)+len(l.dict.Responses)).
		Msg("controller identified")
	return nil
}

// RetrieveDictionary reads the data dictionary in identify chunks
func (l *Link) RetrieveDictionary(ctx context.Context) error {
	var buf bytes.Buffer
	for buf.Len() < maxDictionary {
		offset := uint32(buf.Len())
		chunk, err := l.identify(ctx, offset)
		if err != nil {
			return fmt.Errorf("dictionary chunk at %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}
		buf.Write(chunk)
		l.log.Trace().Uint32("offset", offset).Int("len", len(chunk)).Msg("dictionary chunk")
	}
	if buf.Len() >= maxDictionary {
		return fmt.Errorf("dictionary larger than %d bytes", maxDictionary)
	}

	dict, err := ParseDictionary(buf.Bytes())
	if err != nil {
		return err
	}
	if dict.Version != protocol.Version {
		l.log.Warn().Str("controller", dict.Version).Str("host", protocol.Version).Msg("protocol version mismatch")
	}
	l.dict = dict
	l.raw = buf.Bytes()
	l.log.Debug().Int("bytes", len(l.raw)).Msg("dictionary retrieved")
	return nil
}

func (l *Link) identify(ctx context.Context, offset uint32) ([]byte, error) {
	payload, err := l.exchange(ctx, idIdentify, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, identifyChunk)
	}, idIdentifyResponse)
	if err != nil {
		return nil, err
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("decode identify_response offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("identify_response offset %d, asked for %d", respOffset, offset)
	}
	data, err := protocol.DecodeVLQBytes(&payload)
	if err != nil {
		return nil, fmt.Errorf("decode identify_response data: %w", err)
	}
	return data, nil
}

// exchange sends a command and waits for the response with id respID. The
// response payload is returned without its id.
func (l *Link) exchange(ctx context.Context, cmdID uint16, args func(output protocol.OutputBuffer), respID uint16) ([]byte, error) {
	l.transport.Drain()
	if err := l.transport.Send(ctx, cmdID, args); err != nil {
		return nil, err
	}
	for {
		msg, err := l.transport.Receive(ctx)
		if err != nil {
			return nil, err
		}
		payload := msg.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			continue
		}
		if uint16(id) == respID {
			return payload, nil
		}
		l.log.Debug().Uint32("id", id).Msg("skipping unrelated response")
	}
}

// Dictionary returns the parsed dictionary, or nil before Connect
func (l *Link) Dictionary() *Dictionary {
	return l.dict
}

// RawDictionary returns the dictionary as received
func (l *Link) RawDictionary() []byte {
	return l.raw
}

// Command sends a command by name and waits for its ack
func (l *Link) Command(ctx context.Context, name string, args func(output protocol.OutputBuffer)) error {
	if l.dict == nil {
		return ErrNoDictionary
	}
	id, err := l.dict.CommandID(name)
	if err != nil {
		return err
	}
	if err := l.transport.Send(ctx, id, args); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Query sends a command by name and returns the payload of the named
// response.
func (l *Link) Query(ctx context.Context, name string, args func(output protocol.OutputBuffer), response string) ([]byte, error) {
	if l.dict == nil {
		return nil, ErrNoDictionary
	}
	cmdID, err := l.dict.CommandID(name)
	if err != nil {
		return nil, err
	}
	respID, err := l.dict.ResponseID(response)
	if err != nil {
		return nil, err
	}
	payload, err := l.exchange(ctx, cmdID, args, respID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return payload, nil
}

func decodeUints(payload []byte, n int) ([]uint32, error) {
	vals := make([]uint32, n)
	for i := range vals {
		v, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, fmt.Errorf("response field %d: %w", i, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// Config asks the controller for its geometry
func (l *Link) Config(ctx context.Context) (Geometry, error) {
	payload, err := l.Query(ctx, "get_config", nil, "config")
	if err != nil {
		return Geometry{}, err
	}
	v, err := decodeUints(payload, 5)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		Rows:         int(v[0]),
		Columns:      int(v[1]),
		ImageRows:    int(v[2]),
		ImageColumns: int(v[3]),
		CycleTicks:   uint16(v[4]),
	}, nil
}

// Stats asks the controller for its event counters
func (l *Link) Stats(ctx context.Context) (Stats, error) {
	payload, err := l.Query(ctx, "get_stats", nil, "stats")
	if err != nil {
		return Stats{}, err
	}
	v, err := decodeUints(payload, 4)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Primary: v[0], Secondary: v[1], Frames: v[2], Errors: v[3]}, nil
}

// SendImage loads rows into the controller's staging image one row at a
// time and shows it. rows must match the controller's image size.
func (l *Link) SendImage(ctx context.Context, rows [][]uint8) error {
	if l.dict == nil {
		return ErrNoDictionary
	}
	height, err := l.dict.ConstantInt("IMAGE_ROWS")
	if err != nil {
		return err
	}
	width, err := l.dict.ConstantInt("IMAGE_COLS")
	if err != nil {
		return err
	}
	if len(rows) != height {
		return fmt.Errorf("image has %d rows, controller shows %d", len(rows), height)
	}

	packed := make([]byte, 0, protocol.PackedLen(width))
	for y, row := range rows {
		if len(row) != width {
			return fmt.Errorf("image row %d has %d pixels, controller shows %d", y, len(row), width)
		}
		packed = protocol.PackLevels(packed[:0], row)
		err := l.Command(ctx, "set_row", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(y))
			protocol.EncodeVLQBytes(output, packed)
		})
		if err != nil {
			return fmt.Errorf("row %d: %w", y, err)
		}
	}
	return l.Command(ctx, "show_frame", nil)
}

// SetPixel sets one pixel of the staging image; it shows on the next
// ShowFrame or SendImage.
func (l *Link) SetPixel(ctx context.Context, x, y int, level uint8) error {
	return l.Command(ctx, "set_pixel", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(x))
		protocol.EncodeVLQUint(output, uint32(y))
		protocol.EncodeVLQUint(output, uint32(level))
	})
}

// ShowFrame publishes the staging image
func (l *Link) ShowFrame(ctx context.Context) error {
	return l.Command(ctx, "show_frame", nil)
}

// Clear darkens the matrix
func (l *Link) Clear(ctx context.Context) error {
	return l.Command(ctx, "clear", nil)
}

// DumpTrace asks the controller to print its event trace on its debug output
func (l *Link) DumpTrace(ctx context.Context) error {
	return l.Command(ctx, "dump_trace", nil)
}

// Reset asks the controller to restart and drops the link state
func (l *Link) Reset(ctx context.Context) error {
	if err := l.Command(ctx, "reset", nil); err != nil {
		return err
	}
	l.transport.Reset()
	l.dict = nil
	l.raw = nil
	return nil
}
