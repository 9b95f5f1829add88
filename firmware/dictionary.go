package firmware

import (
	"strconv"
	"sync"

	"greymatrix/protocol"
)

// Constant represents a firmware constant exposed to the host
type Constant struct {
	Name  string
	Value interface{}
}

// Dictionary is the JSON description of the firmware the host reads with
// identify: protocol version, board constants, and the id of every message.
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cached        []byte
}

// NewDictionary creates a dictionary describing the messages in cmdReg
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		commandReg:    cmdReg,
		version:       protocol.Version,
		buildVersions: "go-tinygo",
	}
}

// AddConstant adds or replaces a constant
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{Name: name, Value: value}
	d.cached = nil
}

// SetBuildVersions sets the build versions string
func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cached = nil
}

// Build renders and caches the dictionary. Call it once every message has
// been registered; later changes to the registry are not picked up.
func (d *Dictionary) Build() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cached == nil {
		d.cached = d.buildJSONLocked()
	}
	return d.cached
}

// buildJSONLocked renders the dictionary (caller must hold lock)
func (d *Dictionary) buildJSONLocked() []byte {
	result := make([]byte, 0, 1024)

	result = append(result, `{"version":`...)
	result = appendQuoted(result, d.version)
	result = append(result, `,"build_versions":`...)
	result = appendQuoted(result, d.buildVersions)

	result = append(result, `,"config":{`...)
	names := make([]string, 0, len(d.constants))
	for name := range d.constants {
		names = append(names, name)
	}
	sortStrings(names)
	for i, name := range names {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendQuoted(result, name)
		result = append(result, ':')
		result = appendQuoted(result, valueToString(d.constants[name].Value))
	}

	var commands, responses []*Command
	d.commandReg.Each(func(cmd *Command) {
		if cmd.IsResponse() {
			responses = append(responses, cmd)
		} else {
			commands = append(commands, cmd)
		}
	})

	result = append(result, `},"commands":`...)
	result = appendMessages(result, commands)
	result = append(result, `,"responses":`...)
	result = appendMessages(result, responses)
	result = append(result, '}')
	return result
}

// GetChunk returns up to count bytes of the dictionary starting at offset.
// Past the end it returns an empty chunk, which tells the host it is done.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Build()

	if offset >= uint32(len(data)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	return data[offset:end]
}

func appendMessages(result []byte, msgs []*Command) []byte {
	result = append(result, '{')
	for i, cmd := range msgs {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendQuoted(result, cmd.Signature())
		result = append(result, ':')
		result = strconv.AppendInt(result, int64(cmd.ID), 10)
	}
	return append(result, '}')
}

// appendQuoted appends s as a JSON string. Names and formats are plain
// ASCII, so only quotes and backslashes need escaping.
func appendQuoted(result []byte, s string) []byte {
	result = append(result, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			result = append(result, '\\')
		}
		result = append(result, c)
	}
	return append(result, '"')
}

// sortStrings is an insertion sort; the lists here are a handful of names
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// valueToString converts a constant to its dictionary form
func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	default:
		return ""
	}
}
