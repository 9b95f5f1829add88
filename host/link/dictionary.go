package link

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Dictionary is the parsed data dictionary a controller sends in reply to
// identify.
type Dictionary struct {
	Version       string            `json:"version"`
	BuildVersions string            `json:"build_versions"`
	Config        map[string]string `json:"config"`
	Commands      map[string]int    `json:"commands"`
	Responses     map[string]int    `json:"responses"`
}

// ParseDictionary decodes a dictionary
func ParseDictionary(data []byte) (*Dictionary, error) {
	dict := &Dictionary{}
	if err := json.Unmarshal(data, dict); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	return dict, nil
}

// CommandID returns the id of the named command
func (d *Dictionary) CommandID(name string) (uint16, error) {
	if id, ok := lookup(d.Commands, name); ok {
		return id, nil
	}
	return 0, fmt.Errorf("controller has no command %q", name)
}

// ResponseID returns the id of the named response
func (d *Dictionary) ResponseID(name string) (uint16, error) {
	if id, ok := lookup(d.Responses, name); ok {
		return id, nil
	}
	return 0, fmt.Errorf("controller has no response %q", name)
}

// Format returns the argument format of the named command or response
func (d *Dictionary) Format(name string) (string, bool) {
	for _, msgs := range []map[string]int{d.Commands, d.Responses} {
		for sig := range msgs {
			n, format, _ := strings.Cut(sig, " ")
			if n == name {
				return format, true
			}
		}
	}
	return "", false
}

// lookup finds a message by name; dictionary keys are "name format".
func lookup(msgs map[string]int, name string) (uint16, bool) {
	for sig, id := range msgs {
		if n, _, _ := strings.Cut(sig, " "); n == name {
			return uint16(id), true
		}
	}
	return 0, false
}

// Constant returns a config constant as a string
func (d *Dictionary) Constant(name string) (string, bool) {
	v, ok := d.Config[name]
	return v, ok
}

// ConstantInt returns a numeric config constant
func (d *Dictionary) ConstantInt(name string) (int, error) {
	v, ok := d.Config[name]
	if !ok {
		return 0, fmt.Errorf("dictionary has no constant %s", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("constant %s=%q: %w", name, v, err)
	}
	return n, nil
}

// Message is one dictionary entry
type Message struct {
	ID        int
	Signature string
	Response  bool
}

// Messages lists every command and response in id order
func (d *Dictionary) Messages() []Message {
	var out []Message
	for sig, id := range d.Commands {
		out = append(out, Message{ID: id, Signature: sig})
	}
	for sig, id := range d.Responses {
		out = append(out, Message{ID: id, Signature: sig, Response: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ConstantNames returns the constant names in sorted order
func (d *Dictionary) ConstantNames() []string {
	names := make([]string, 0, len(d.Config))
	for name := range d.Config {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
