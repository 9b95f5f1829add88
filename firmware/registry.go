// Package firmware is the controller side of the matrix link: the command
// registry, the data dictionary the host reads at connect time, and the
// display commands that load images into a core.Display.
package firmware

import (
	"errors"
	"strconv"
	"sync"
)

var ErrUnknownCommand = errors.New("unknown command id")

// CommandHandler decodes its own arguments from data
type CommandHandler func(data *[]byte) error

// Command is a message known to both ends of the link. Commands run on the
// controller; responses (nil Handler) are sent back to the host.
type Command struct {
	ID      uint16
	Name    string
	Format  string // Argument format for the dictionary (e.g. "y=%c data=%*s")
	Handler CommandHandler
}

// Signature returns the dictionary key: name followed by its format.
func (c *Command) Signature() string {
	if c.Format == "" {
		return c.Name
	}
	return c.Name + " " + c.Format
}

// IsResponse reports whether the message travels controller to host.
func (c *Command) IsResponse() bool {
	return c.Handler == nil
}

// CommandRegistry assigns ids in registration order
type CommandRegistry struct {
	mu       sync.RWMutex
	commands []*Command
	nameToID map[string]uint16
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		nameToID: make(map[string]uint16),
	}
}

// Register adds a command and returns its id. Registering a name twice
// returns the first id.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := uint16(len(r.commands))
	r.commands = append(r.commands, &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	})
	r.nameToID[name] = id
	return id
}

// RegisterResponse registers a controller to host message
func (r *CommandRegistry) RegisterResponse(name string, format string) uint16 {
	return r.Register(name, format, nil)
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered messages
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler of command cmdID
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// Each calls fn for every message in id order
func (r *CommandRegistry) Each(fn func(cmd *Command)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cmd := range r.commands {
		fn(cmd)
	}
}

// Listing returns one "name format" line per message, in id order
func (r *CommandRegistry) Listing() string {
	var s string
	r.Each(func(cmd *Command) {
		s += strconv.Itoa(int(cmd.ID)) + " " + cmd.Signature() + "\n"
	})
	return s
}
