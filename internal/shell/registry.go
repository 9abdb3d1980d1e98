package shell

import (
	"context"
	"sort"

	"github.com/jkaninda/ganda/internal/sysmon"
)

// Handler executes one command against a session. A non-nil error becomes a
// failed Result at the dispatcher boundary; handlers never mutate session
// state on failure.
type Handler func(ctx context.Context, sess *Session, args []string) (Result, error)

// Command is one registered command: its name, usage line, and handler.
// The help output is generated from these fields so it can never drift
// from the registry.
type Command struct {
	Name        string
	Usage       string
	Description string
	Run         Handler
}

// Registry maps command names to handlers. Built once at startup and
// immutable afterward; passed by reference into the dispatcher rather than
// held as a mutable global, so the core stays testable with injected
// handlers.
type Registry struct {
	commands map[string]Command
}

// Options tunes handler behavior.
type Options struct {
	// ProcessLimit caps the number of rows in the ps report. 0 = 20.
	ProcessLimit int
}

// NewRegistry builds a registry from the given commands.
// Panics on duplicate names (a startup configuration error, not runtime).
func NewRegistry(cmds ...Command) *Registry {
	r := &Registry{commands: make(map[string]Command, len(cmds))}
	for _, c := range cmds {
		r.register(c)
	}
	return r
}

// DefaultRegistry builds the full fixed command set: filesystem operations,
// system-info reports backed by the given provider, and meta commands.
func DefaultRegistry(mon sysmon.Provider, opts Options) *Registry {
	r := NewRegistry(fsCommands()...)
	for _, c := range sysinfoCommands(mon, opts) {
		r.register(c)
	}
	// Meta commands close over the registry itself (help lists it).
	for _, c := range metaCommands(r) {
		r.register(c)
	}
	return r
}

func (r *Registry) register(c Command) {
	if _, exists := r.commands[c.Name]; exists {
		panic("duplicate command registration: " + c.Name)
	}
	r.commands[c.Name] = c
}

// Resolve returns the command registered under the exact name.
func (r *Registry) Resolve(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Names returns all registered command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands returns all registered commands sorted by name.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, name := range r.Names() {
		out = append(out, r.commands[name])
	}
	return out
}
