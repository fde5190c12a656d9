package shell

import (
	"sort"
	"strings"
	"sync"
)

// Registry manages command registration and lookup.
type Registry struct {
	commands map[string]Command
	mu       sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds or replaces a command in the registry.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd.Spec().Name] = cmd
}

// Unregister removes a command from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.commands, name)
}

// Get returns a registered command by name, or nil if not found.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name]
}

// Names returns the names of all registered commands, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Manuals renders the manuals of all registered commands in name order,
// separated by blank lines. This is what instruction assembly injects.
func (r *Registry) Manuals() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	manuals := make([]string, 0, len(names))
	for _, name := range names {
		manuals = append(manuals, r.commands[name].Spec().Manual())
	}
	return strings.Join(manuals, "\n\n")
}
