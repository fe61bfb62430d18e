package space

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Compiler turns a space tree into a Sampler. Implementations are expected
// to reject every unsupported operator or feature here, before any sample
// is drawn.
type Compiler interface {
	Name() string
	Compile(s *Space) (Sampler, error)
}

// Sampler draws flat samples keyed by dotted dimension path. Identical
// (n, seed) pairs must always produce identical output.
type Sampler interface {
	Sample(n int, seed uint64) ([]map[string]any, error)
}

// Factory creates a backend compiler. A nil logger means discard.
type Factory func(*slog.Logger) Compiler

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterBackend adds a backend factory to the registry.
// Called by backend implementations in their init() functions.
func RegisterBackend(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// GetBackend retrieves a backend factory by name.
func GetBackend(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// NewCompiler creates the compiler registered under name.
func NewCompiler(name string, logger *slog.Logger) (Compiler, error) {
	if name == "" {
		return nil, fmt.Errorf("backend not specified")
	}

	factory, ok := GetBackend(name)
	if !ok {
		return nil, &UnknownBackendError{
			Name:      name,
			Available: ListBackends(),
		}
	}
	return factory(logger), nil
}

// ListBackends returns all registered backend names (sorted).
func ListBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
