package workload

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register registers a factory for a workload name.
// e.g. Register("echo", func(params map[string]any) (Workload, error) { ... })
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("Register called twice for workload " + name)
	}
	registry[name] = factory
}

// New builds a workload instance by registered name.
func New(name string, params map[string]any) (Workload, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("workload '%s' not found in registry", name)
	}
	return factory(params)
}
