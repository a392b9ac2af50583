package connector

import (
	"fmt"
	"sort"
	"sync"
)

// Factory is a function that creates a new Connector instance.
type Factory func() Connector

// Registry maps driver names to factories and holds the live connections,
// keyed by data source name. The gateway opens one source, "erp".
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	active    map[string]Connector
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		active:    make(map[string]Connector),
	}
}

// RegisterDriver registers a connector factory for a driver type.
func (r *Registry) RegisterDriver(driver string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[driver] = factory
}

// Drivers returns the registered driver names, sorted.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.factories)
}

// Connect opens a connector for cfg.Driver and stores it under source,
// closing any connector previously stored there.
func (r *Registry) Connect(source string, cfg ConnectionConfig) (Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver: %s (available: %v)", cfg.Driver, sortedKeys(r.factories))
	}

	conn := factory()
	cfg.DSN = SanitizeDSN(cfg.Driver, cfg.DSN)
	if err := conn.Connect(cfg); err != nil {
		return nil, fmt.Errorf("connect %q: %w", source, err)
	}

	if existing, ok := r.active[source]; ok {
		existing.Disconnect()
	}

	r.active[source] = conn
	return conn, nil
}

// Get returns the connector for a source.
func (r *Registry) Get(source string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.active[source]
	if !ok {
		return nil, fmt.Errorf("data source %q not connected", source)
	}
	return conn, nil
}

// Disconnect closes and forgets a source.
func (r *Registry) Disconnect(source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.active[source]
	if !ok {
		return fmt.Errorf("data source %q not connected", source)
	}

	err := conn.Disconnect()
	delete(r.active, source)
	return err
}

// CloseAll disconnects all sources.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, conn := range r.active {
		conn.Disconnect()
		delete(r.active, name)
	}
}

// Sources returns the connected source names, sorted.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.active)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
