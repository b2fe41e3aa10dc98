package wsf

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a plugin instance from its configuration.
type Factory func(name string, config map[string]any) (Plugin, error)

// Config holds configuration for one plugin instance.
type Config struct {
	Kind   string
	Name   string
	Config map[string]any
}

// Registry maps plugin names to instances and plugin kinds to factories.
// It is populated at startup and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	plugins   map[string]Plugin
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:   make(map[string]Plugin),
		factories: make(map[string]Factory),
	}
}

// RegisterFactory registers a factory for a plugin kind.
func (r *Registry) RegisterFactory(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Register adds a plugin under name.
func (r *Registry) Register(name string, p Plugin) error {
	if name == "" {
		return fmt.Errorf("registering plugin: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}
	r.plugins[name] = p
	return nil
}

// CreateAndRegister creates a plugin from config and registers it.
func (r *Registry) CreateAndRegister(cfg Config) error {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown plugin kind: %s", cfg.Kind)
	}

	p, err := factory(cfg.Name, cfg.Config)
	if err != nil {
		return fmt.Errorf("creating plugin %s/%s: %w", cfg.Kind, cfg.Name, err)
	}
	return r.Register(cfg.Name, p)
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for n := range r.plugins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltinFactories registers the built-in plugin kinds.
func RegisterBuiltinFactories(r *Registry) {
	r.RegisterFactory(KindCommand, CommandFactory)
}
