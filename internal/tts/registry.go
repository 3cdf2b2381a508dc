package tts

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrBackendNotFound is returned when a backend is not registered.
	ErrBackendNotFound = errors.New("TTS backend not found")
	// ErrBackendExists is returned when trying to register a duplicate backend.
	ErrBackendExists = errors.New("TTS backend already registered")
)

// Backend names understood by profiles.
const (
	BackendSherpa = "sherpa"
	BackendPiper  = "piper"
)

// Backends maps backend names to engine factories.
type Backends struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewBackends creates an empty backend registry.
func NewBackends() *Backends {
	return &Backends{factories: make(map[string]Factory)}
}

// DefaultBackends registers sherpa-onnx and piper.
func DefaultBackends(piperBinary string) *Backends {
	b := NewBackends()
	_ = b.Register(BackendSherpa, NewSherpaEngine)
	_ = b.Register(BackendPiper, PiperFactory(piperBinary))
	return b
}

// Register adds a factory under name.
func (b *Backends) Register(name string, factory Factory) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.factories[name]; exists {
		return ErrBackendExists
	}
	b.factories[name] = factory
	return nil
}

// Get retrieves the factory for name.
func (b *Backends) Get(name string) (Factory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	factory, exists := b.factories[name]
	if !exists {
		return nil, ErrBackendNotFound
	}
	return factory, nil
}

// List returns the registered backend names in sorted order.
func (b *Backends) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.factories))
	for name := range b.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
