package tts

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

// mockEngine is a test implementation of Engine.
type mockEngine struct {
	name string
}

func (m *mockEngine) Name() string    { return m.name }
func (m *mockEngine) SampleRate() int { return 16000 }
func (m *mockEngine) Close() error    { return nil }

func (m *mockEngine) Generate(ctx context.Context, req Request) (*Audio, error) {
	return &Audio{Samples: []float32{0, 0.5, -0.5}, SampleRate: 16000}, nil
}

func mockFactory(name string) Factory {
	return func(cfg EngineConfig, logger *slog.Logger) (Engine, error) {
		return &mockEngine{name: name}, nil
	}
}

func TestBackends_Register(t *testing.T) {
	b := NewBackends()

	if err := b.Register("mock", mockFactory("mock")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	factory, err := b.Get("mock")
	if err != nil {
		t.Fatalf("failed to get backend: %v", err)
	}
	engine, err := factory(EngineConfig{}, slog.Default())
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if engine.Name() != "mock" {
		t.Errorf("expected name 'mock', got '%s'", engine.Name())
	}
}

func TestBackends_RegisterDuplicate(t *testing.T) {
	b := NewBackends()

	if err := b.Register("mock", mockFactory("mock")); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := b.Register("mock", mockFactory("mock")); !errors.Is(err, ErrBackendExists) {
		t.Errorf("expected ErrBackendExists, got %v", err)
	}
}

func TestBackends_GetNotFound(t *testing.T) {
	b := NewBackends()

	if _, err := b.Get("nonexistent"); !errors.Is(err, ErrBackendNotFound) {
		t.Errorf("expected ErrBackendNotFound, got %v", err)
	}
}

func TestDefaultBackends(t *testing.T) {
	b := DefaultBackends("piper")

	names := b.List()
	if len(names) != 2 || names[0] != BackendPiper || names[1] != BackendSherpa {
		t.Errorf("expected [piper sherpa], got %v", names)
	}
}
