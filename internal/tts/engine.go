// Package tts is the boundary to the offline speech engines.
//
// An Engine is built from an EngineConfig whose paths have all been checked
// to exist, reports its sample rate once constructed, and turns text into a
// buffer of mono float samples.
package tts

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("empty text")
	// ErrSynthesisFailed is returned when the engine could not produce audio.
	ErrSynthesisFailed = errors.New("TTS synthesis failed")
	// ErrEngineClosed is returned by engines used after Close.
	ErrEngineClosed = errors.New("TTS engine closed")
)

// Request is a snapshot of what to say and how. Speed and SpeakerID are
// captured when the request is made and are not re-read mid-flight.
type Request struct {
	Text      string
	SpeakerID int
	Speed     float32
}

// Audio is the engine's output: mono normalized samples.
type Audio struct {
	Samples    []float32
	SampleRate int
}

// Empty reports whether a nil or zero-length result was produced.
func (a *Audio) Empty() bool {
	return a == nil || len(a.Samples) == 0
}

// Duration returns the playback length of the audio.
func (a *Audio) Duration() time.Duration {
	if a.Empty() || a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// Engine is the interface for text-to-speech synthesis.
type Engine interface {
	// Name returns the backend identifier.
	Name() string
	// SampleRate is fixed once the engine is constructed.
	SampleRate() int
	// Generate synthesizes req.Text. A nil or empty result with a nil error
	// is a valid, silent outcome.
	Generate(ctx context.Context, req Request) (*Audio, error)
	// Close releases native resources.
	Close() error
}

// ChunkFunc receives audio as it is produced. Returning false stops
// generation early.
type ChunkFunc func(samples []float32) bool

// StreamingEngine is implemented by engines that can hand out audio
// incrementally.
type StreamingEngine interface {
	Engine
	GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) error
}

// Factory constructs an engine from a validated configuration.
type Factory func(cfg EngineConfig, logger *slog.Logger) (Engine, error)
