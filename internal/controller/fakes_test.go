package controller

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/internal/playback"
	"github.com/dgnsrekt/murmur/internal/profile"
	"github.com/dgnsrekt/murmur/internal/tts"
)

const fakeBackend = "fake"

type fakeEngine struct {
	mu         sync.Mutex
	sampleRate int
	samples    []float32
	err        error
	panicMsg   string
	requests   []tts.Request
	closed     bool
}

func (e *fakeEngine) Name() string    { return fakeBackend }
func (e *fakeEngine) SampleRate() int { return e.sampleRate }

func (e *fakeEngine) Generate(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.requests = append(e.requests, req)
	if e.panicMsg != "" {
		panic(e.panicMsg)
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.samples == nil {
		return nil, nil
	}
	return &tts.Audio{Samples: e.samples, SampleRate: e.sampleRate}, nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *fakeEngine) lastRequest() tts.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[len(e.requests)-1]
}

// streamingEngine hands out chunks one at a time.
type streamingEngine struct {
	fakeEngine
	chunks    [][]float32
	streamErr error
}

func (e *streamingEngine) GenerateStream(ctx context.Context, req tts.Request, onChunk tts.ChunkFunc) error {
	for _, chunk := range e.chunks {
		if !onChunk(chunk) {
			return nil
		}
	}
	return e.streamErr
}

// recordingSink records what it is asked to play.
type recordingSink struct {
	mu        sync.Mutex
	clips     []audio.Clip
	streamed  []float32
	streams   int
	active    int
	maxActive int
	playErr   error
	stops     int
	block     chan struct{}
}

var _ playback.Sink = (*recordingSink)(nil)

func (s *recordingSink) enter() {
	s.mu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.mu.Unlock()
}

func (s *recordingSink) leave() {
	s.mu.Lock()
	s.active--
	s.mu.Unlock()
}

func (s *recordingSink) Play(ctx context.Context, clip audio.Clip) error {
	s.enter()
	defer s.leave()

	s.mu.Lock()
	s.clips = append(s.clips, clip)
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.playErr
}

func (s *recordingSink) Stream(ctx context.Context, sampleRate int, pull playback.PullFunc) error {
	s.enter()
	defer s.leave()

	s.mu.Lock()
	s.streams++
	s.mu.Unlock()

	out := make([]float32, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, more := pull(out)
		s.mu.Lock()
		s.streamed = append(s.streamed, out[:n]...)
		s.mu.Unlock()
		if !more {
			return nil
		}
	}
}

func (s *recordingSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	if s.block != nil {
		close(s.block)
		s.block = nil
	}
}

func (s *recordingSink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active > 0
}

func (s *recordingSink) playCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

// fixture is a model root with every file a profile needs.
type fixture struct {
	root     string
	profile  profile.Profile
	registry *profile.Registry
	backends *tts.Backends
	builds   int
	engines  []tts.Engine
	next     func() tts.Engine
	sink     *recordingSink
}

func newFixture(t *testing.T, next func() tts.Engine) *fixture {
	t.Helper()

	root := t.TempDir()
	voice := filepath.Join(root, "voice")
	require.NoError(t, os.MkdirAll(filepath.Join(voice, "dict"), 0o755))
	for _, name := range []string{"model.onnx", "lexicon.txt", "tokens.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(voice, name), []byte("x"), 0o644))
	}

	p := profile.Profile{
		Name:      "test",
		Backend:   fakeBackend,
		Model:     "voice/model.onnx",
		Lexicon:   "voice/lexicon.txt",
		Tokens:    "voice/tokens.txt",
		DictDir:   "voice/dict",
		SpeakerID: 804,
		Speed:     1,
	}
	reg, err := profile.NewRegistry(p)
	require.NoError(t, err)

	f := &fixture{
		root:     root,
		profile:  p,
		registry: reg,
		backends: tts.NewBackends(),
		next:     next,
		sink:     &recordingSink{},
	}
	require.NoError(t, f.backends.Register(fakeBackend, func(cfg tts.EngineConfig, logger *slog.Logger) (tts.Engine, error) {
		f.builds++
		e := f.next()
		f.engines = append(f.engines, e)
		return e, nil
	}))
	return f
}

func (f *fixture) controller(t *testing.T, opts ...Option) *Controller {
	t.Helper()

	opts = append([]Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithBackends(f.backends),
		WithModelRoot(f.root),
	}, opts...)
	c := New(f.registry, f.sink, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (f *fixture) addProfile(t *testing.T, p profile.Profile) {
	t.Helper()
	require.NoError(t, f.registry.Add(p))
}

func engineWith(samples []float32) func() tts.Engine {
	return func() tts.Engine {
		return &fakeEngine{sampleRate: 22050, samples: samples}
	}
}
