package playback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/internal/wav"
)

// streamChunkSize is the pull size used by sinks that do not play in real
// time.
const streamChunkSize = 4096

// WAVSink writes every clip to <dir>/<uuid>.wav.
type WAVSink struct {
	tracker
	dir    string
	logger *slog.Logger

	lastMu sync.Mutex
	last   string
}

// NewWAVSink creates dir if needed.
func NewWAVSink(dir string, logger *slog.Logger) (*WAVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create wav dir: %w", err)
	}
	return &WAVSink{dir: dir, logger: logger}, nil
}

// Play writes clip as a 16-bit PCM WAV file.
func (s *WAVSink) Play(ctx context.Context, clip audio.Clip) error {
	playCtx, end, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	return s.write(playCtx, clip)
}

// Stream collects everything pull produces and writes it as one file.
func (s *WAVSink) Stream(ctx context.Context, sampleRate int, pull PullFunc) error {
	playCtx, end, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	var samples []float32
	buffer := make([]float32, streamChunkSize)
	for {
		if err := playCtx.Err(); err != nil {
			return err
		}
		n, more := pull(buffer)
		samples = append(samples, buffer[:n]...)
		if !more {
			break
		}
		if n == 0 {
			if err := waitStarved(playCtx); err != nil {
				return err
			}
		}
	}

	return s.write(playCtx, audio.NewMonoClip(samples, sampleRate))
}

func (s *WAVSink) write(ctx context.Context, clip audio.Clip) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, uuid.New().String()+".wav")
	if err := os.WriteFile(path, wav.EncodeClip(clip), 0o644); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}

	s.lastMu.Lock()
	s.last = path
	s.lastMu.Unlock()

	s.logger.Info("wrote wav file",
		"path", path,
		"sample_rate", clip.SampleRate,
		"duration", clip.Duration(),
	)
	return nil
}

// LastFile returns the path of the most recently written file.
func (s *WAVSink) LastFile() string {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return s.last
}

// Stop cancels an in-progress stream collection.
func (s *WAVSink) Stop() {
	s.stop()
}

// IsPlaying reports whether a write is in progress.
func (s *WAVSink) IsPlaying() bool {
	return s.isPlaying()
}
