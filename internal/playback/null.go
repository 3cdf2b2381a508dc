package playback

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/murmur/internal/audio"
)

// NullSink discards audio. In realtime mode it blocks for as long as the
// audio would take to play.
type NullSink struct {
	tracker
	realtime bool
	plays    atomic.Int64
	samples  atomic.Int64
}

// NewNullSink creates a sink that discards audio.
func NewNullSink(realtime bool) *NullSink {
	return &NullSink{realtime: realtime}
}

// Play discards clip, waiting out its duration in realtime mode.
func (s *NullSink) Play(ctx context.Context, clip audio.Clip) error {
	playCtx, end, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	s.plays.Add(1)
	s.samples.Add(int64(len(clip.Samples)))
	return s.wait(playCtx, clip.Duration())
}

// Stream drains pull.
func (s *NullSink) Stream(ctx context.Context, sampleRate int, pull PullFunc) error {
	playCtx, end, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	s.plays.Add(1)
	buffer := make([]float32, streamChunkSize)
	chunk := audio.NewMonoClip(buffer, sampleRate).Duration()
	for {
		if err := playCtx.Err(); err != nil {
			return err
		}
		n, more := pull(buffer)
		s.samples.Add(int64(n))
		if err := s.wait(playCtx, chunk); err != nil {
			return err
		}
		if !more {
			return nil
		}
		if n == 0 && !s.realtime {
			if err := waitStarved(playCtx); err != nil {
				return err
			}
		}
	}
}

func (s *NullSink) wait(ctx context.Context, d time.Duration) error {
	if !s.realtime || d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Plays returns the number of Play and Stream calls that started.
func (s *NullSink) Plays() int {
	return int(s.plays.Load())
}

// Samples returns the number of real samples consumed.
func (s *NullSink) Samples() int {
	return int(s.samples.Load())
}

// Stop interrupts a realtime wait.
func (s *NullSink) Stop() {
	s.stop()
}

// IsPlaying reports whether the sink is busy.
func (s *NullSink) IsPlaying() bool {
	return s.isPlaying()
}
