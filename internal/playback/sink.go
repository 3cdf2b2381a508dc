// Package playback plays synthesized clips on an output device, a
// directory of WAV files, or nowhere at all.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgnsrekt/murmur/internal/audio"
)

// ErrAlreadyPlaying is returned when a sink is asked to play while busy.
var ErrAlreadyPlaying = errors.New("sink is already playing")

// PullFunc fills out with the next samples. n is the number of real
// samples written; the rest of out is silence. more reports whether
// further calls will produce audio. out is played even when more is false.
type PullFunc func(out []float32) (n int, more bool)

// Sink consumes audio.
type Sink interface {
	// Play blocks until clip has played, ctx is done or Stop is called.
	Play(ctx context.Context, clip audio.Clip) error
	// Stream plays mono audio from pull until pull reports no more data.
	Stream(ctx context.Context, sampleRate int, pull PullFunc) error
	// Stop interrupts the current playback, if any.
	Stop()
	// IsPlaying reports whether Play or Stream is running.
	IsPlaying() bool
}

// starvedBackoff is how long a non-realtime sink waits when pull has no
// samples yet but more are coming.
const starvedBackoff = 20 * time.Millisecond

// waitStarved pauses after an empty pull so a sink does not spin while the
// producer catches up.
func waitStarved(ctx context.Context) error {
	timer := time.NewTimer(starvedBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// tracker implements the busy flag and Stop for sinks.
type tracker struct {
	mu      sync.Mutex
	playing bool
	cancel  context.CancelFunc
}

// begin marks the sink busy and returns a context that Stop cancels. end
// must be called when playback finishes.
func (t *tracker) begin(ctx context.Context) (context.Context, func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.playing {
		return nil, nil, ErrAlreadyPlaying
	}

	playCtx, cancel := context.WithCancel(ctx)
	t.playing = true
	t.cancel = cancel

	end := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		cancel()
		t.playing = false
		t.cancel = nil
	}
	return playCtx, end, nil
}

func (t *tracker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *tracker) isPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}
