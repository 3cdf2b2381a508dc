package playback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"github.com/dgnsrekt/murmur/internal/audio"
)

// portAudioBufferSize is the number of frames written per stream write.
const portAudioBufferSize = 1024

// PortAudioSink plays on the default output device.
type PortAudioSink struct {
	tracker
	logger *slog.Logger
}

// NewPortAudioSink initializes PortAudio. Close must be called to release it.
func NewPortAudioSink(logger *slog.Logger) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudioSink{logger: logger}, nil
}

// Close terminates PortAudio.
func (s *PortAudioSink) Close() error {
	return portaudio.Terminate()
}

// Play writes the clip to the default output stream.
func (s *PortAudioSink) Play(ctx context.Context, clip audio.Clip) error {
	if clip.Empty() {
		return nil
	}

	channels := clip.Channels
	if channels < 1 {
		channels = 1
	}

	position := 0
	samples := clip.Samples
	return s.run(ctx, clip.SampleRate, channels, func(buffer []float32) bool {
		n := copy(buffer, samples[position:])
		clear(buffer[n:])
		position += n
		return position < len(samples)
	})
}

// Stream plays mono audio from pull.
func (s *PortAudioSink) Stream(ctx context.Context, sampleRate int, pull PullFunc) error {
	return s.run(ctx, sampleRate, 1, func(buffer []float32) bool {
		_, more := pull(buffer)
		return more
	})
}

// run opens a blocking stream and writes buffers filled by fill until it
// reports no more data.
func (s *PortAudioSink) run(ctx context.Context, sampleRate, channels int, fill func([]float32) bool) error {
	playCtx, end, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	buffer := make([]float32, portAudioBufferSize*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), portAudioBufferSize, &buffer)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	defer stream.Stop()

	s.logger.Debug("portaudio playback started", "sample_rate", sampleRate, "channels", channels)

	for {
		if err := playCtx.Err(); err != nil {
			return err
		}

		more := fill(buffer)
		if err := stream.Write(); err != nil {
			return fmt.Errorf("failed to write to stream: %w", err)
		}
		if !more {
			return nil
		}
	}
}

// Stop interrupts playback after the buffer being written.
func (s *PortAudioSink) Stop() {
	s.stop()
}

// IsPlaying reports whether audio is being written.
func (s *PortAudioSink) IsPlaying() bool {
	return s.isPlaying()
}
