package discord

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/internal/playback"
)

// voiceSender is the part of VoiceManager the sink needs.
type voiceSender interface {
	Connect(ctx context.Context) error
	SendAudio(ctx context.Context, pcmData []byte) error
}

// pcmConverter resamples a clip to Discord PCM.
type pcmConverter interface {
	DiscordPCM(ctx context.Context, clip audio.Clip) ([]byte, error)
}

// Sink plays clips into the voice channel: clip → ffmpeg → opus.
type Sink struct {
	voice  voiceSender
	conv   pcmConverter
	logger *slog.Logger

	mu      sync.Mutex
	playing bool
	cancel  context.CancelFunc
}

var _ playback.Sink = (*Sink)(nil)

// NewSink creates a sink that speaks through vm.
func NewSink(vm *VoiceManager, conv *audio.Converter, logger *slog.Logger) *Sink {
	return newSink(vm, conv, logger)
}

func newSink(voice voiceSender, conv pcmConverter, logger *slog.Logger) *Sink {
	return &Sink{voice: voice, conv: conv, logger: logger}
}

func (s *Sink) begin(ctx context.Context) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		return nil, nil, playback.ErrAlreadyPlaying
	}
	playCtx, cancel := context.WithCancel(ctx)
	s.playing = true
	s.cancel = cancel

	return playCtx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		cancel()
		s.playing = false
		s.cancel = nil
	}, nil
}

// Play converts and sends clip, joining the channel first if needed.
func (s *Sink) Play(ctx context.Context, clip audio.Clip) error {
	playCtx, end, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	if err := s.voice.Connect(playCtx); err != nil {
		s.logger.Error("voice connection failed", "error", err)
		return err
	}
	return s.send(playCtx, clip)
}

// Stream sends pulled audio in one second blocks.
func (s *Sink) Stream(ctx context.Context, sampleRate int, pull playback.PullFunc) error {
	playCtx, end, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer end()

	if err := s.voice.Connect(playCtx); err != nil {
		s.logger.Error("voice connection failed", "error", err)
		return err
	}

	buffer := make([]float32, sampleRate)
	for {
		n, more := pull(buffer)
		if n > 0 {
			block := append([]float32(nil), buffer[:n]...)
			if err := s.send(playCtx, audio.NewMonoClip(block, sampleRate)); err != nil {
				return err
			}
		} else if more {
			// Producer has fallen behind; wait a frame instead of spinning.
			select {
			case <-playCtx.Done():
				return playCtx.Err()
			case <-time.After(frameDuration):
			}
		}
		if !more {
			return nil
		}
	}
}

func (s *Sink) send(ctx context.Context, clip audio.Clip) error {
	if clip.Empty() {
		return nil
	}

	pcm, err := s.conv.DiscordPCM(ctx, clip)
	if err != nil {
		s.logger.Error("audio conversion failed", "error", err)
		return err
	}

	if err := s.voice.SendAudio(ctx, pcm); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("playback interrupted")
		} else {
			s.logger.Error("audio send failed", "error", err)
		}
		return err
	}
	return nil
}

// Stop interrupts the current send.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// IsPlaying reports whether audio is being sent.
func (s *Sink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}
