package discord

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgnsrekt/murmur/internal/audio"
)

type mockVoice struct {
	mu         sync.Mutex
	connectErr error
	connects   int
	sent       [][]byte
}

func (m *mockVoice) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	return m.connectErr
}

func (m *mockVoice) SendAudio(ctx context.Context, pcm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, pcm)
	return nil
}

// mockConverter returns the clip as 16-bit PCM without resampling.
type mockConverter struct {
	calls int
}

func (m *mockConverter) DiscordPCM(ctx context.Context, clip audio.Clip) ([]byte, error) {
	m.calls++
	return audio.Float32ToPCM16(clip.Samples), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSink_Play(t *testing.T) {
	voice := &mockVoice{}
	conv := &mockConverter{}
	sink := newSink(voice, conv, discardLogger())

	clip := audio.NewMonoClip([]float32{0.1, 0.2, 0.3}, 22050)
	if err := sink.Play(context.Background(), clip); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if voice.connects != 1 {
		t.Errorf("connects = %d, want 1", voice.connects)
	}
	if len(voice.sent) != 1 || len(voice.sent[0]) != 6 {
		t.Errorf("unexpected sent payloads %v", voice.sent)
	}
	if sink.IsPlaying() {
		t.Error("IsPlaying() = true after Play returned")
	}
}

func TestSink_Play_ConnectFails(t *testing.T) {
	voice := &mockVoice{connectErr: ErrConnectionFailed}
	conv := &mockConverter{}
	sink := newSink(voice, conv, discardLogger())

	err := sink.Play(context.Background(), audio.NewMonoClip([]float32{0.1}, 16000))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Play() error = %v, want ErrConnectionFailed", err)
	}
	if conv.calls != 0 {
		t.Error("converter should not run without a connection")
	}
}

func TestSink_Stream(t *testing.T) {
	voice := &mockVoice{}
	conv := &mockConverter{}
	sink := newSink(voice, conv, discardLogger())

	buf := audio.NewStreamBuffer()
	buf.Append(make([]float32, 2500))
	buf.Close()

	pull := func(out []float32) (int, bool) {
		n := buf.Fill(out)
		return n, !buf.Drained()
	}

	if err := sink.Stream(context.Background(), 1000, pull); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	// 1000 + 1000 + 500 samples.
	if len(voice.sent) != 3 {
		t.Fatalf("sent %d blocks, want 3", len(voice.sent))
	}
	if len(voice.sent[2]) != 1000 {
		t.Errorf("last block = %d bytes, want 1000", len(voice.sent[2]))
	}
}
