// Package discord speaks into a Discord voice channel.
package discord

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"

	"github.com/dgnsrekt/murmur/internal/audio"
)

const (
	// voiceConnectTimeout is the maximum time to wait for voice connection readiness.
	voiceConnectTimeout = 10 * time.Second
	// voiceConnectPollInterval is the polling interval while waiting for connection.
	voiceConnectPollInterval = 100 * time.Millisecond
	// frameDuration is the duration of one Discord audio frame (20ms).
	frameDuration = 20 * time.Millisecond
	// maxOpusDataBytes is the maximum size of an encoded Opus frame.
	maxOpusDataBytes = 4000
)

var (
	// ErrNotConnected is returned when trying to send audio while not connected.
	ErrNotConnected = errors.New("not connected to voice channel")
	// ErrConnectionFailed is returned when voice connection fails.
	ErrConnectionFailed = errors.New("failed to connect to voice channel")
	// ErrMissingCredentials is returned when the token or IDs are empty.
	ErrMissingCredentials = errors.New("discord token, guild and channel are required")
)

// VoiceConfig identifies the bot and the channel it speaks in.
type VoiceConfig struct {
	Token     string
	GuildID   string
	ChannelID string
}

// VoiceManager owns the Discord session and at most one voice connection.
type VoiceManager struct {
	mu              sync.Mutex
	session         *discordgo.Session
	voiceConnection *discordgo.VoiceConnection
	cfg             VoiceConfig
	logger          *slog.Logger
	opusEncoder     *gopus.Encoder
}

// NewVoiceManager creates the session and opus encoder. The session is not
// opened until Open is called.
func NewVoiceManager(cfg VoiceConfig, logger *slog.Logger) (*VoiceManager, error) {
	if cfg.Token == "" || cfg.GuildID == "" || cfg.ChannelID == "" {
		return nil, ErrMissingCredentials
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	encoder, err := gopus.NewEncoder(audio.DiscordSampleRate, audio.DiscordChannels, gopus.Voip)
	if err != nil {
		return nil, err
	}

	return &VoiceManager{
		session:     session,
		cfg:         cfg,
		logger:      logger,
		opusEncoder: encoder,
	}, nil
}

// Open opens the Discord session.
func (vm *VoiceManager) Open() error {
	return vm.session.Open()
}

// Close leaves voice and closes the session.
func (vm *VoiceManager) Close() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.voiceConnection != nil {
		vm.voiceConnection.Disconnect()
		vm.voiceConnection = nil
	}
	if vm.session == nil {
		return nil
	}
	return vm.session.Close()
}

// Connect joins the configured voice channel if not already joined.
func (vm *VoiceManager) Connect(ctx context.Context) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.voiceConnection != nil {
		return nil
	}
	if vm.session == nil {
		return ErrConnectionFailed
	}

	vm.logger.Info("joining voice channel", "guild_id", vm.cfg.GuildID, "channel_id", vm.cfg.ChannelID)

	// Deafened: the bot only speaks.
	vc, err := vm.session.ChannelVoiceJoin(vm.cfg.GuildID, vm.cfg.ChannelID, false, true)
	if err != nil {
		return errors.Join(ErrConnectionFailed, err)
	}
	if err := waitReady(ctx, vc); err != nil {
		vc.Disconnect()
		return err
	}

	vm.voiceConnection = vc
	vm.logger.Info("voice channel joined")
	return nil
}

// waitReady polls vc.Ready, which discordgo only exposes as a bool.
func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	ctx, cancel := context.WithTimeout(ctx, voiceConnectTimeout)
	defer cancel()

	poll := time.NewTicker(voiceConnectPollInterval)
	defer poll.Stop()

	for !vc.Ready {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrConnectionFailed
			}
			return ctx.Err()
		case <-poll.C:
		}
	}
	return nil
}

// Disconnect leaves the voice channel.
func (vm *VoiceManager) Disconnect() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.voiceConnection == nil {
		return nil
	}

	vm.logger.Info("disconnecting from voice channel")
	err := vm.voiceConnection.Disconnect()
	vm.voiceConnection = nil
	return err
}

// IsConnected reports whether a voice connection is held.
func (vm *VoiceManager) IsConnected() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.voiceConnection != nil
}

// SendAudio paces 48kHz stereo s16le PCM into the channel as one opus
// frame per 20ms tick. A frame that fails to encode is skipped.
func (vm *VoiceManager) SendAudio(ctx context.Context, pcmData []byte) error {
	vm.mu.Lock()
	vc := vm.voiceConnection
	vm.mu.Unlock()

	if vc == nil {
		return ErrNotConnected
	}

	vm.setSpeaking(vc, true)
	defer vm.setSpeaking(vc, false)

	frames := audio.NewFrameReader(pcmData)
	vm.logger.Debug("sending audio", "frames", frames.Frames())

	tick := time.NewTicker(frameDuration)
	defer tick.Stop()

	for {
		frame, err := frames.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		packet, err := vm.encodeOpus(frame)
		if err != nil {
			vm.logger.Warn("dropping frame", "error", err)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case vc.OpusSend <- packet:
		}
	}
}

func (vm *VoiceManager) setSpeaking(vc *discordgo.VoiceConnection, on bool) {
	if err := vc.Speaking(on); err != nil {
		vm.logger.Warn("speaking state not updated", "speaking", on, "error", err)
	}
}

// encodeOpus encodes one 20ms stereo frame.
func (vm *VoiceManager) encodeOpus(frame []byte) ([]byte, error) {
	pcm := make([]int16, len(frame)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(frame[2*i:]))
	}
	return vm.opusEncoder.Encode(pcm, audio.DiscordFrameSize, maxOpusDataBytes)
}
