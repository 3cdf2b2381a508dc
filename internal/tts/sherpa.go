package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// ErrEngineInit is returned when the native engine refuses the configuration.
var ErrEngineInit = errors.New("failed to create TTS engine")

// SherpaEngine runs VITS models through sherpa-onnx.
type SherpaEngine struct {
	mu         sync.Mutex
	tts        *sherpa.OfflineTts
	sampleRate int
	model      string
	logger     *slog.Logger
}

// NewSherpaEngine constructs the native engine. cfg must already have passed
// Validate.
func NewSherpaEngine(cfg EngineConfig, logger *slog.Logger) (Engine, error) {
	if cfg.Tokens == "" {
		return nil, fmt.Errorf("%w: tokens path is empty", ErrMissingPath)
	}

	ttsConfig := &sherpa.OfflineTtsConfig{}

	ttsConfig.Model.Vits.Model = cfg.Model
	ttsConfig.Model.Vits.Lexicon = cfg.Lexicon
	ttsConfig.Model.Vits.Tokens = cfg.Tokens
	ttsConfig.Model.Vits.DataDir = cfg.DataDir
	ttsConfig.Model.Vits.DictDir = cfg.DictDir
	ttsConfig.Model.Vits.NoiseScale = cfg.NoiseScale
	ttsConfig.Model.Vits.NoiseScaleW = cfg.NoiseScaleW
	ttsConfig.Model.Vits.LengthScale = cfg.LengthScale
	ttsConfig.Model.NumThreads = cfg.NumThreads
	ttsConfig.Model.Provider = cfg.Provider
	ttsConfig.Model.Debug = 0
	if cfg.Debug {
		ttsConfig.Model.Debug = 1
	}
	ttsConfig.RuleFsts = cfg.RuleFstsList()
	ttsConfig.MaxNumSentences = cfg.MaxNumSentences

	tts := sherpa.NewOfflineTts(ttsConfig)
	if tts == nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineInit, cfg.Model)
	}

	engine := &SherpaEngine{
		tts:        tts,
		sampleRate: tts.SampleRate(),
		model:      cfg.Model,
		logger:     logger,
	}

	logger.Debug("sherpa-onnx engine created",
		"model", cfg.Model,
		"sample_rate", engine.sampleRate,
		"num_threads", cfg.NumThreads,
		"provider", cfg.Provider,
	)

	return engine, nil
}

// Name returns the engine identifier.
func (s *SherpaEngine) Name() string {
	return "sherpa"
}

// SampleRate returns the rate reported by the model.
func (s *SherpaEngine) SampleRate() int {
	return s.sampleRate
}

// Generate synthesizes the whole request in one call.
func (s *SherpaEngine) Generate(ctx context.Context, req Request) (*Audio, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tts == nil {
		return nil, ErrEngineClosed
	}

	generated := s.tts.Generate(text, req.SpeakerID, req.Speed)
	if generated == nil {
		return nil, nil
	}

	rate := generated.SampleRate
	if rate == 0 {
		rate = s.sampleRate
	}
	return &Audio{Samples: generated.Samples, SampleRate: rate}, nil
}

// GenerateStream synthesizes sentence by sentence, handing each sentence's
// samples to onChunk as soon as it is ready.
func (s *SherpaEngine) GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) error {
	sentences := SplitSentences(req.Text)
	if len(sentences) == 0 {
		return ErrEmptyText
	}

	for _, sentence := range sentences {
		audio, err := s.Generate(ctx, Request{Text: sentence, SpeakerID: req.SpeakerID, Speed: req.Speed})
		if err != nil {
			return err
		}
		if audio.Empty() {
			s.logger.Debug("sentence produced no audio", "sentence_length", len(sentence))
			continue
		}
		if !onChunk(audio.Samples) {
			return nil
		}
	}
	return nil
}

// Close frees the native engine. It is safe to call more than once.
func (s *SherpaEngine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tts != nil {
		sherpa.DeleteOfflineTts(s.tts)
		s.tts = nil
	}
	return nil
}
