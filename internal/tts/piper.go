package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dgnsrekt/murmur/internal/audio"
)

// PiperDefaultSampleRate is used when a model has no readable .onnx.json.
const PiperDefaultSampleRate = 22050

// ErrPiperNotFound is returned when the piper binary is not found.
var ErrPiperNotFound = errors.New("piper binary not found")

// PiperEngine runs the piper binary once per request.
type PiperEngine struct {
	binary      string
	model       string
	lengthScale float32
	sampleRate  int
	logger      *slog.Logger
}

// PiperFactory returns a Factory that runs the given piper binary.
func PiperFactory(binary string) Factory {
	return func(cfg EngineConfig, logger *slog.Logger) (Engine, error) {
		return NewPiperEngine(binary, cfg, logger)
	}
}

// NewPiperEngine checks that the binary can be found and reads the model's
// sample rate from its JSON sidecar.
func NewPiperEngine(binary string, cfg EngineConfig, logger *slog.Logger) (*PiperEngine, error) {
	if binary == "" {
		binary = "piper"
	}

	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPiperNotFound, binary)
	}

	lengthScale := cfg.LengthScale
	if lengthScale <= 0 {
		lengthScale = 1
	}

	return &PiperEngine{
		binary:      binary,
		model:       cfg.Model,
		lengthScale: lengthScale,
		sampleRate:  piperSampleRate(cfg.Model, logger),
		logger:      logger,
	}, nil
}

// piperSampleRate reads audio.sample_rate from <model>.json.
func piperSampleRate(model string, logger *slog.Logger) int {
	data, err := os.ReadFile(model + ".json")
	if err != nil {
		return PiperDefaultSampleRate
	}

	var sidecar struct {
		Audio struct {
			SampleRate int `json:"sample_rate"`
		} `json:"audio"`
	}
	if err := json.Unmarshal(data, &sidecar); err != nil || sidecar.Audio.SampleRate <= 0 {
		logger.Warn("unreadable piper model config, assuming default sample rate",
			"model", model,
			"sample_rate", PiperDefaultSampleRate,
		)
		return PiperDefaultSampleRate
	}
	return sidecar.Audio.SampleRate
}

// Name returns the engine identifier.
func (p *PiperEngine) Name() string {
	return "piper"
}

// SampleRate returns the model's output rate.
func (p *PiperEngine) SampleRate() int {
	return p.sampleRate
}

// Generate pipes the text through piper and decodes its raw 16-bit output.
func (p *PiperEngine) Generate(ctx context.Context, req Request) (*Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	args := []string{
		"--model", p.model,
		"--output-raw",
	}
	if req.SpeakerID > 0 {
		args = append(args, "--speaker", strconv.Itoa(req.SpeakerID))
	}
	if req.Speed > 0 {
		scale := p.lengthScale / req.Speed
		args = append(args, "--length_scale", strconv.FormatFloat(float64(scale), 'f', 3, 32))
	}

	p.logger.Debug("running piper",
		"binary", p.binary,
		"model", p.model,
		"speaker_id", req.SpeakerID,
		"text_length", len(req.Text),
	)

	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Error("piper failed",
			"error", err,
			"stderr", stderr.String(),
		)
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	p.logger.Debug("piper synthesis complete", "output_bytes", stdout.Len())

	return &Audio{
		Samples:    audio.PCM16ToFloat32(stdout.Bytes()),
		SampleRate: p.sampleRate,
	}, nil
}

// Close is a no-op; piper runs as a short-lived process per request.
func (p *PiperEngine) Close() error {
	return nil
}
