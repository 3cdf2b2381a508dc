package tts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// modelDir lays out a complete VITS model directory.
func modelDir(t *testing.T) (string, EngineConfig) {
	t.Helper()
	dir := t.TempDir()

	for _, name := range []string{"model.onnx", "lexicon.txt", "tokens.txt", "phone.fst", "date.fst"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "dict"), 0o755); err != nil {
		t.Fatalf("mkdir dict: %v", err)
	}

	cfg := DefaultEngineConfig()
	cfg.Model = filepath.Join(dir, "model.onnx")
	cfg.Lexicon = filepath.Join(dir, "lexicon.txt")
	cfg.Tokens = filepath.Join(dir, "tokens.txt")
	cfg.DictDir = filepath.Join(dir, "dict")
	cfg.RuleFsts = []string{filepath.Join(dir, "phone.fst"), filepath.Join(dir, "date.fst")}
	return dir, cfg
}

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()

	if cfg.NoiseScale != 0.667 {
		t.Errorf("expected noise scale 0.667, got %v", cfg.NoiseScale)
	}
	if cfg.NoiseScaleW != 0.8 {
		t.Errorf("expected noise scale w 0.8, got %v", cfg.NoiseScaleW)
	}
	if cfg.LengthScale != 1.0 {
		t.Errorf("expected length scale 1.0, got %v", cfg.LengthScale)
	}
	if cfg.Provider != "cpu" {
		t.Errorf("expected provider cpu, got %q", cfg.Provider)
	}
	if cfg.MaxNumSentences != 1 {
		t.Errorf("expected 1 sentence, got %d", cfg.MaxNumSentences)
	}
}

func TestEngineConfig_RuleFstsList(t *testing.T) {
	cfg := EngineConfig{RuleFsts: []string{"a/phone.fst", "a/date.fst", "a/number.fst"}}
	if got := cfg.RuleFstsList(); got != "a/phone.fst,a/date.fst,a/number.fst" {
		t.Errorf("unexpected rule fsts %q", got)
	}
	if got := (EngineConfig{}).RuleFstsList(); got != "" {
		t.Errorf("expected empty list, got %q", got)
	}
}

func TestEngineConfig_Validate(t *testing.T) {
	_, cfg := modelDir(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected complete config to validate, got %v", err)
	}
}

func TestEngineConfig_Validate_Missing(t *testing.T) {
	dir, base := modelDir(t)

	tests := []struct {
		name   string
		mutate func(*EngineConfig)
		want   string
	}{
		{"no model", func(c *EngineConfig) { c.Model = "" }, "model"},
		{"missing lexicon", func(c *EngineConfig) { c.Lexicon = filepath.Join(dir, "nope.txt") }, "lexicon"},
		{"missing dict dir", func(c *EngineConfig) { c.DictDir = filepath.Join(dir, "nodict") }, "dict dir"},
		{"dict dir is a file", func(c *EngineConfig) { c.DictDir = filepath.Join(dir, "tokens.txt") }, "dict dir"},
		{"model is a directory", func(c *EngineConfig) { c.Model = filepath.Join(dir, "dict") }, "model"},
		{"missing rule fst", func(c *EngineConfig) {
			c.RuleFsts = append(append([]string{}, c.RuleFsts...), filepath.Join(dir, "number.fst"))
		}, "number.fst"},
		{"missing data dir", func(c *EngineConfig) { c.DataDir = filepath.Join(dir, "espeak") }, "data dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrMissingPath) {
				t.Fatalf("expected ErrMissingPath, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error to mention %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestNewSherpaEngine_RequiresTokens(t *testing.T) {
	_, cfg := modelDir(t)
	cfg.Tokens = ""

	_, err := NewSherpaEngine(cfg, testLogger())
	if !errors.Is(err, ErrMissingPath) {
		t.Errorf("expected ErrMissingPath, got %v", err)
	}
}
