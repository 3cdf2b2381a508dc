package tts

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissingPath is returned when a configured file or directory does not
// exist. The engine must not be constructed in that case.
var ErrMissingPath = errors.New("required path does not exist")

// EngineConfig holds everything needed to construct an engine.
type EngineConfig struct {
	Model    string
	Lexicon  string
	Tokens   string
	DataDir  string
	DictDir  string
	RuleFsts []string

	NoiseScale  float32
	NoiseScaleW float32
	LengthScale float32

	NumThreads      int
	Debug           bool
	Provider        string
	MaxNumSentences int
}

// DefaultEngineConfig returns the VITS defaults used for every profile
// unless overridden.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		NoiseScale:      0.667,
		NoiseScaleW:     0.8,
		LengthScale:     1.0,
		NumThreads:      2,
		Provider:        "cpu",
		MaxNumSentences: 1,
	}
}

// RuleFstsList joins the rule FSTs the way the engine expects them.
func (c EngineConfig) RuleFstsList() string {
	return strings.Join(c.RuleFsts, ",")
}

// Validate checks that a model is set and that every configured path
// exists with the right kind. Backends that need tokens check for them
// when constructed.
func (c EngineConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model path is empty", ErrMissingPath)
	}

	files := []pathCheck{
		{"model", c.Model},
		{"lexicon", c.Lexicon},
		{"tokens", c.Tokens},
	}
	for _, fst := range c.RuleFsts {
		files = append(files, pathCheck{"rule fst", fst})
	}
	for _, f := range files {
		if f.path == "" {
			continue
		}
		if err := requireFile(f.path); err != nil {
			return fmt.Errorf("%w: %s %s", ErrMissingPath, f.kind, f.path)
		}
	}

	for _, d := range []pathCheck{{"dict dir", c.DictDir}, {"data dir", c.DataDir}} {
		if d.path == "" {
			continue
		}
		if err := requireDir(d.path); err != nil {
			return fmt.Errorf("%w: %s %s", ErrMissingPath, d.kind, d.path)
		}
	}

	return nil
}

type pathCheck struct {
	kind string
	path string
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
