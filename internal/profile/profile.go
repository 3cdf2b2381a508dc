// Package profile describes the voices murmur can speak with.
//
// A profile names a backend, the model files it needs (relative to the
// model root unless absolute) and the speaker and speed used by default.
// Profiles are loaded from YAML; Builtin returns the one that ships with
// the asset bundle.
package profile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/murmur/internal/tts"
)

var (
	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrDuplicateProfile is returned when two profiles share a name.
	ErrDuplicateProfile = errors.New("duplicate profile")
	// ErrProfileNotFound is returned when looking up an unknown profile.
	ErrProfileNotFound = errors.New("profile not found")
)

// Profile is a named engine configuration plus its default request
// parameters.
type Profile struct {
	Name       string   `yaml:"name" json:"name"`
	Backend    string   `yaml:"backend" json:"backend"`
	Model      string   `yaml:"model" json:"model"`
	Lexicon    string   `yaml:"lexicon,omitempty" json:"lexicon,omitempty"`
	Tokens     string   `yaml:"tokens" json:"tokens"`
	DataDir    string   `yaml:"data_dir,omitempty" json:"data_dir,omitempty"`
	DictDir    string   `yaml:"dict_dir,omitempty" json:"dict_dir,omitempty"`
	RuleFsts   []string `yaml:"rule_fsts,omitempty" json:"rule_fsts,omitempty"`
	SpeakerID  int      `yaml:"speaker_id" json:"speaker_id"`
	Speed      float32  `yaml:"speed" json:"speed"`
	NumThreads int      `yaml:"num_threads,omitempty" json:"num_threads,omitempty"`
	Provider   string   `yaml:"provider,omitempty" json:"provider,omitempty"`
}

// Builtin returns the profile bundled with the default asset tree.
func Builtin() Profile {
	const dir = "models/vits-zh-hf-theresa"
	return Profile{
		Name:    "theresa",
		Backend: tts.BackendSherpa,
		Model:   dir + "/theresa.onnx",
		Lexicon: dir + "/lexicon.txt",
		Tokens:  dir + "/tokens.txt",
		DictDir: dir + "/dict",
		RuleFsts: []string{
			dir + "/phone.fst",
			dir + "/date.fst",
			dir + "/number.fst",
		},
		SpeakerID:  804,
		Speed:      1,
		NumThreads: 12,
	}
}

// Validate checks the fields that can be checked without touching disk.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if p.Model == "" {
		return fmt.Errorf("%w: %s: model is required", ErrInvalidProfile, p.Name)
	}
	if p.Tokens == "" && p.backend() == tts.BackendSherpa {
		return fmt.Errorf("%w: %s: tokens is required", ErrInvalidProfile, p.Name)
	}
	if p.Speed <= 0 {
		return fmt.Errorf("%w: %s: speed must be positive", ErrInvalidProfile, p.Name)
	}
	if p.SpeakerID < 0 {
		return fmt.Errorf("%w: %s: speaker_id must not be negative", ErrInvalidProfile, p.Name)
	}
	if p.NumThreads < 0 {
		return fmt.Errorf("%w: %s: num_threads must not be negative", ErrInvalidProfile, p.Name)
	}
	return nil
}

func (p Profile) backend() string {
	if p.Backend == "" {
		return tts.BackendSherpa
	}
	return p.Backend
}

// BackendName returns the backend, defaulting to sherpa.
func (p Profile) BackendName() string {
	return p.backend()
}

// Request returns a request for text using the profile's speaker and speed.
func (p Profile) Request(text string) tts.Request {
	return tts.Request{Text: text, SpeakerID: p.SpeakerID, Speed: p.Speed}
}

// EngineConfig resolves the profile's paths against root and layers its
// thread and provider settings over defaults.
func (p Profile) EngineConfig(root string, defaults tts.EngineConfig) tts.EngineConfig {
	cfg := defaults
	cfg.Model = BuildPath(root, p.Model)
	cfg.Lexicon = BuildPath(root, p.Lexicon)
	cfg.Tokens = BuildPath(root, p.Tokens)
	cfg.DataDir = BuildPath(root, p.DataDir)
	cfg.DictDir = BuildPath(root, p.DictDir)

	cfg.RuleFsts = nil
	for _, fst := range p.RuleFsts {
		cfg.RuleFsts = append(cfg.RuleFsts, BuildPath(root, fst))
	}

	if p.NumThreads > 0 {
		cfg.NumThreads = p.NumThreads
	}
	if p.Provider != "" {
		cfg.Provider = p.Provider
	}
	return cfg
}

// BuildPath joins a forward-slash relative path onto root. Empty paths stay
// empty and absolute paths are returned unchanged.
func BuildPath(root, rel string) string {
	if rel == "" {
		return ""
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) {
		return native
	}
	return filepath.Join(root, native)
}
