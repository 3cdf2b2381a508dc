package profile

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a profiles file.
//
// Example:
//
//	default: theresa
//	profiles:
//	  - name: theresa
//	    backend: sherpa
//	    model: models/vits-zh-hf-theresa/theresa.onnx
//	    lexicon: models/vits-zh-hf-theresa/lexicon.txt
//	    tokens: models/vits-zh-hf-theresa/tokens.txt
//	    dict_dir: models/vits-zh-hf-theresa/dict
//	    speaker_id: 804
//	    speed: 1
type File struct {
	Default  string    `yaml:"default"`
	Profiles []Profile `yaml:"profiles"`
}

// LoadFile reads a profiles file and builds a registry from it.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("profile: open %q: %w", path, err)
	}
	defer f.Close()

	reg, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("profile: load %q: %w", path, err)
	}
	return reg, nil
}

// LoadReader parses profiles YAML. Unknown keys are rejected.
func LoadReader(r io.Reader) (*Registry, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("profile: decode yaml: %w", err)
	}

	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("%w: no profiles defined", ErrInvalidProfile)
	}

	reg, err := NewRegistry(file.Profiles...)
	if err != nil {
		return nil, err
	}
	if file.Default != "" {
		if err := reg.SetDefault(file.Default); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Load returns the registry from path, or the builtin profile when path is
// empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(Builtin())
	}
	return LoadFile(path)
}
