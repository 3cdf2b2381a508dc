package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/murmur/internal/tts"
)

func TestBuiltin(t *testing.T) {
	p := Builtin()

	require.NoError(t, p.Validate())
	assert.Equal(t, "theresa", p.Name)
	assert.Equal(t, tts.BackendSherpa, p.BackendName())
	assert.Equal(t, 804, p.SpeakerID)
	assert.Equal(t, float32(1), p.Speed)
	assert.Len(t, p.RuleFsts, 3)
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"empty name", func(p *Profile) { p.Name = " " }},
		{"no model", func(p *Profile) { p.Model = "" }},
		{"no tokens", func(p *Profile) { p.Tokens = "" }},
		{"zero speed", func(p *Profile) { p.Speed = 0 }},
		{"negative speed", func(p *Profile) { p.Speed = -1 }},
		{"negative speaker", func(p *Profile) { p.SpeakerID = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Builtin()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidProfile)
		})
	}
}

func TestProfile_Validate_PiperWithoutTokens(t *testing.T) {
	p := Profile{Name: "amy", Backend: tts.BackendPiper, Model: "voices/amy.onnx", Speed: 1}
	assert.NoError(t, p.Validate())
}

func TestProfile_EngineConfig(t *testing.T) {
	root := filepath.Join("data", "root")
	defaults := tts.DefaultEngineConfig()

	cfg := Builtin().EngineConfig(root, defaults)

	assert.Equal(t, filepath.Join(root, "models", "vits-zh-hf-theresa", "theresa.onnx"), cfg.Model)
	assert.Equal(t, filepath.Join(root, "models", "vits-zh-hf-theresa", "dict"), cfg.DictDir)
	assert.Empty(t, cfg.DataDir)
	require.Len(t, cfg.RuleFsts, 3)
	assert.Equal(t, filepath.Join(root, "models", "vits-zh-hf-theresa", "number.fst"), cfg.RuleFsts[2])
	assert.Equal(t, 12, cfg.NumThreads)
	assert.Equal(t, defaults.Provider, cfg.Provider)
	assert.Equal(t, defaults.NoiseScale, cfg.NoiseScale)
}

func TestProfile_EngineConfig_DoesNotAliasDefaults(t *testing.T) {
	defaults := tts.DefaultEngineConfig()
	defaults.RuleFsts = []string{"shared.fst"}

	_ = Builtin().EngineConfig("root", defaults)
	assert.Equal(t, []string{"shared.fst"}, defaults.RuleFsts)
}

func TestBuildPath(t *testing.T) {
	abs, err := filepath.Abs("model.onnx")
	require.NoError(t, err)

	assert.Empty(t, BuildPath("root", ""))
	assert.Equal(t, filepath.Join("root", "a", "b.txt"), BuildPath("root", "a/b.txt"))
	assert.Equal(t, abs, BuildPath("root", abs))
}

func TestProfile_Request(t *testing.T) {
	req := Builtin().Request("你好")
	assert.Equal(t, tts.Request{Text: "你好", SpeakerID: 804, Speed: 1}, req)
}
