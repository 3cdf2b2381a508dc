package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"LOG_LEVEL", "LOG_FORMAT", "HTTP_PORT", "BEARER_TOKEN",
	"ASSET_SOURCE", "ASSET_ROOT", "ASSET_ARCHIVE", "NATS_URL", "NATS_BUCKET",
	"STAGE_ON_START", "STAGE_SUBFOLDER", "DATA_ROOT",
	"PROFILES_FILE", "PROFILE", "WATCH_PROFILES", "NUM_THREADS", "PROVIDER",
	"PIPER_PATH", "STREAMING", "STREAM_THRESHOLD", "SINK", "WAV_DIR",
	"AUTO_LEAVE_IDLE", "MAX_TEXT_LENGTH", "QUEUE_CAPACITY", "DEFAULT_TTL",
	"DISCORD_TOKEN", "GUILD_ID", "DEFAULT_VOICE_CHANNEL_ID",
}

// clearEnv blanks every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func validConfig() *Config {
	return Default()
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.AssetSource != SourceDir {
		t.Errorf("AssetSource = %s, want dir", cfg.AssetSource)
	}
	if cfg.AssetRoot != "assets" {
		t.Errorf("AssetRoot = %s, want assets", cfg.AssetRoot)
	}
	if cfg.StageSubfolder != "models" {
		t.Errorf("StageSubfolder = %s, want models", cfg.StageSubfolder)
	}
	if cfg.Sink != SinkPortAudio {
		t.Errorf("Sink = %s, want portaudio", cfg.Sink)
	}
	if cfg.PiperPath != "piper" {
		t.Errorf("PiperPath = %s, want piper", cfg.PiperPath)
	}
	if cfg.StreamThreshold != 2*time.Second {
		t.Errorf("StreamThreshold = %v, want 2s", cfg.StreamThreshold)
	}
	if cfg.AutoLeaveIdle != 5*time.Minute {
		t.Errorf("AutoLeaveIdle = %v, want 5m", cfg.AutoLeaveIdle)
	}
	if cfg.MaxTextLength != 1000 {
		t.Errorf("MaxTextLength = %d, want 1000", cfg.MaxTextLength)
	}
	if cfg.QueueCapacity != 100 {
		t.Errorf("QueueCapacity = %d, want 100", cfg.QueueCapacity)
	}
	if cfg.DefaultTTL != 30*time.Second {
		t.Errorf("DefaultTTL = %v, want 30s", cfg.DefaultTTL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %s, want text", cfg.LogFormat)
	}
	if !cfg.AuthDisabled() {
		t.Error("AuthDisabled() = false, want true without a bearer token")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SINK", "discord")
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("GUILD_ID", "123456")
	t.Setenv("DEFAULT_VOICE_CHANNEL_ID", "789012")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("AUTO_LEAVE_IDLE", "10m")
	t.Setenv("MAX_TEXT_LENGTH", "500")
	t.Setenv("QUEUE_CAPACITY", "50")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("STREAMING", "true")
	t.Setenv("PROFILE", "theresa")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DiscordToken != "test-token" {
		t.Errorf("DiscordToken = %s, want test-token", cfg.DiscordToken)
	}
	if cfg.GuildID != "123456" {
		t.Errorf("GuildID = %s, want 123456", cfg.GuildID)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.AuthDisabled() {
		t.Error("AuthDisabled() = true, want false")
	}
	if cfg.AutoLeaveIdle != 10*time.Minute {
		t.Errorf("AutoLeaveIdle = %v, want 10m", cfg.AutoLeaveIdle)
	}
	if cfg.MaxTextLength != 500 {
		t.Errorf("MaxTextLength = %d, want 500", cfg.MaxTextLength)
	}
	if cfg.QueueCapacity != 50 {
		t.Errorf("QueueCapacity = %d, want 50", cfg.QueueCapacity)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %s, want json", cfg.LogFormat)
	}
	if !cfg.Streaming {
		t.Error("Streaming = false, want true")
	}
	if cfg.Profile != "theresa" {
		t.Errorf("Profile = %s, want theresa", cfg.Profile)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "murmur.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log_level = "warn"
http_port = 7070
asset_source = "zip"
asset_archive = "voices.zip"
data_root = "/var/lib/murmur"
sink = "wav"
wav_dir = "/tmp/out"
stream_threshold = "1500ms"
default_ttl = "1m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn", cfg.LogLevel)
	}
	if cfg.HTTPPort != 7070 {
		t.Errorf("HTTPPort = %d, want 7070", cfg.HTTPPort)
	}
	if cfg.AssetSource != SourceZip {
		t.Errorf("AssetSource = %s, want zip", cfg.AssetSource)
	}
	if cfg.StreamThreshold != 1500*time.Millisecond {
		t.Errorf("StreamThreshold = %v, want 1.5s", cfg.StreamThreshold)
	}
	if cfg.DefaultTTL != time.Minute {
		t.Errorf("DefaultTTL = %v, want 1m", cfg.DefaultTTL)
	}
	if got := cfg.ModelRoot(); got != "/var/lib/murmur" {
		t.Errorf("ModelRoot() = %s, want /var/lib/murmur", got)
	}
	// untouched keys keep their defaults
	if cfg.QueueCapacity != 100 {
		t.Errorf("QueueCapacity = %d, want 100", cfg.QueueCapacity)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "http_port = 7070\nlog_format = \"json\"\n")
	t.Setenv("HTTP_PORT", "6060")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != 6060 {
		t.Errorf("HTTPPort = %d, want 6060", cfg.HTTPPort)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %s, want json", cfg.LogFormat)
	}
}

func TestLoad_UnknownFileKey(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "http_port = 7070\nvoice_colour = \"blue\"\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "voice_colour") {
		t.Errorf("error = %v, want it to name voice_colour", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestStageRoot_NormalizesSubfolder(t *testing.T) {
	cfg := validConfig()
	cfg.DataRoot = "data"

	for _, sub := range []string{"models", "models/", `models\`, " models ", `models\\`} {
		cfg.StageSubfolder = sub
		if got, want := cfg.StageRoot(), filepath.Join("data", "models"); got != want {
			t.Errorf("StageRoot() for %q = %s, want %s", sub, got, want)
		}
	}

	cfg.StageSubfolder = `models\vits `
	if got, want := cfg.StageRoot(), filepath.Join("data", "models", "vits"); got != want {
		t.Errorf("StageRoot() = %s, want %s", got, want)
	}
}

func TestDefaultDataRoot(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", filepath.Join("xdg", "share"))
	if got, want := defaultDataRoot(), filepath.Join("xdg", "share", "murmur"); got != want {
		t.Errorf("defaultDataRoot() = %s, want %s", got, want)
	}
}

func TestModelRoot(t *testing.T) {
	cfg := validConfig()
	cfg.AssetRoot = "assets"
	cfg.StageSubfolder = "models/"
	cfg.DataRoot = "data"

	if got := cfg.ModelRoot(); got != "assets" {
		t.Errorf("ModelRoot() = %s, want assets", got)
	}
	if got, want := cfg.StageRoot(), filepath.Join("data", "models"); got != want {
		t.Errorf("StageRoot() = %s, want %s", got, want)
	}
	if cfg.Staged() {
		t.Error("Staged() = true for an unstaged dir source")
	}

	cfg.StageOnStart = true
	if got := cfg.ModelRoot(); got != "data" {
		t.Errorf("ModelRoot() with staging = %s, want data", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"invalid HTTP port", func(c *Config) { c.HTTPPort = 0 }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "invalid" }, true},
		{"invalid log format", func(c *Config) { c.LogFormat = "invalid" }, true},
		{"invalid max text length", func(c *Config) { c.MaxTextLength = 0 }, true},
		{"invalid queue capacity", func(c *Config) { c.QueueCapacity = 0 }, true},
		{"invalid num threads", func(c *Config) { c.NumThreads = 0 }, true},
		{"negative ttl", func(c *Config) { c.DefaultTTL = -time.Second }, true},
		{"unknown asset source", func(c *Config) { c.AssetSource = "ftp" }, true},
		{"dir without root", func(c *Config) { c.AssetRoot = "" }, true},
		{"zip without archive", func(c *Config) { c.AssetSource = SourceZip }, true},
		{"zip with archive", func(c *Config) {
			c.AssetSource = SourceZip
			c.AssetArchive = "voices.zip"
		}, false},
		{"nats without url", func(c *Config) { c.AssetSource = SourceNATS }, true},
		{"nats with url", func(c *Config) {
			c.AssetSource = SourceNATS
			c.NATSURL = "nats://127.0.0.1:4222"
		}, false},
		{"staging without data root", func(c *Config) {
			c.StageOnStart = true
			c.DataRoot = ""
		}, true},
		{"unknown sink", func(c *Config) { c.Sink = "speaker" }, true},
		{"wav without dir", func(c *Config) {
			c.Sink = SinkWAV
			c.WAVDir = ""
		}, true},
		{"discord without credentials", func(c *Config) { c.Sink = SinkDiscord }, true},
		{"discord with credentials", func(c *Config) {
			c.Sink = SinkDiscord
			c.DiscordToken = "token"
			c.GuildID = "1"
			c.DefaultVoiceChannelID = "2"
		}, false},
		{"null sink", func(c *Config) { c.Sink = SinkNull }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvString(t *testing.T) {
	os.Setenv("TEST_STRING", "value")
	defer os.Unsetenv("TEST_STRING")

	if got := getEnvString("TEST_STRING", "default"); got != "value" {
		t.Errorf("getEnvString() = %s, want value", got)
	}

	if got := getEnvString("NONEXISTENT", "default"); got != "default" {
		t.Errorf("getEnvString() = %s, want default", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")

	if got := getEnvInt("TEST_INT", 0); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}

	if got := getEnvInt("NONEXISTENT", 10); got != 10 {
		t.Errorf("getEnvInt() = %d, want 10", got)
	}

	os.Setenv("TEST_INT_INVALID", "not-a-number")
	defer os.Unsetenv("TEST_INT_INVALID")

	if got := getEnvInt("TEST_INT_INVALID", 10); got != 10 {
		t.Errorf("getEnvInt() = %d, want 10 for invalid input", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_BOOL_INVALID", "maybe")

	if got := getEnvBool("TEST_BOOL", false); !got {
		t.Error("getEnvBool() = false, want true")
	}
	if got := getEnvBool("NONEXISTENT", true); !got {
		t.Error("getEnvBool() = false, want default true")
	}
	if got := getEnvBool("TEST_BOOL_INVALID", true); !got {
		t.Error("getEnvBool() = false, want default true for invalid input")
	}
}

func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "5m")
	defer os.Unsetenv("TEST_DURATION")

	if got := getEnvDuration("TEST_DURATION", time.Second); got != 5*time.Minute {
		t.Errorf("getEnvDuration() = %v, want 5m", got)
	}

	if got := getEnvDuration("NONEXISTENT", 10*time.Second); got != 10*time.Second {
		t.Errorf("getEnvDuration() = %v, want 10s", got)
	}

	os.Setenv("TEST_DURATION_INVALID", "not-a-duration")
	defer os.Unsetenv("TEST_DURATION_INVALID")

	if got := getEnvDuration("TEST_DURATION_INVALID", 10*time.Second); got != 10*time.Second {
		t.Errorf("getEnvDuration() = %v, want 10s for invalid input", got)
	}
}
