// Package config loads murmur's settings from defaults, an optional TOML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dgnsrekt/murmur/internal/staging"
)

// Asset sources.
const (
	SourceDir  = "dir"
	SourceZip  = "zip"
	SourceNATS = "nats"
)

// Playback sinks.
const (
	SinkPortAudio = "portaudio"
	SinkWAV       = "wav"
	SinkDiscord   = "discord"
	SinkNull      = "null"
)

// Config holds all application configuration.
type Config struct {
	// Logging settings
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// HTTP settings
	HTTPPort    int    `toml:"http_port"`
	BearerToken string `toml:"bearer_token"`

	// Asset settings
	AssetSource    string `toml:"asset_source"`
	AssetRoot      string `toml:"asset_root"`
	AssetArchive   string `toml:"asset_archive"`
	NATSURL        string `toml:"nats_url"`
	NATSBucket     string `toml:"nats_bucket"`
	StageOnStart   bool   `toml:"stage_on_start"`
	StageSubfolder string `toml:"stage_subfolder"`
	DataRoot       string `toml:"data_root"`

	// Voice settings
	ProfilesFile    string        `toml:"profiles_file"`
	Profile         string        `toml:"profile"`
	WatchProfiles   bool          `toml:"watch_profiles"`
	NumThreads      int           `toml:"num_threads"`
	Provider        string        `toml:"provider"`
	PiperPath       string        `toml:"piper_path"`
	Streaming       bool          `toml:"streaming"`
	StreamThreshold time.Duration `toml:"stream_threshold"`

	// Playback settings
	Sink   string `toml:"sink"`
	WAVDir string `toml:"wav_dir"`

	// Behavior settings
	AutoLeaveIdle time.Duration `toml:"auto_leave_idle"`
	MaxTextLength int           `toml:"max_text_length"`
	QueueCapacity int           `toml:"queue_capacity"`
	DefaultTTL    time.Duration `toml:"default_ttl"`

	// Discord settings, required when Sink is discord
	DiscordToken          string `toml:"discord_token"`
	GuildID               string `toml:"guild_id"`
	DefaultVoiceChannelID string `toml:"default_voice_channel_id"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",

		HTTPPort: 8080,

		AssetSource:    SourceDir,
		AssetRoot:      "assets",
		NATSBucket:     "murmur-assets",
		StageSubfolder: "models",
		DataRoot:       defaultDataRoot(),

		NumThreads:      2,
		Provider:        "cpu",
		PiperPath:       "piper",
		StreamThreshold: 2 * time.Second,

		Sink:   SinkPortAudio,
		WAVDir: "out",

		AutoLeaveIdle: 5 * time.Minute,
		MaxTextLength: 1000,
		QueueCapacity: 100,
		DefaultTTL:    30 * time.Second,
	}
}

// defaultDataRoot follows XDG_DATA_HOME, falling back to ~/.local/share.
func defaultDataRoot() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "murmur")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "murmur")
	}
	return "data"
}

// Load builds the configuration: defaults, then the TOML file at path (if
// path is non-empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config: decode %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config: unknown keys in %q: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)

	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.BearerToken = getEnvString("BEARER_TOKEN", c.BearerToken)

	c.AssetSource = getEnvString("ASSET_SOURCE", c.AssetSource)
	c.AssetRoot = getEnvString("ASSET_ROOT", c.AssetRoot)
	c.AssetArchive = getEnvString("ASSET_ARCHIVE", c.AssetArchive)
	c.NATSURL = getEnvString("NATS_URL", c.NATSURL)
	c.NATSBucket = getEnvString("NATS_BUCKET", c.NATSBucket)
	c.StageOnStart = getEnvBool("STAGE_ON_START", c.StageOnStart)
	c.StageSubfolder = getEnvString("STAGE_SUBFOLDER", c.StageSubfolder)
	c.DataRoot = getEnvString("DATA_ROOT", c.DataRoot)

	c.ProfilesFile = getEnvString("PROFILES_FILE", c.ProfilesFile)
	c.Profile = getEnvString("PROFILE", c.Profile)
	c.WatchProfiles = getEnvBool("WATCH_PROFILES", c.WatchProfiles)
	c.NumThreads = getEnvInt("NUM_THREADS", c.NumThreads)
	c.Provider = getEnvString("PROVIDER", c.Provider)
	c.PiperPath = getEnvString("PIPER_PATH", c.PiperPath)
	c.Streaming = getEnvBool("STREAMING", c.Streaming)
	c.StreamThreshold = getEnvDuration("STREAM_THRESHOLD", c.StreamThreshold)

	c.Sink = getEnvString("SINK", c.Sink)
	c.WAVDir = getEnvString("WAV_DIR", c.WAVDir)

	c.AutoLeaveIdle = getEnvDuration("AUTO_LEAVE_IDLE", c.AutoLeaveIdle)
	c.MaxTextLength = getEnvInt("MAX_TEXT_LENGTH", c.MaxTextLength)
	c.QueueCapacity = getEnvInt("QUEUE_CAPACITY", c.QueueCapacity)
	c.DefaultTTL = getEnvDuration("DEFAULT_TTL", c.DefaultTTL)

	c.DiscordToken = getEnvString("DISCORD_TOKEN", c.DiscordToken)
	c.GuildID = getEnvString("GUILD_ID", c.GuildID)
	c.DefaultVoiceChannelID = getEnvString("DEFAULT_VOICE_CHANNEL_ID", c.DefaultVoiceChannelID)
}

// AuthDisabled returns true if bearer token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.BearerToken == ""
}

// Staged reports whether assets are copied into DataRoot before use.
// Archive and object store sources are always staged.
func (c *Config) Staged() bool {
	return c.StageOnStart || c.AssetSource != SourceDir
}

// ModelRoot is the directory profile paths resolve against: DataRoot when
// assets are staged, the asset directory itself otherwise.
func (c *Config) ModelRoot() string {
	if c.Staged() {
		return c.DataRoot
	}
	return c.AssetRoot
}

// StageRoot is where the staging subfolder is copied to. Staging strips the
// subfolder prefix from each entry, so the copy lands below the same
// subfolder in DataRoot and profile paths resolve identically.
func (c *Config) StageRoot() string {
	return filepath.Join(c.DataRoot, filepath.FromSlash(staging.NormalizeSubfolder(c.StageSubfolder)))
}

// Validate checks that configuration values are usable together.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return errors.New("HTTP_PORT must be between 1 and 65535")
	}

	if c.MaxTextLength < 1 {
		return errors.New("MAX_TEXT_LENGTH must be at least 1")
	}

	if c.QueueCapacity < 1 {
		return errors.New("QUEUE_CAPACITY must be at least 1")
	}

	if c.AutoLeaveIdle < 0 {
		return errors.New("AUTO_LEAVE_IDLE must be non-negative")
	}

	if c.DefaultTTL < 0 {
		return errors.New("DEFAULT_TTL must be non-negative")
	}

	if c.NumThreads < 1 {
		return errors.New("NUM_THREADS must be at least 1")
	}

	if c.StreamThreshold < 0 {
		return errors.New("STREAM_THRESHOLD must be non-negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	switch c.AssetSource {
	case SourceDir:
		if c.AssetRoot == "" {
			return errors.New("ASSET_ROOT is required when ASSET_SOURCE is dir")
		}
	case SourceZip:
		if c.AssetArchive == "" {
			return errors.New("ASSET_ARCHIVE is required when ASSET_SOURCE is zip")
		}
	case SourceNATS:
		if c.NATSURL == "" || c.NATSBucket == "" {
			return errors.New("NATS_URL and NATS_BUCKET are required when ASSET_SOURCE is nats")
		}
	default:
		return errors.New("ASSET_SOURCE must be one of: dir, zip, nats")
	}

	if c.Staged() && c.DataRoot == "" {
		return errors.New("DATA_ROOT is required when staging assets")
	}

	switch c.Sink {
	case SinkPortAudio, SinkNull:
	case SinkWAV:
		if c.WAVDir == "" {
			return errors.New("WAV_DIR is required when SINK is wav")
		}
	case SinkDiscord:
		if c.DiscordToken == "" || c.GuildID == "" || c.DefaultVoiceChannelID == "" {
			return errors.New("DISCORD_TOKEN, GUILD_ID and DEFAULT_VOICE_CHANNEL_ID are required when SINK is discord")
		}
	default:
		return errors.New("SINK must be one of: portaudio, wav, discord, null")
	}

	return nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
