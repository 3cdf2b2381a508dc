package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/dgnsrekt/murmur/internal/audio"
	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/controller"
	"github.com/dgnsrekt/murmur/internal/discord"
	"github.com/dgnsrekt/murmur/internal/playback"
	"github.com/dgnsrekt/murmur/internal/profile"
	"github.com/dgnsrekt/murmur/internal/staging"
	"github.com/dgnsrekt/murmur/internal/tts"
)

// app is the local speech stack shared by serve, speak and tui.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *profile.Registry
	sink     playback.Sink
	voice    *discord.VoiceManager
	ctl      *controller.Controller
	closers  []func() error
}

// newApp stages assets when configured, loads the profiles, builds the sink
// and the controller, then configures the default profile. Staging failures
// and a profile that fails to load are logged; the controller is then left
// Uninitialized and retries on the first synthesis.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Staged() {
		if err := stageAssets(ctx, cfg, logger, []string{cfg.StageSubfolder}); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Error("asset staging failed, continuing with what is on disk", "error", err)
		}
	}

	registry, err := profile.Load(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}
	if cfg.Profile != "" {
		if err := registry.SetDefault(cfg.Profile); err != nil {
			return nil, err
		}
	}
	a.registry = registry

	if err := a.buildSink(); err != nil {
		a.Close()
		return nil, err
	}

	defaults := tts.DefaultEngineConfig()
	defaults.NumThreads = cfg.NumThreads
	defaults.Provider = cfg.Provider

	a.ctl = controller.New(registry, a.sink,
		controller.WithLogger(logger),
		controller.WithBackends(tts.DefaultBackends(cfg.PiperPath)),
		controller.WithModelRoot(cfg.ModelRoot()),
		controller.WithEngineDefaults(defaults),
		controller.WithStreaming(cfg.Streaming),
		controller.WithStreamThreshold(cfg.StreamThreshold),
	)
	a.closers = append([]func() error{a.ctl.Close}, a.closers...)

	def, err := registry.Default()
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.ctl.Configure(ctx, def.Name); err != nil {
		logger.Warn("default profile not loaded", "profile", def.Name, "error", err)
	}

	return a, nil
}

func (a *app) buildSink() error {
	switch a.cfg.Sink {
	case config.SinkPortAudio:
		sink, err := playback.NewPortAudioSink(a.logger)
		if err != nil {
			return err
		}
		a.sink = sink
		a.closers = append(a.closers, sink.Close)
	case config.SinkWAV:
		sink, err := playback.NewWAVSink(a.cfg.WAVDir, a.logger)
		if err != nil {
			return err
		}
		a.sink = sink
	case config.SinkDiscord:
		conv, err := audio.NewConverter()
		if err != nil {
			return err
		}
		vm, err := discord.NewVoiceManager(discord.VoiceConfig{
			Token:     a.cfg.DiscordToken,
			GuildID:   a.cfg.GuildID,
			ChannelID: a.cfg.DefaultVoiceChannelID,
		}, a.logger)
		if err != nil {
			return err
		}
		if err := vm.Open(); err != nil {
			return fmt.Errorf("failed to open Discord session: %w", err)
		}
		a.voice = vm
		a.sink = discord.NewSink(vm, conv, a.logger)
		a.closers = append(a.closers, vm.Close)
		a.logger.Info("Discord session opened")
	case config.SinkNull:
		a.sink = playback.NewNullSink(true)
	default:
		return fmt.Errorf("unknown sink %q", a.cfg.Sink)
	}
	return nil
}

// Close releases the controller first, then the sink and its session.
func (a *app) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openSource opens the configured asset source. The returned close function
// is never nil.
func openSource(cfg *config.Config, logger *slog.Logger) (staging.Source, func(), error) {
	switch cfg.AssetSource {
	case config.SourceDir:
		return staging.NewDirSource(cfg.AssetRoot), func() {}, nil
	case config.SourceZip:
		src, err := staging.OpenZipSource(cfg.AssetArchive, "")
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	case config.SourceNATS:
		nc, js, err := connectJetStream(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		src, err := staging.NewObjectStoreSource(js, cfg.NATSBucket)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return src, nc.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown asset source %q", cfg.AssetSource)
	}
}

func connectJetStream(cfg *config.Config, logger *slog.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("murmur"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}
	logger.Debug("connected to NATS", "url", cfg.NATSURL, "bucket", cfg.NATSBucket)
	return nc, js, nil
}

// stageAssets copies each subfolder below DataRoot under its own name.
func stageAssets(ctx context.Context, cfg *config.Config, logger *slog.Logger, subfolders []string) error {
	src, closeSrc, err := openSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

	stage := *cfg
	targets := make([]staging.Target, 0, len(subfolders))
	for _, sub := range subfolders {
		stage.StageSubfolder = sub
		targets = append(targets, staging.Target{Subfolder: sub, Root: stage.StageRoot()})
	}

	reports, err := staging.NewStager(src, logger).StageAll(ctx, targets)
	if err != nil {
		return fmt.Errorf("staging failed: %w", err)
	}

	for _, r := range reports {
		if r.Failed > 0 {
			logger.Warn("some assets were not staged", "subfolder", r.Subfolder, "failed", r.Failed)
		}
	}
	return nil
}
