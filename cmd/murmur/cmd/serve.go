package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/murmur/internal/api"
	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/profile"
	"github.com/dgnsrekt/murmur/internal/queue"
)

var serveFlags struct {
	sink      string
	profile   string
	port      int
	streaming bool
	watch     bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and speech queue",
	Long: `Stages assets (when enabled), loads the default voice profile and then
accepts speech requests over HTTP. Requests are queued and spoken one at
a time.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.sink, "sink", "", "playback sink (portaudio, wav, discord, null)")
	f.StringVar(&serveFlags.profile, "profile", "", "voice profile to load at startup")
	f.IntVar(&serveFlags.port, "port", 0, "HTTP port")
	f.BoolVar(&serveFlags.streaming, "streaming", false, "start playback before synthesis finishes")
	f.BoolVar(&serveFlags.watch, "watch", false, "reload the profiles file when it changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, func(c *config.Config) {
		f := cmd.Flags()
		if f.Changed("sink") {
			c.Sink = serveFlags.sink
		}
		if f.Changed("profile") {
			c.Profile = serveFlags.profile
		}
		if f.Changed("port") {
			c.HTTPPort = serveFlags.port
		}
		if f.Changed("streaming") {
			c.Streaming = serveFlags.streaming
		}
		if f.Changed("watch") {
			c.WatchProfiles = serveFlags.watch
		}
	})
	if err != nil {
		return err
	}

	logger.Info("starting murmur", "version", version)
	if cfg.AuthDisabled() {
		logger.Warn("HTTP bearer authentication is disabled (BEARER_TOKEN is empty)")
	}
	logger.Info("configuration loaded",
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"http_port", cfg.HTTPPort,
		"asset_source", cfg.AssetSource,
		"model_root", cfg.ModelRoot(),
		"sink", cfg.Sink,
		"streaming", cfg.Streaming,
		"queue_capacity", cfg.QueueCapacity,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	speechQueue := queue.NewQueue(cfg.QueueCapacity, cfg.AutoLeaveIdle, logger)
	speechQueue.SetPlaybackHandler(a.ctl.HandleJob)
	speechQueue.SetJobCompletedCallback(func(job *queue.SpeakJob) {
		logger.Info("job finished", "job_id", job.ID, "status", string(job.Status), "error", job.Error)
	})
	if a.voice != nil {
		speechQueue.SetIdleCallback(func() {
			logger.Info("queue idle, disconnecting from voice channel")
			if err := a.voice.Disconnect(); err != nil {
				logger.Error("failed to disconnect from voice", "error", err)
			}
		})
		speechQueue.SetShutdownCallback(func() {
			if a.voice.IsConnected() {
				if err := a.voice.Disconnect(); err != nil {
					logger.Error("failed to disconnect from voice during shutdown", "error", err)
				}
			}
		})
	}
	speechQueue.Start()
	defer speechQueue.Stop()

	server := api.New(cfg, logger, speechQueue, a.ctl)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.WatchProfiles && cfg.ProfilesFile != "" {
		watcher := profile.NewWatcher(cfg.ProfilesFile, logger, func(reg *profile.Registry) {
			if cfg.Profile != "" {
				if err := reg.SetDefault(cfg.Profile); err != nil {
					logger.Warn("reloaded profiles lack the configured default", "profile", cfg.Profile)
				}
			}
			a.ctl.SetRegistry(reg)
		})
		g.Go(func() error { return watcher.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", "error", err)
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
