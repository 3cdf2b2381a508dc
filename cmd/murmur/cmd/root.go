// Package cmd implements the murmur command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/logging"
)

const version = "0.1.0"

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "murmur",
	Short: "Offline text-to-speech with switchable voice profiles",
	Long: `murmur stages bundled voice models, loads one voice profile at a time
and speaks text through a local sound device, WAV files or a Discord
voice channel.

Commands:
  serve     - HTTP API and speech queue
  speak     - speak text once, locally or through a server
  tui       - interactive voice picker and text box
  stage     - copy voice assets into the data directory
  manifest  - write the asset manifest for a directory
  push      - upload an asset directory to a NATS object store
  profiles  - list or select voice profiles`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("MURMUR_CONFIG"), "TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "murmur: %v\n", err)
}

// loadConfig loads the configuration and applies the flags the user set.
// override may adjust command specific settings before validation.
func loadConfig(cmd *cobra.Command, override func(*config.Config)) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	return cfg, logger, nil
}
