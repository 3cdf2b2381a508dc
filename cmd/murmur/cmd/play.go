package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/wav"
)

var playFlags struct {
	sink string
}

var playCmd = &cobra.Command{
	Use:   "play <file.wav>",
	Short: "Play a 16-bit PCM WAV file through the configured sink",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playFlags.sink, "sink", "", "playback sink (portaudio, discord, null)")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("sink") {
			c.Sink = playFlags.sink
		}
	})
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	clip, err := wav.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, logger: logger}
	if err := a.buildSink(); err != nil {
		return err
	}
	defer a.Close()

	logger.Info("playing file", "path", args[0], "duration", clip.Duration(), "sample_rate", clip.SampleRate)
	return a.sink.Play(ctx, clip)
}
