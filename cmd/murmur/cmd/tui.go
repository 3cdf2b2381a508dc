package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/logging"
	"github.com/dgnsrekt/murmur/internal/tui"
)

var tuiFlags struct {
	sink    string
	logFile string
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive voice picker and text box",
	Long: `Loads the voice profiles in-process and opens a terminal UI.

Navigation:
  ↑/↓     - switch voice profile
  Tab     - move between text, speaker and speed
  Enter   - speak the text
  Esc     - stop playback
  Ctrl+C  - quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiFlags.sink, "sink", "", "playback sink (portaudio, wav, null)")
	tuiCmd.Flags().StringVar(&tuiFlags.logFile, "log-file", "", "write logs here instead of discarding them")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("sink") {
			c.Sink = tuiFlags.sink
		}
	})
	if err != nil {
		return err
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if tuiFlags.logFile != "" {
		f, err := tea.LogToFile(tuiFlags.logFile, "murmur")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewWithWriter(logOut, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(tui.New(ctx, a.ctl), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
