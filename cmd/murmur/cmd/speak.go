package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/murmur/internal/api"
	"github.com/dgnsrekt/murmur/internal/client"
	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/controller"
	"github.com/dgnsrekt/murmur/internal/playback"
	"github.com/dgnsrekt/murmur/internal/tts"
)

var speakFlags struct {
	server    string
	token     string
	profile   string
	speaker   int
	speed     float32
	sink      string
	wavDir    string
	streaming bool
	interrupt bool
	dedupe    bool
	wait      bool
}

var speakCmd = &cobra.Command{
	Use:   "speak [text...]",
	Short: "Speak text once",
	Long: `Speaks the given text, or standard input when no text is given.

Without --server the voice is loaded in-process and the command returns
once playback has finished. With --server the text is queued on a running
murmur server.`,
	RunE: runSpeak,
}

func init() {
	f := speakCmd.Flags()
	f.StringVar(&speakFlags.server, "server", "", "murmur server URL, e.g. http://localhost:8080")
	f.StringVar(&speakFlags.token, "token", os.Getenv("BEARER_TOKEN"), "bearer token for --server")
	f.StringVar(&speakFlags.profile, "profile", "", "voice profile")
	f.IntVar(&speakFlags.speaker, "speaker", -1, "speaker id (default: the profile's)")
	f.Float32Var(&speakFlags.speed, "speed", 0, "speech speed (default: the profile's)")
	f.StringVar(&speakFlags.sink, "sink", "", "playback sink (portaudio, wav, null)")
	f.StringVar(&speakFlags.wavDir, "wav-dir", "", "output directory for the wav sink")
	f.BoolVar(&speakFlags.streaming, "streaming", false, "start playback before synthesis finishes")
	f.BoolVar(&speakFlags.interrupt, "interrupt", false, "with --server: cancel current speech first")
	f.BoolVar(&speakFlags.dedupe, "dedupe", false, "with --server: drop the request if the same text is queued")
	f.BoolVar(&speakFlags.wait, "wait", false, "with --server: wait for the job to finish")
	rootCmd.AddCommand(speakCmd)
}

func speakText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text, err := speakText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text to speak")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if speakFlags.server != "" {
		return speakRemote(ctx, cmd, text)
	}
	return speakLocal(ctx, cmd, text)
}

func speakRemote(ctx context.Context, cmd *cobra.Command, text string) error {
	_, logger, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	c := client.New(speakFlags.server, speakFlags.token, logger)
	req := api.SpeakRequest{
		Text:      text,
		Profile:   speakFlags.profile,
		Speed:     speakFlags.speed,
		Interrupt: speakFlags.interrupt,
	}
	if speakFlags.speaker >= 0 {
		req.SpeakerID = &speakFlags.speaker
	}
	if speakFlags.dedupe {
		req.DedupeKey = client.DedupeKey(text)
	}

	id, err := c.Speak(ctx, req)
	if err != nil {
		return err
	}
	if !speakFlags.wait {
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	}

	job, err := c.Wait(ctx, id, 250*time.Millisecond)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, job.Status)
	if job.Status != "done" {
		return fmt.Errorf("job %s: %s", job.Status, job.Error)
	}
	return nil
}

func speakLocal(ctx context.Context, cmd *cobra.Command, text string) error {
	cfg, logger, err := loadConfig(cmd, func(c *config.Config) {
		f := cmd.Flags()
		if f.Changed("profile") {
			c.Profile = speakFlags.profile
		}
		if f.Changed("sink") {
			c.Sink = speakFlags.sink
		}
		if f.Changed("wav-dir") {
			c.WAVDir = speakFlags.wavDir
		}
		if f.Changed("streaming") {
			c.Streaming = speakFlags.streaming
		}
	})
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.ctl.SynthesizeWith(ctx, tts.Request{
		Text:      text,
		SpeakerID: speakFlags.speaker,
		Speed:     speakFlags.speed,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d samples at %d Hz (%s)\n",
		result.Outcome, result.Samples, result.SampleRate, result.Duration.Round(time.Millisecond))
	if wav, ok := a.sink.(*playback.WAVSink); ok && wav.LastFile() != "" {
		fmt.Fprintln(out, wav.LastFile())
	}

	switch result.Outcome {
	case controller.OutcomeFailed:
		return controller.ErrSpeechFailed
	case controller.OutcomeInterrupted:
		return context.Canceled
	}
	return nil
}
