package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/staging"
)

var pushFlags struct {
	url    string
	bucket string
}

var pushCmd = &cobra.Command{
	Use:   "push [dir]",
	Short: "Upload an asset directory to a NATS object store",
	Long: `Uploads every file below dir (default: ASSET_ROOT) to the JetStream object
store bucket NATS_BUCKET, creating the bucket when needed, followed by a
freshly generated manifest. Servers with ASSET_SOURCE=nats stage from it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPush,
}

func init() {
	f := pushCmd.Flags()
	f.StringVar(&pushFlags.url, "nats-url", "", "NATS server URL")
	f.StringVar(&pushFlags.bucket, "bucket", "", "object store bucket")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, func(c *config.Config) {
		f := cmd.Flags()
		if f.Changed("nats-url") {
			c.NATSURL = pushFlags.url
		}
		if f.Changed("bucket") {
			c.NATSBucket = pushFlags.bucket
		}
	})
	if err != nil {
		return err
	}
	if cfg.NATSURL == "" {
		return errors.New("NATS_URL is required to push assets")
	}

	dir := cfg.AssetRoot
	if len(args) == 1 {
		dir = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, js, err := connectJetStream(cfg, logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	store, err := staging.CreateObjectStoreSource(js, cfg.NATSBucket)
	if err != nil {
		return err
	}

	n, err := store.Push(ctx, dir)
	if err != nil {
		return fmt.Errorf("push stopped after %d assets: %w", n, err)
	}

	logger.Info("assets pushed", "dir", dir, "bucket", store.Bucket(), "assets", n)
	fmt.Fprintf(cmd.OutOrStdout(), "%d assets pushed to %s\n", n, store.Bucket())
	return nil
}
