package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/murmur/internal/config"
	"github.com/dgnsrekt/murmur/internal/staging"
)

var stageFlags struct {
	source  string
	dataDir string
	list    bool
}

var stageCmd = &cobra.Command{
	Use:   "stage [subfolder...]",
	Short: "Copy voice assets into the data directory",
	Long: `Copies every manifest entry below each subfolder (default: the configured
STAGE_SUBFOLDER) from the asset source into DATA_ROOT. Files that already
exist are left alone. With --list the matching entries are printed
instead.`,
	RunE: runStage,
}

func init() {
	f := stageCmd.Flags()
	f.StringVar(&stageFlags.source, "source", "", "asset source (dir, zip, nats)")
	f.StringVar(&stageFlags.dataDir, "data-dir", "", "destination data root")
	f.BoolVar(&stageFlags.list, "list", false, "print matching manifest entries and exit")
	rootCmd.AddCommand(stageCmd)
}

func runStage(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, func(c *config.Config) {
		f := cmd.Flags()
		if f.Changed("source") {
			c.AssetSource = stageFlags.source
		}
		if f.Changed("data-dir") {
			c.DataRoot = stageFlags.dataDir
		}
	})
	if err != nil {
		return err
	}

	subfolders := args
	if len(subfolders) == 0 {
		subfolders = []string{cfg.StageSubfolder}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !stageFlags.list {
		return stageAssets(ctx, cfg, logger, subfolders)
	}

	src, closeSrc, err := openSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSrc()

	stager := staging.NewStager(src, logger)
	out := cmd.OutOrStdout()
	for _, sub := range subfolders {
		entries, err := stager.ListHierarchy(ctx, sub)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			fmt.Fprintln(out, entry)
		}
	}
	return nil
}
