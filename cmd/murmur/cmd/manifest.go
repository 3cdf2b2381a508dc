package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/murmur/internal/staging"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [dir]",
	Short: "Write the asset manifest for a directory",
	Long: `Lists every file below dir (default: ASSET_ROOT) and writes the list to
the manifest file at the top of dir, one relative path per line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	dir := cfg.AssetRoot
	if len(args) == 1 {
		dir = args[0]
	}

	entries, err := staging.WriteManifest(dir)
	if err != nil {
		return err
	}

	logger.Info("manifest written", "dir", dir, "entries", len(entries))
	fmt.Fprintf(cmd.OutOrStdout(), "%d entries written to %s\n", len(entries), staging.ManifestFile)
	return nil
}
