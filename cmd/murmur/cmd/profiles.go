package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/murmur/internal/client"
	"github.com/dgnsrekt/murmur/internal/profile"
)

var profilesFlags struct {
	server string
	token  string
	file   string
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List voice profiles",
	Long: `Lists the voice profiles from PROFILES_FILE (or the built-in profile), or
from a running server with --server.`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

var profilesSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Switch a running server to another profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesSelect,
}

func init() {
	f := profilesCmd.PersistentFlags()
	f.StringVar(&profilesFlags.server, "server", "", "murmur server URL")
	f.StringVar(&profilesFlags.token, "token", os.Getenv("BEARER_TOKEN"), "bearer token for --server")
	profilesCmd.Flags().StringVar(&profilesFlags.file, "file", "", "profiles file (default: PROFILES_FILE)")
	profilesCmd.AddCommand(profilesSelectCmd)
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if profilesFlags.server != "" {
		resp, err := client.New(profilesFlags.server, profilesFlags.token, logger).Profiles(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range resp.Profiles {
			marker := " "
			if name == resp.Active {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, name)
		}
		return nil
	}

	path := cfg.ProfilesFile
	if cmd.Flags().Changed("file") {
		path = profilesFlags.file
	}
	reg, err := profile.Load(path)
	if err != nil {
		return err
	}
	def, _ := reg.Default()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tBACKEND\tSPEAKER\tSPEED\tMODEL")
	for _, p := range reg.List() {
		marker := ""
		if p.Name == def.Name {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\n", marker, p.Name, p.BackendName(), p.SpeakerID, p.Speed, p.Model)
	}
	return tw.Flush()
}

func runProfilesSelect(cmd *cobra.Command, args []string) error {
	if profilesFlags.server == "" {
		return fmt.Errorf("--server is required to select a profile")
	}
	_, logger, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	if err := client.New(profilesFlags.server, profilesFlags.token, logger).SelectProfile(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "active profile: %s\n", args[0])
	return nil
}
