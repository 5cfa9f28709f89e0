package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pulse/internal/cli/style"
	"pulse/internal/web"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show pulse version and build details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := web.CurrentBuildInfo()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s\n", style.Bold.Render("pulse"), info.Version)
		fmt.Fprintln(w, style.KV("commit", info.GitCommit))
		fmt.Fprintln(w, style.KV("built", info.BuildTime))
		fmt.Fprintln(w, style.KV("go", fmt.Sprintf("%s %s/%s", info.GoVersion, info.GoOS, info.GoArch)))
		fmt.Fprintln(w, style.KV("api", cfg.API.BaseURL+"/"+cfg.API.Version))
		return nil
	},
}
