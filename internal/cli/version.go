package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"crier/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.GetInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "crier %s\n", info.Version)
			fmt.Fprintf(out, " - git: %s\n", version.GetShortCommit())
			fmt.Fprintf(out, " - built: %s\n", info.BuildDate)
		},
	}
}
