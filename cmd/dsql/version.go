package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/dsql/internal/config"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show dsql version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dsql v%s\n", version)

		if verbose {
			fmt.Fprintln(cmd.OutOrStdout(), "\nComponents:")
			fmt.Fprintf(cmd.OutOrStdout(), "  CLI:    v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  Config: v%s\n", config.Version)
			if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "  Go:     %s\n", info.GoVersion)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
