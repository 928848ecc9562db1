package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"upc/internal/csharp"
	"upc/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, version.Full())
		if !csharp.IsAvailable() {
			fmt.Fprintln(out, "C# resolver: unavailable (built without cgo)")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
