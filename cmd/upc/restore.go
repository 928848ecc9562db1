package main

import (
	"github.com/spf13/cobra"

	"upc/internal/rewrite"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Write back the documents saved by fixup --backup",
	Long: `Restore every document in a fixup backup archive to its original bytes.

Examples:
  upc restore ./Game.Precompiled/.upc/backups/<run-id>.tar.zst`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

// RestoreResponseCLI is the output of restore.
type RestoreResponseCLI struct {
	Archive  string   `json:"archive"`
	Restored []string `json:"restored"`
}

func runRestore(cmd *cobra.Command, args []string) error {
	restored, err := rewrite.Restore(args[0])
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), &RestoreResponseCLI{Archive: args[0], Restored: restored})
}
