package main

import (
	"github.com/spf13/cobra"

	"upc/internal/csharp"
	"upc/internal/stablehash"
)

var hashCmd = &cobra.Command{
	Use:   "hash <namespace> <type-name>",
	Short: "Print the local identifier of a class inside a module",
	Long: `Print the identifier a precompiled module gives a class. Use "" for the
global namespace and '+' between nested type names.

Examples:
  upc hash Game.Core Player
  upc hash "" Outer+Inner`,
	Args: cobra.ExactArgs(2),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

// HashResponseCLI is the output of hash.
type HashResponseCLI struct {
	Namespace string `json:"namespace"`
	TypeName  string `json:"typeName"`
	FullName  string `json:"fullName"`
	FileID    int32  `json:"fileID"`
}

func runHash(cmd *cobra.Command, args []string) error {
	return printOutput(cmd.OutOrStdout(), &HashResponseCLI{
		Namespace: args[0],
		TypeName:  args[1],
		FullName:  csharp.FullName(args[0], args[1]),
		FileID:    stablehash.Compute(args[0], args[1]),
	})
}
