package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"upc/internal/csharp"
	"upc/internal/errors"
	"upc/internal/stablehash"
)

var resolveDefines []string

var resolveCmd = &cobra.Command{
	Use:   "resolve <file.cs>",
	Short: "Show which class a script resolves to",
	Long: `Parse a C# file the way compile does and print the class it resolves to,
its local identifier, and every class declaration found.

Examples:
  upc resolve Assets/Game/Player.cs
  upc resolve Assets/Game/Player.cs --defines UNITY_EDITOR`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringSliceVar(&resolveDefines, "defines", nil, "Preprocessor symbols")
	rootCmd.AddCommand(resolveCmd)
}

// ResolveResponseCLI is the output of resolve.
type ResolveResponseCLI struct {
	File         string               `json:"file"`
	Namespace    string               `json:"namespace,omitempty"`
	Name         string               `json:"name,omitempty"`
	FullName     string               `json:"fullName,omitempty"`
	FileID       int32                `json:"fileID,omitempty"`
	Skip         csharp.SkipReason    `json:"skip,omitempty"`
	Declarations []csharp.Declaration `json:"declarations"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.IOFailure, "read "+path, err)
	}

	ctx, cancel := newContext()
	defer cancel()

	r := csharp.NewResolver(resolveDefines)
	res, err := r.Resolve(ctx, source, filepath.Base(path))
	if err != nil {
		return resolverError(err)
	}
	decls, err := r.Declarations(ctx, source)
	if err != nil {
		return resolverError(err)
	}

	resp := &ResolveResponseCLI{
		File:         path,
		Skip:         res.Skip,
		Declarations: decls,
	}
	if !res.Skipped() {
		resp.Namespace = res.Namespace
		resp.Name = res.Name
		resp.FullName = res.FullName()
		resp.FileID = stablehash.Compute(res.Namespace, res.Name)
	}
	return printOutput(cmd.OutOrStdout(), resp)
}

func resolverError(err error) error {
	if err == csharp.ErrUnavailable {
		return errors.New(errors.ResolverUnavailable, "C# resolver unavailable", err)
	}
	return errors.New(errors.InternalError, "resolve failed", err)
}
