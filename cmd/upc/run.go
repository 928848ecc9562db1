package main

import (
	"github.com/spf13/cobra"

	"upc/internal/pipeline"
)

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy a project without its scripts",
	Long: `Mirror Assets (without .cs and .asmdef files and their .meta files),
ProjectSettings and Packages from the source project into the destination.

Destination files that are not in the source are removed unless -k is given.

Examples:
  upc copy -s ./Game -d ./Game.Precompiled
  upc copy -s ./Game -d ./Game.Precompiled -f Scripts/Core -k`,
	Args: cobra.NoArgs,
	RunE: runCopy,
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Install precompiled modules into the destination",
	Long: `Discover the assembly definitions of the source project, give every
module a fresh identity and install its binary, plugin .meta and .map
into the destination plugins directory.

Examples:
  upc compile -s ./Game -d ./Game.Precompiled --defines UNITY_EDITOR,DEBUG
  upc compile -s ./Game -d ./Game.Precompiled --build -c Release`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

var fixupCmd = &cobra.Command{
	Use:   "fixup",
	Short: "Point script references at precompiled modules",
	Long: `Load the module maps from the destination plugins directory and rewrite
every script reference in the destination's scenes, prefabs and assets.

Examples:
  upc fixup -d ./Game.Precompiled
  upc fixup -d ./Game.Precompiled -x "unity prefab" --dry-run
  upc fixup -d ./Game.Precompiled --backup`,
	Args: cobra.NoArgs,
	RunE: runFixup,
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run copy, compile and fixup",
	Args:  cobra.NoArgs,
	RunE:  runAll,
}

func init() {
	addProjectFlags(copyCmd, copyFlags)
	addProjectFlags(compileCmd, compileFlags)
	addProjectFlags(fixupCmd, fixupFlags)
	addProjectFlags(allCmd, copyFlags|compileFlags|fixupFlags)

	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(fixupCmd)
	rootCmd.AddCommand(allCmd)
}

// newPipeline loads the configuration and builds a pipeline for cmd.
func newPipeline(cmd *cobra.Command, needSrc bool) (*pipeline.Pipeline, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	if needSrc {
		if err := requireSrc(cfg); err != nil {
			return nil, "", err
		}
	}
	if err := requireDst(cfg); err != nil {
		return nil, "", err
	}
	logger := newLogger(cfg.Logging)
	return pipeline.New(cfg, logger, pipeline.WithConsole(newConsole())), cfg.Dst, nil
}

func runCopy(cmd *cobra.Command, args []string) error {
	p, _, err := newPipeline(cmd, true)
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	res, err := p.Copy(ctx)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), &CopyResponseCLI{Trees: res.Trees})
}

func runCompile(cmd *cobra.Command, args []string) error {
	p, _, err := newPipeline(cmd, true)
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	res, err := p.Compile(ctx)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), &CompileResponseCLI{Compile: res})
}

func runFixup(cmd *cobra.Command, args []string) error {
	p, dst, err := newPipeline(cmd, false)
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	res, err := p.Fixup(ctx)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), &FixupResponseCLI{Dst: dst, Fixup: res})
}

func runAll(cmd *cobra.Command, args []string) error {
	p, dst, err := newPipeline(cmd, true)
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	res, err := p.All(ctx)
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), &AllResponseCLI{
		Copy:    &CopyResponseCLI{Trees: res.Copy.Trees},
		Compile: &CompileResponseCLI{Compile: res.Compile},
		Fixup:   &FixupResponseCLI{Dst: dst, Fixup: res.Fixup},
	})
}
