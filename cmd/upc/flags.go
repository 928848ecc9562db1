package main

import (
	"github.com/spf13/cobra"

	"upc/internal/config"
)

// Flag groups shared by the pipeline commands.
const (
	copyFlags = 1 << iota
	compileFlags
	fixupFlags
)

// addProjectFlags registers the flags of the given groups on cmd. Values
// are read back through the config layer, so defaults here are only what
// --help shows.
func addProjectFlags(cmd *cobra.Command, groups int) {
	d := config.DefaultConfig()
	f := cmd.Flags()

	if groups&(copyFlags|compileFlags) != 0 {
		f.StringP("src", "s", "", "Source project directory")
		f.StringP("filter", "f", "", "Only process this directory under Assets")
	}
	f.StringP("dst", "d", "", "Destination project directory")

	if groups&copyFlags != 0 {
		f.BoolP("keep", "k", d.KeepTargetFiles, "Keep destination files that are not in the source")
	}
	if groups&(compileFlags|fixupFlags) != 0 {
		f.StringP("plugins", "p", d.PluginsDir, "Plugins directory under Assets for precompiled modules")
		f.Int("workers", d.Workers, "Concurrent workers")
		f.Bool("ledger", d.Ledger, "Record runs in the destination ledger")
	}
	if groups&compileFlags != 0 {
		f.StringSlice("defines", nil, "Preprocessor symbols used when reading scripts")
		f.StringP("configuration", "c", d.Configuration, "Build configuration")
		f.Bool("build", d.Build.Enabled, "Build each module with build.command first")
	}
	if groups&fixupFlags != 0 {
		f.StringP("extensions", "x", "", `Document extensions to rewrite, space separated (e.g. "unity prefab")`)
		f.Bool("dry-run", d.DryRun, "Report what fixup would change without writing")
		f.Bool("backup", d.Backup, "Archive documents before rewriting them")
	}
}
