package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"upc/internal/config"
	"upc/internal/errors"
	"upc/internal/modules"
	"upc/internal/paths"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the modules compile would build",
	Long: `Discover assembly definitions and MODULES.toml declarations under the
source Assets directory and show which scripts each module owns once
nested modules have claimed theirs. Nothing is parsed or written.

Examples:
  upc modules -s ./Game
  upc modules -s ./Game -f Scripts --format json
  upc modules -s ./Game --init`,
	Args: cobra.NoArgs,
	RunE: runModules,
}

func init() {
	modulesCmd.Flags().StringP("src", "s", "", "Source project directory")
	modulesCmd.Flags().StringP("filter", "f", "", "Only scan this directory under Assets")
	modulesCmd.Flags().StringP("configuration", "c", "Debug", "Build configuration")
	modulesCmd.Flags().Bool("init", false, "Write a starter MODULES.toml and upc.json, then exit")
	rootCmd.AddCommand(modulesCmd)
}

// ModulesResponseCLI is the output of modules.
type ModulesResponseCLI struct {
	ScanRoot string          `json:"scanRoot"`
	Modules  []ModuleInfoCLI `json:"modules"`
}

// ModuleInfoCLI describes one discovered module.
type ModuleInfoCLI struct {
	Name          string   `json:"name"`
	Definition    string   `json:"definition"`
	ScopeDir      string   `json:"scopeDir"`
	Binary        string   `json:"binary"`
	BinaryPresent bool     `json:"binaryPresent"`
	Files         []string `json:"files"`
}

func runModules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireSrc(cfg); err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	scanRoot := paths.NewLayout(cfg.Src).Assets()
	if cfg.FilterDir != "" {
		scanRoot = filepath.Join(scanRoot, filepath.FromSlash(cfg.FilterDir))
	}
	if initFile, _ := cmd.Flags().GetBool("init"); initFile {
		return initProject(cfg, scanRoot, logger)
	}

	binDir := filepath.FromSlash(cfg.ResolvedBinaryDir())
	if !filepath.IsAbs(binDir) {
		binDir = filepath.Join(cfg.Src, binDir)
	}

	mods, err := modules.Discover(modules.DiscoverOptions{
		ScanRoot:  scanRoot,
		BinaryDir: binDir,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	for _, m := range mods {
		sources, err := modules.CollectSources(m.ScopeDir)
		if err != nil {
			return err
		}
		m.Files = make([]*modules.SourceFile, len(sources))
		for i, s := range sources {
			m.Files[i] = &modules.SourceFile{Path: s}
		}
	}
	if err := modules.ResolveHierarchy(mods, scanRoot); err != nil {
		return err
	}

	resp := &ModulesResponseCLI{ScanRoot: scanRoot}
	for _, m := range mods {
		_, statErr := os.Stat(m.BinaryPath)
		resp.Modules = append(resp.Modules, ModuleInfoCLI{
			Name:          m.Name,
			Definition:    m.DefinitionPath,
			ScopeDir:      m.ScopeDir,
			Binary:        m.BinaryPath,
			BinaryPresent: statErr == nil,
			Files:         m.FilePaths(),
		})
	}
	return printOutput(cmd.OutOrStdout(), resp)
}

// initProject writes a starter MODULES.toml into scanRoot and, when no
// config file is in use, the effective configuration as upc.json in the
// working directory.
func initProject(cfg *config.Config, scanRoot string, logger *slog.Logger) error {
	path := filepath.Join(scanRoot, modules.ModulesDeclarationFile)
	if _, err := os.Stat(path); err == nil {
		return errors.New(errors.ConfigInvalid, path+" already exists", nil)
	}
	if err := modules.CreateExampleModulesFile(path); err != nil {
		return errors.New(errors.IOFailure, "can't write "+path, err)
	}
	logger.Info("Wrote module declarations", "path", path)

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if configFlag != "" || hasConfigFile(wd) {
		return nil
	}
	cfgPath := filepath.Join(wd, "upc.json")
	if err := cfg.Save(cfgPath); err != nil {
		return errors.New(errors.IOFailure, "can't write "+cfgPath, err)
	}
	logger.Info("Wrote configuration", "path", cfgPath)
	return nil
}

func hasConfigFile(dir string) bool {
	for _, d := range []string{dir, filepath.Join(dir, paths.StateDir)} {
		if m, _ := filepath.Glob(filepath.Join(d, "upc.*")); len(m) > 0 {
			return true
		}
	}
	return false
}
