package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"upc/internal/config"
	"upc/internal/errors"
	"upc/internal/pipeline"
	"upc/internal/slogutil"
	"upc/internal/version"
)

var (
	configFlag  string
	verboseFlag int
	quietFlag   bool
	logFileFlag string
	formatFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "upc",
	Short: "upc - Unity script precompiler",
	Long: `upc moves a Unity project's scripts into precompiled modules.

It copies the project without its scripts, installs one compiled module
per assembly definition, and rewrites every serialized reference to a
script so it points at the class inside its module instead.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if loggerFactory != nil {
			_ = loggerFactory.Close()
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate("upc version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: upc.{json,yaml,toml} in the working directory or .upc/)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Suppress logs and progress output")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (human, json)")
}

var loggerFactory *slogutil.LoggerFactory

// configBindings maps config keys to the flag names that override them.
var configBindings = map[string]string{
	"src":             "src",
	"dst":             "dst",
	"filterDir":       "filter",
	"keepTargetFiles": "keep",
	"defines":         "defines",
	"configuration":   "configuration",
	"pluginsDir":      "plugins",
	"build.enabled":   "build",
	"workers":         "workers",
	"dryRun":          "dry-run",
	"backup":          "backup",
	"ledger":          "ledger",
}

// loadConfig reads the configuration with the command's flags applied
// and validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithFlags(wd, configFlag, cmd.Flags(), configBindings)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "load configuration", err)
	}
	if f := cmd.Flags().Lookup("extensions"); f != nil && f.Changed {
		cfg.Extensions = strings.Fields(f.Value.String())
	}
	if logFileFlag != "" {
		cfg.Logging.File = logFileFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}
	return cfg, nil
}

// newLogger creates the process logger. Logs go to stderr so stdout
// stays parseable with --format json.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	cliSet := verboseFlag > 0 || quietFlag
	loggerFactory = slogutil.NewLoggerFactory(cfg, slogutil.LevelFromVerbosity(verboseFlag, quietFlag), cliSet)
	logger, err := loggerFactory.Logger(os.Stderr)
	if err != nil {
		logger.Warn("Could not open log file", "file", cfg.File, "error", err)
	}
	return logger
}

// newConsole returns the progress console for human output.
func newConsole() *pipeline.Console {
	if quietFlag || OutputFormat(formatFlag) == FormatJSON {
		return pipeline.DiscardConsole()
	}
	return pipeline.NewConsole(os.Stdout)
}

// newContext returns a context cancelled on interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// requireDst fails when no destination project was given.
func requireDst(cfg *config.Config) error {
	if cfg.Dst == "" {
		return errors.New(errors.ConfigInvalid, "destination project required (-d or dst)", nil)
	}
	return nil
}

// requireSrc fails when no source project was given.
func requireSrc(cfg *config.Config) error {
	if cfg.Src == "" {
		return errors.New(errors.ConfigInvalid, "source project required (-s or src)", nil)
	}
	return nil
}

func printOutput(w io.Writer, resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	if out != "" {
		_, err = io.WriteString(w, out+"\n")
	}
	return err
}
