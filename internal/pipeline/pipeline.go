// Package pipeline runs the precompiler steps against a source and a
// destination project: copy, compile and fixup.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"upc/internal/config"
	"upc/internal/csharp"
	"upc/internal/errors"
	"upc/internal/modules"
	"upc/internal/paths"
	"upc/internal/storage"
	"upc/internal/toolchain"
	"upc/internal/version"
)

// BuildRunner builds module projects before compile.
type BuildRunner interface {
	Build(ctx context.Context, srcRoot string, targets []toolchain.Target) error
}

// Pipeline runs the steps with one configuration.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	console  *Console
	resolver modules.SymbolResolver
	runner   BuildRunner
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConsole sets where human progress output goes.
func WithConsole(c *Console) Option {
	return func(p *Pipeline) {
		p.console = c
	}
}

// WithResolver replaces the C# resolver.
func WithResolver(r modules.SymbolResolver) Option {
	return func(p *Pipeline) {
		p.resolver = r
	}
}

// WithBuildRunner replaces the external build runner.
func WithBuildRunner(r BuildRunner) Option {
	return func(p *Pipeline) {
		p.runner = r
	}
}

// New creates a pipeline.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pipeline{
		cfg:      cfg,
		logger:   logger,
		console:  DiscardConsole(),
		resolver: csharp.NewResolver(cfg.Defines),
		runner:   toolchain.NewRunner(cfg.Build, cfg.Configuration, logger, toolchain.WithBuildWorkers(cfg.Workers)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AllResult is the outcome of All.
type AllResult struct {
	Copy    *CopyResult    `json:"copy"`
	Compile *CompileResult `json:"compile"`
	Fixup   *FixupResult   `json:"fixup"`
}

// All runs copy, compile and fixup in order, stopping at the first error.
func (p *Pipeline) All(ctx context.Context) (*AllResult, error) {
	res := &AllResult{}
	var err error
	if res.Copy, err = p.Copy(ctx); err != nil {
		return res, err
	}
	if res.Compile, err = p.Compile(ctx); err != nil {
		return res, err
	}
	if res.Fixup, err = p.Fixup(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) srcLayout() paths.Layout { return paths.NewLayout(p.cfg.Src) }
func (p *Pipeline) dstLayout() paths.Layout { return paths.NewLayout(p.cfg.Dst) }

// subDir is Assets, or Assets/<filterDir> when a filter is set.
func (p *Pipeline) subDir(l paths.Layout) string {
	if p.cfg.FilterDir == "" {
		return l.Assets()
	}
	return filepath.Join(l.Assets(), filepath.FromSlash(p.cfg.FilterDir))
}

func requireDir(path, what string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.New(errors.IOFailure, "can't find "+what+" "+path, err)
	}
	if !info.IsDir() {
		return errors.Newf(errors.IOFailure, "%s %s is not a directory", what, path)
	}
	return nil
}

func newRunID() string {
	return uuid.NewString()
}

func (p *Pipeline) toolName() string {
	return "upc " + version.Version
}

// recordRun stores a run and whatever fn records for it in the ledger of
// the destination project. If fn fails the run is discarded. Nothing is
// recorded when the ledger is disabled.
func (p *Pipeline) recordRun(runID, kind string, started time.Time, fn func(db *storage.DB) error) error {
	if !p.cfg.Ledger {
		return nil
	}

	db, err := storage.Open(p.dstLayout().State(), p.logger)
	if err != nil {
		return errors.New(errors.IOFailure, "open ledger", err)
	}
	defer db.Close()

	runs := storage.NewRunRepository(db)
	run := &storage.Run{
		RunID:     runID,
		Kind:      kind,
		Status:    storage.RunStatusRunning,
		Src:       p.cfg.Src,
		Dst:       p.cfg.Dst,
		StartedAt: started,
	}
	if err := runs.Create(run); err != nil {
		return errors.New(errors.IOFailure, "record run", err)
	}

	if err := fn(db); err != nil {
		if dErr := runs.Discard(runID); dErr != nil {
			p.logger.Error("Failed to discard ledger run", "run", runID, "error", dErr)
		}
		return errors.New(errors.IOFailure, "record run", err)
	}
	if err := runs.Complete(runID); err != nil {
		return errors.New(errors.IOFailure, "record run", err)
	}
	return nil
}

func definesString(defines []string) string {
	return strings.Join(defines, " ")
}
