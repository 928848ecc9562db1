package modules

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"upc/internal/csharp"
	"upc/internal/errors"
	"upc/internal/slogutil"
	"upc/internal/stablehash"
	"upc/internal/unity"
)

// SymbolResolver finds the primary class of a source file.
type SymbolResolver interface {
	Resolve(ctx context.Context, source []byte, fileBaseName string) (csharp.Resolution, error)
}

// Warning is a file dropped from a module that the user should hear about.
type Warning struct {
	Path   string
	Reason csharp.SkipReason
}

// Report summarizes one module once all of its files are processed.
type Report struct {
	Module   string
	Resolved int
	Skipped  int
	Warnings []Warning
}

// HasWarnings reports whether any file was dropped with a warning.
func (r *Report) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Result is the output of a successful build.
type Result struct {
	Modules []*Module
	Table   *IdentityTable
	Reports []*Report // same order as Modules
}

// Builder turns module definitions and their source trees into modules
// with fresh identities.
type Builder struct {
	resolver SymbolResolver
	logger   *slog.Logger
	workers  int
	newGUID  func() string
	onReport func(*Report)
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers bounds the number of files processed concurrently.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithGUIDGenerator replaces the random module identity source.
func WithGUIDGenerator(fn func() string) Option {
	return func(b *Builder) {
		b.newGUID = fn
	}
}

// WithReportFunc registers a callback invoked as each module completes.
// It runs on the coordinating goroutine, never concurrently.
func WithReportFunc(fn func(*Report)) Option {
	return func(b *Builder) {
		b.onReport = fn
	}
}

// NewBuilder creates a builder using the given resolver.
func NewBuilder(resolver SymbolResolver, logger *slog.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Builder{
		resolver: resolver,
		logger:   logger,
		workers:  runtime.NumCPU(),
		newGUID:  NewGUID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewGUID returns a random identity as 32 lowercase hex characters.
func NewGUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type fileJob struct {
	module int
	file   int
	path   string
}

type fileOutcome struct {
	job        fileJob
	sidecar    *unity.Sidecar
	resolution csharp.Resolution
}

// Build collects the sources of every module, gives each file to its
// deepest module, resolves classes and assigns identities. Any fatal
// error aborts the whole build and leaves no partial result.
func (b *Builder) Build(ctx context.Context, modules []*Module, scanRoot string) (*Result, error) {
	for _, m := range modules {
		if _, err := os.Stat(m.BinaryPath); err != nil {
			return nil, errors.New(errors.BinaryMissing,
				"compiled binary for "+m.Name+" not found at "+m.BinaryPath, err)
		}
	}

	for _, m := range modules {
		sources, err := CollectSources(m.ScopeDir)
		if err != nil {
			return nil, err
		}
		m.Files = make([]*SourceFile, len(sources))
		for i, p := range sources {
			m.Files[i] = &SourceFile{Path: p}
		}
	}

	if err := ResolveHierarchy(modules, scanRoot); err != nil {
		return nil, err
	}

	reports, err := b.processFiles(ctx, modules)
	if err != nil {
		return nil, err
	}

	for _, m := range modules {
		m.GUID = b.newGUID()
	}

	table, err := NewIdentityTable(modules)
	if err != nil {
		return nil, err
	}

	return &Result{Modules: modules, Table: table, Reports: reports}, nil
}

// processFiles fans file work out to a bounded pool. Workers only send
// outcomes; this goroutine owns every module and report.
func (b *Builder) processFiles(ctx context.Context, modules []*Module) ([]*Report, error) {
	reports := make([]*Report, len(modules))
	pending := make([]int, len(modules))
	skip := make([][]bool, len(modules))

	var jobs []fileJob
	for mi, m := range modules {
		reports[mi] = &Report{Module: m.Name}
		pending[mi] = len(m.Files)
		skip[mi] = make([]bool, len(m.Files))
		for fi, f := range m.Files {
			jobs = append(jobs, fileJob{module: mi, file: fi, path: f.Path})
		}
	}

	finish := func(mi int) {
		m := modules[mi]
		kept := m.Files[:0]
		for fi, f := range m.Files {
			if !skip[mi][fi] {
				kept = append(kept, f)
			}
		}
		m.Files = kept
		reports[mi].Resolved = len(kept)
		slogutil.ForModule(b.logger, m.Name).Debug("Module processed", "files", len(kept), "skipped", reports[mi].Skipped)
		if b.onReport != nil {
			b.onReport(reports[mi])
		}
	}

	for mi := range modules {
		if pending[mi] == 0 {
			finish(mi)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	results := make(chan fileOutcome, b.workers)
	done := make(chan error, 1)

	go func() {
		for _, job := range jobs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := b.processFile(gctx, job)
				if err != nil {
					return err
				}
				select {
				case results <- out:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		done <- g.Wait()
		close(results)
	}()

	for out := range results {
		mi, fi := out.job.module, out.job.file
		f := modules[mi].Files[fi]
		f.OriginalGUID = out.sidecar.GUID
		f.ExecutionOrder = out.sidecar.ExecutionOrder

		res := out.resolution
		if res.Skipped() {
			skip[mi][fi] = true
			reports[mi].Skipped++
			if !res.Skip.Silent() {
				reports[mi].Warnings = append(reports[mi].Warnings, Warning{Path: f.Path, Reason: res.Skip})
			}
		} else {
			f.Namespace = res.Namespace
			f.ClassName = res.Name
			f.FullName = res.FullName()
			f.FileID = stablehash.Compute(res.Namespace, res.Name)
		}

		pending[mi]--
		if pending[mi] == 0 {
			finish(mi)
		}
	}

	if err := <-done; err != nil {
		return nil, err
	}
	return reports, nil
}

func (b *Builder) processFile(ctx context.Context, job fileJob) (fileOutcome, error) {
	sidecar, err := unity.ReadSidecar(job.path)
	if err != nil {
		return fileOutcome{}, err
	}

	source, err := os.ReadFile(job.path)
	if err != nil {
		return fileOutcome{}, errors.New(errors.IOFailure, "read "+job.path, err)
	}

	res, err := b.resolver.Resolve(ctx, source, filepath.Base(job.path))
	if err != nil {
		if stderrors.Is(err, csharp.ErrUnavailable) {
			return fileOutcome{}, errors.New(errors.ResolverUnavailable, "cannot resolve "+job.path, err)
		}
		return fileOutcome{}, errors.New(errors.InternalError, "resolve "+job.path, err)
	}

	b.logger.Debug("Resolved source", "path", job.path, "class", res.FullName(), "skip", string(res.Skip))
	return fileOutcome{job: job, sidecar: sidecar, resolution: res}, nil
}
