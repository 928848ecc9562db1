// Package toolchain drives the external tools the precompiler depends on:
// the module build command and git.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"upc/internal/config"
	"upc/internal/errors"
	"upc/internal/slogutil"
)

// ExecFunc runs name with args in dir and returns its combined output.
type ExecFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Runner builds module projects with the configured build command.
type Runner struct {
	cfg           config.BuildConfig
	configuration string
	workers       int
	logger        *slog.Logger
	exec          ExecFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBuildWorkers bounds the number of concurrent builds in the first pass.
func WithBuildWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithExecFunc replaces process execution.
func WithExecFunc(fn ExecFunc) RunnerOption {
	return func(r *Runner) {
		r.exec = fn
	}
}

// NewRunner creates a build runner.
func NewRunner(cfg config.BuildConfig, configuration string, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Runner{
		cfg:           cfg,
		configuration: configuration,
		workers:       runtime.NumCPU(),
		logger:        logger,
		exec:          runCommand,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Target is one project to build and the binary it must produce.
type Target struct {
	Name   string
	Binary string
}

// Build builds every target from srcRoot. All targets are built in
// parallel first; the ones that failed are retried one at a time. A
// target still failing, or whose binary is missing afterwards, is
// BUILD_FAILED.
func (r *Runner) Build(ctx context.Context, srcRoot string, targets []Target) error {
	for _, t := range targets {
		project := r.Project(srcRoot, t.Name)
		if _, err := os.Stat(project); err != nil {
			return errors.New(errors.BuildFailed, "can't find project "+project, err)
		}
	}

	var (
		mu     sync.Mutex
		failed []Target
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, t := range targets {
		g.Go(func() error {
			if _, err := r.buildOne(gctx, srcRoot, t); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slogutil.ForModule(r.logger, t.Name).Info("Build failed, will retry", "error", err)
				mu.Lock()
				failed = append(failed, t)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Retry in the original order.
	retry := make(map[string]bool, len(failed))
	for _, t := range failed {
		retry[t.Name] = true
	}
	for _, t := range targets {
		if !retry[t.Name] {
			continue
		}
		out, err := r.buildOne(ctx, srcRoot, t)
		if err != nil {
			return errors.New(errors.BuildFailed, "build of "+t.Name+" failed", err).
				WithDetails(map[string]string{"module": t.Name, "output": tail(out, 40)})
		}
	}

	for _, t := range targets {
		if _, err := os.Stat(t.Binary); err != nil {
			return errors.New(errors.BuildFailed, "build of "+t.Name+" produced no binary at "+t.Binary, err)
		}
	}
	return nil
}

func (r *Runner) buildOne(ctx context.Context, srcRoot string, t Target) ([]byte, error) {
	args := r.Args(srcRoot, t.Name)
	slogutil.ForModule(r.logger, t.Name).Debug("Building module", "command", r.cfg.Command, "args", strings.Join(args, " "))
	return r.exec(ctx, srcRoot, r.cfg.Command, args...)
}

// Project returns the project file of a module.
func (r *Runner) Project(srcRoot, name string) string {
	return filepath.Join(srcRoot, name+".csproj")
}

// Args expands the configured arguments for one module.
func (r *Runner) Args(srcRoot, name string) []string {
	repl := strings.NewReplacer(
		"{project}", r.Project(srcRoot, name),
		"{name}", name,
		config.ConfigurationToken, r.configuration,
		"{log}", name+".log",
	)
	out := make([]string, len(r.cfg.Args))
	for i, a := range r.cfg.Args {
		out[i] = repl.Replace(a)
	}
	return out
}

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return buf.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// tail returns the last n lines of out.
func tail(out []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
