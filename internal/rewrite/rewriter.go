package rewrite

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"upc/internal/errors"
	"upc/internal/unity"
)

// Report summarizes a rewrite run.
type Report struct {
	Scanned       int
	Patched       int
	Substitutions int
	Changed       map[string]bool
	Documents     []DocumentChange // patched documents in path order
}

// DocumentChange records the substitutions made in one document.
type DocumentChange struct {
	Path          string
	Substitutions int
}

// Rewriter patches candidate documents against an identity table.
type Rewriter struct {
	workers int
	dryRun  bool
	backup  *Backup
	logger  *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithWorkers bounds the number of documents read concurrently.
func WithWorkers(n int) Option {
	return func(r *Rewriter) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithDryRun computes the report without writing anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Rewriter) {
		r.dryRun = dryRun
	}
}

// WithBackup stores the original bytes of every patched document in b
// before it is overwritten.
func WithBackup(b *Backup) Option {
	return func(r *Rewriter) {
		r.backup = b
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Rewriter) {
		r.logger = logger
	}
}

// NewRewriter creates a rewriter.
func NewRewriter(opts ...Option) *Rewriter {
	r := &Rewriter{
		workers: runtime.NumCPU(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type patch struct {
	path    string
	mode    fs.FileMode
	before  []byte
	after   []byte
	matched int
}

// Rewrite patches every document in paths whose extension is in exts.
// Reads run in parallel; backup and writes happen on the calling
// goroutine, one document at a time. A document is written only when
// at least one reference changed. Any read or write failure aborts.
func (r *Rewriter) Rewrite(ctx context.Context, paths []string, table Table, exts unity.ExtensionSet) (*Report, error) {
	report := &Report{Changed: make(map[string]bool)}

	var candidates []string
	for _, p := range paths {
		if exts.Contains(filepath.Ext(p)) {
			candidates = append(candidates, p)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	results := make(chan patch, r.workers)
	done := make(chan error, 1)

	go func() {
		for _, p := range candidates {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := readAndSubstitute(p, table)
				if err != nil {
					return err
				}
				select {
				case results <- res:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		done <- g.Wait()
		close(results)
	}()

	var writeErr error
	for res := range results {
		if writeErr != nil {
			continue
		}
		report.Scanned++
		if res.matched == 0 {
			continue
		}
		if err := r.apply(res); err != nil {
			writeErr = err
			cancel()
			continue
		}
		report.Patched++
		report.Substitutions += res.matched
		report.Changed[res.path] = true
		report.Documents = append(report.Documents, DocumentChange{Path: res.path, Substitutions: res.matched})
		r.logger.Info("Patched document", "path", res.path, "substitutions", res.matched)
	}

	err := <-done
	if writeErr != nil {
		return nil, writeErr
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(report.Documents, func(i, j int) bool {
		return report.Documents[i].Path < report.Documents[j].Path
	})
	return report, nil
}

func (r *Rewriter) apply(p patch) error {
	if r.dryRun {
		return nil
	}
	if r.backup != nil {
		if err := r.backup.Add(p.path, p.before, p.mode); err != nil {
			return err
		}
	}
	return writeAtomic(p.path, p.after, p.mode)
}

func readAndSubstitute(path string, table Table) (patch, error) {
	info, err := os.Stat(path)
	if err != nil {
		return patch{}, errors.New(errors.IOFailure, "stat "+path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return patch{}, errors.New(errors.IOFailure, "read "+path, err)
	}
	after, n := Substitute(content, table)
	res := patch{path: path, mode: info.Mode().Perm(), matched: n}
	if n > 0 {
		res.before = content
		res.after = after
	}
	return res, nil
}

// writeAtomic replaces path with data through a temp file in the same
// directory, keeping mode.
func writeAtomic(path string, data []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.New(errors.IOFailure, "write "+path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.New(errors.IOFailure, "write "+path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.New(errors.IOFailure, "chmod "+path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.New(errors.IOFailure, "write "+path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.New(errors.IOFailure, "rename "+path, err)
	}
	return nil
}

// CollectDocuments lists the files under root whose extension is in exts,
// in lexical order.
func CollectDocuments(root string, exts unity.ExtensionSet) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && exts.Contains(filepath.Ext(path)) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.IOFailure, "scan "+root, err)
	}
	return out, nil
}
