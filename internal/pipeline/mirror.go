package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"upc/internal/errors"
)

// ScriptExcludes are the files the copy step leaves out of the
// destination Assets tree: they are replaced by precompiled modules.
var ScriptExcludes = []string{"*.cs", "*.cs.meta", "*.asmdef", "*.asmdef.meta"}

// MirrorOptions controls Mirror.
type MirrorOptions struct {
	// Exclude lists base-name patterns (filepath.Match, case-insensitive)
	// that are neither copied nor purged
	Exclude []string

	// Purge removes destination entries that are not in the source
	Purge bool
}

// MirrorStats counts what a mirror did.
type MirrorStats struct {
	Src     string `json:"src"`
	Dst     string `json:"dst"`
	Copied  int    `json:"copied"`
	Skipped int    `json:"skipped"` // already up to date
	Purged  int    `json:"purged"`
}

// Mirror makes dst a copy of src. Files are copied when missing or when
// size or modification time differ; modification times are carried over.
func Mirror(ctx context.Context, src, dst string, opts MirrorOptions) (*MirrorStats, error) {
	stats := &MirrorStats{Src: src, Dst: dst}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			if t, err := os.Lstat(target); err == nil && !t.IsDir() {
				if err := os.Remove(target); err != nil {
					return err
				}
			}
			return os.MkdirAll(target, 0755)
		}
		if excluded(d.Name(), opts.Exclude) || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if upToDate(info, target) {
			stats.Skipped++
			return nil
		}
		if err := copyFile(path, target, info); err != nil {
			return err
		}
		stats.Copied++
		return nil
	})
	if err != nil {
		return nil, wrapMirrorErr(src, err)
	}

	if opts.Purge {
		if err := purge(ctx, src, dst, opts.Exclude, stats); err != nil {
			return nil, wrapMirrorErr(dst, err)
		}
	}
	return stats, nil
}

func wrapMirrorErr(path string, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.New(errors.IOFailure, "mirror "+path, err)
}

// purge removes entries under dst that have no counterpart in src.
func purge(ctx context.Context, src, dst string, exclude []string, stats *MirrorStats) error {
	return filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == dst {
			return nil
		}

		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return err
		}
		if !d.IsDir() && excluded(d.Name(), exclude) {
			return nil
		}

		srcInfo, err := os.Lstat(filepath.Join(src, rel))
		if err == nil && srcInfo.IsDir() == d.IsDir() {
			return nil
		}
		if err != nil && !os.IsNotExist(err) {
			return err
		}

		if err := os.RemoveAll(path); err != nil {
			return err
		}
		stats.Purged++
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
}

func excluded(name string, patterns []string) bool {
	name = strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(p), name); ok {
			return true
		}
	}
	return false
}

func upToDate(info fs.FileInfo, target string) bool {
	t, err := os.Stat(target)
	if err != nil || !t.Mode().IsRegular() {
		return false
	}
	return t.Size() == info.Size() && t.ModTime().Equal(info.ModTime())
}

func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	// A directory in the way of a file is replaced.
	if t, err := os.Lstat(dst); err == nil && t.IsDir() {
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
