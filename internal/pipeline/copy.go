package pipeline

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"
)

// CopyResult is the outcome of Copy.
type CopyResult struct {
	Trees []*MirrorStats `json:"trees"`
}

// Copy mirrors the source project's assets, minus scripts and module
// definitions, into the destination. ProjectSettings and Packages are
// mirrored whole when present. Unless KeepTargetFiles is set, files in
// the destination that are not in the source are removed.
func (p *Pipeline) Copy(ctx context.Context) (*CopyResult, error) {
	src, dst := p.srcLayout(), p.dstLayout()
	srcPath, dstPath := p.subDir(src), p.subDir(dst)

	if err := requireDir(srcPath, "source directory"); err != nil {
		return nil, err
	}

	p.console.Section("Copying")
	p.console.Line("  Copying assets to output project directory.")
	p.console.Field("srcPath", srcPath)
	p.console.Field("dstPath", dstPath)
	p.console.Blank()
	p.console.Line("Starting copy...")

	type tree struct {
		src, dst string
		exclude  []string
	}
	trees := []tree{{srcPath, dstPath, ScriptExcludes}}
	if p.cfg.CopyProjectSettings && dirExists(src.ProjectSettings()) {
		trees = append(trees, tree{src.ProjectSettings(), dst.ProjectSettings(), nil})
	}
	if p.cfg.CopyPackages && dirExists(src.Packages()) {
		trees = append(trees, tree{src.Packages(), dst.Packages(), nil})
	}

	res := &CopyResult{Trees: make([]*MirrorStats, len(trees))}

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range trees {
		g.Go(func() error {
			stats, err := Mirror(gctx, t.src, t.dst, MirrorOptions{
				Exclude: t.exclude,
				Purge:   !p.cfg.KeepTargetFiles,
			})
			if err != nil {
				return err
			}
			res.Trees[i] = stats
			p.logger.Info("Mirrored directory", "src", t.src, "dst", t.dst,
				"copied", stats.Copied, "skipped", stats.Skipped, "purged", stats.Purged)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.console.Done("Copy Complete.")
	p.console.Blank()
	return res, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
