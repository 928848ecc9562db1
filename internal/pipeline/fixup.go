package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"upc/internal/errors"
	"upc/internal/modules"
	"upc/internal/rewrite"
	"upc/internal/slogutil"
	"upc/internal/storage"
	"upc/internal/unity"
)

// FixupResult is the outcome of Fixup.
type FixupResult struct {
	RunID  string          `json:"runId"`
	Maps   int             `json:"maps"`
	Report *rewrite.Report `json:"report"`
	Backup string          `json:"backup,omitempty"`
}

// Fixup rebuilds the identity table from the maps in the destination
// plugins directory and rewrites every script reference in the
// destination's serialized documents.
func (p *Pipeline) Fixup(ctx context.Context) (*FixupResult, error) {
	dst := p.dstLayout()
	pluginDir := dst.Plugins(p.cfg.PluginsDir)
	started := p.now()
	runID := newRunID()
	logger := slogutil.ForRun(p.logger, storage.RunKindFixup, runID)

	p.console.Section("Fixup")

	if err := requireDir(dst.Assets(), "target assets directory"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		return nil, errors.New(errors.IOFailure, "create plugins directory", err)
	}

	mods, err := modules.LoadMaps(pluginDir)
	if err != nil {
		return nil, err
	}
	table, err := modules.NewIdentityTable(mods)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded identity table", "maps", len(mods), "identities", table.Len())

	exts := unity.ParseExtensions(p.cfg.Extensions...)
	docs, err := rewrite.CollectDocuments(dst.Assets(), exts)
	if err != nil {
		return nil, err
	}

	res := &FixupResult{RunID: runID, Maps: len(mods)}

	opts := []rewrite.Option{
		rewrite.WithWorkers(p.cfg.Workers),
		rewrite.WithDryRun(p.cfg.DryRun),
		rewrite.WithLogger(logger),
	}
	var backup *rewrite.Backup
	if p.cfg.Backup && !p.cfg.DryRun {
		path := filepath.Join(dst.Backups(), runID+rewrite.BackupExt)
		backup, err = rewrite.CreateBackup(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rewrite.WithBackup(backup))
	}

	report, err := rewrite.NewRewriter(opts...).Rewrite(ctx, docs, table, exts)
	if backup != nil {
		if cErr := backup.Close(); cErr != nil && err == nil {
			err = errors.New(errors.IOFailure, "close backup archive", cErr)
		}
		if backup.Len() > 0 {
			res.Backup = backup.Path()
		}
	}
	if err != nil {
		if res.Backup != "" {
			logger.Error("Fixup aborted; originals saved", "backup", res.Backup)
		}
		return nil, err
	}
	res.Report = report

	for _, d := range report.Documents {
		p.console.Line("Fixing up %s", d.Path)
	}

	if p.cfg.DryRun {
		p.console.Line("Dry run: %d documents would change.", report.Patched)
		p.console.Blank()
		return res, nil
	}

	if err := p.writeFixupManifest(runID, res, table.Len()); err != nil {
		return nil, err
	}

	if err := p.recordRun(runID, storage.RunKindFixup, started, func(db *storage.DB) error {
		records := make([]storage.RewriteRecord, len(report.Documents))
		for i, d := range report.Documents {
			records[i] = storage.RewriteRecord{RunID: runID, Path: d.Path, Substitutions: d.Substitutions}
		}
		return storage.NewRewriteRepository(db).Record(records)
	}); err != nil {
		return nil, err
	}

	p.console.Done("Fixup Complete.")
	p.console.Blank()
	return res, nil
}

func (p *Pipeline) writeFixupManifest(runID string, res *FixupResult, identities int) error {
	path := p.dstLayout().Manifest()
	m, err := loadOrNewManifest(path, p.toolName())
	if err != nil {
		return errors.New(errors.IOFailure, "read manifest", err)
	}
	m.Fixup = &FixupSection{
		RunID:         runID,
		FinishedAt:    p.now().UTC(),
		Maps:          res.Maps,
		Identities:    identities,
		Scanned:       res.Report.Scanned,
		Patched:       res.Report.Patched,
		Substitutions: res.Report.Substitutions,
		Backup:        res.Backup,
	}
	if err := WriteManifest(path, m); err != nil {
		return errors.New(errors.IOFailure, "write manifest", err)
	}
	return nil
}
