package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"upc/internal/errors"
	"upc/internal/modules"
	"upc/internal/slogutil"
	"upc/internal/storage"
	"upc/internal/toolchain"
	"upc/internal/unity"
)

// CompileResult is the outcome of Compile.
type CompileResult struct {
	RunID     string            `json:"runId"`
	PluginDir string            `json:"pluginDir"`
	Modules   []*modules.Module `json:"modules"`
	Reports   []*modules.Report `json:"reports"`
	Manifest  *Manifest         `json:"manifest"`
}

// Compile discovers the modules of the source project, optionally builds
// them, assigns every module a fresh identity and emits the binaries,
// plugin metas and maps into the destination plugins directory. Nothing
// is emitted when any module fails.
func (p *Pipeline) Compile(ctx context.Context) (*CompileResult, error) {
	src, dst := p.srcLayout(), p.dstLayout()
	scanRoot := p.subDir(src)
	pluginDir := dst.Plugins(p.cfg.PluginsDir)
	started := p.now()
	runID := newRunID()
	logger := slogutil.ForRun(p.logger, storage.RunKindCompile, runID)

	if err := requireDir(scanRoot, "source directory"); err != nil {
		return nil, err
	}

	p.console.Section("Compiling")
	p.console.Field("srcPath", scanRoot)
	p.console.Field("dstPath", pluginDir)
	p.console.Field("defines", definesString(p.cfg.Defines))
	p.console.Blank()

	opts := modules.DiscoverOptions{
		ScanRoot:  scanRoot,
		BinaryDir: p.binaryDir(),
		Logger:    logger,
	}
	if p.cfg.CheckGitIgnore && toolchain.IsGitRepository(p.cfg.Src) {
		opts.Ignored = func(paths []string) (map[string]bool, error) {
			return toolchain.IgnoredPaths(ctx, p.cfg.Src, paths)
		}
	}
	mods, err := modules.Discover(opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Discovered modules", "count", len(mods), "root", scanRoot)

	if p.cfg.Build.Enabled && len(mods) > 0 {
		targets := make([]toolchain.Target, len(mods))
		for i, m := range mods {
			targets[i] = toolchain.Target{Name: m.Name, Binary: m.BinaryPath}
		}
		p.console.Line("Building %d modules...", len(targets))
		if err := p.runner.Build(ctx, p.cfg.Src, targets); err != nil {
			return nil, err
		}
	}

	builder := modules.NewBuilder(p.resolver, logger,
		modules.WithWorkers(p.cfg.Workers),
		modules.WithReportFunc(p.console.ModuleReport),
	)
	built, err := builder.Build(ctx, mods, scanRoot)
	if err != nil {
		return nil, err
	}

	if err := p.emit(ctx, pluginDir, built.Modules); err != nil {
		return nil, err
	}

	manifest, err := p.writeCompileManifest(ctx, runID, built)
	if err != nil {
		return nil, err
	}

	if err := p.recordRun(runID, storage.RunKindCompile, started, func(db *storage.DB) error {
		return recordMappings(db, runID, pluginDir, built.Modules)
	}); err != nil {
		return nil, err
	}

	p.console.Blank()
	return &CompileResult{
		RunID:     runID,
		PluginDir: pluginDir,
		Modules:   built.Modules,
		Reports:   built.Reports,
		Manifest:  manifest,
	}, nil
}

// binaryDir resolves the configured binary directory against the source
// project.
func (p *Pipeline) binaryDir() string {
	dir := filepath.FromSlash(p.cfg.ResolvedBinaryDir())
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(p.cfg.Src, dir)
}

// emit writes the artifacts of every module into pluginDir.
func (p *Pipeline) emit(ctx context.Context, pluginDir string, mods []*modules.Module) error {
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		return errors.New(errors.IOFailure, "create plugins directory", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Workers > 0 {
		g.SetLimit(p.cfg.Workers)
	}
	for _, m := range mods {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return emitModule(pluginDir, m)
		})
	}
	return g.Wait()
}

func emitModule(pluginDir string, m *modules.Module) error {
	base := filepath.Join(pluginDir, m.Name)

	if err := copyArtifact(m.BinaryPath, base+".dll"); err != nil {
		return errors.New(errors.IOFailure, "copy binary for "+m.Name, err)
	}

	pdb := strings.TrimSuffix(m.BinaryPath, filepath.Ext(m.BinaryPath)) + ".pdb"
	if _, err := os.Stat(pdb); err == nil {
		if err := copyArtifact(pdb, base+".pdb"); err != nil {
			return errors.New(errors.IOFailure, "copy symbols for "+m.Name, err)
		}
	}

	if err := writePluginMeta(base+".dll"+unity.MetaExt, m); err != nil {
		return errors.New(errors.IOFailure, "write plugin meta for "+m.Name, err)
	}

	if err := modules.WriteMap(base+unity.MapExt, m); err != nil {
		return errors.New(errors.IOFailure, "write map for "+m.Name, err)
	}
	return nil
}

func writePluginMeta(path string, m *modules.Module) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = unity.WritePluginMeta(f, unity.PluginMeta{
		GUID:            m.GUID,
		ExecutionOrders: m.ExecutionOrders(),
		Definition:      m.Definition,
	})
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	return err
}

// copyArtifact copies a build output, keeping its mode and timestamp.
func copyArtifact(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return copyFile(src, dst, info)
}

func (p *Pipeline) writeCompileManifest(ctx context.Context, runID string, built *modules.Result) (*Manifest, error) {
	path := p.dstLayout().Manifest()
	m, err := loadOrNewManifest(path, p.toolName())
	if err != nil {
		return nil, errors.New(errors.IOFailure, "read manifest", err)
	}

	section := &CompileSection{
		RunID:         runID,
		FinishedAt:    p.now().UTC(),
		Src:           p.cfg.Src,
		Dst:           p.cfg.Dst,
		Configuration: p.cfg.Configuration,
		Defines:       p.cfg.Defines,
	}
	if toolchain.IsGitRepository(p.cfg.Src) {
		state, err := toolchain.ComputeSourceState(ctx, p.cfg.Src)
		if err != nil {
			if stderrors.Is(err, context.Canceled) {
				return nil, err
			}
			p.logger.Warn("Could not read source state", "error", err)
		} else {
			section.Source = state
		}
	}
	for i, mod := range built.Modules {
		r := built.Reports[i]
		section.Modules = append(section.Modules, ManifestModule{
			Name:     mod.Name,
			GUID:     mod.GUID,
			Binary:   mod.BinaryPath,
			Classes:  r.Resolved,
			Skipped:  r.Skipped,
			Warnings: len(r.Warnings),
		})
	}
	m.Compile = section

	if err := WriteManifest(path, m); err != nil {
		return nil, errors.New(errors.IOFailure, "write manifest", err)
	}
	return m, nil
}

func recordMappings(db *storage.DB, runID, pluginDir string, mods []*modules.Module) error {
	var records []storage.ModuleRecord
	var mappings []storage.FileMapping
	for _, m := range mods {
		records = append(records, storage.ModuleRecord{
			RunID:      runID,
			Name:       m.Name,
			GUID:       m.GUID,
			BinaryPath: filepath.Join(pluginDir, m.Name+".dll"),
			FileCount:  len(m.Files),
		})
		for _, f := range m.Files {
			mappings = append(mappings, storage.FileMapping{
				RunID:         runID,
				OriginalGUID:  f.OriginalGUID,
				ModuleName:    m.Name,
				ModuleGUID:    m.GUID,
				Path:          f.Path,
				ClassFullName: f.FullName,
				FileID:        f.FileID,
			})
		}
	}
	if err := storage.NewMappingRepository(db).Record(records, mappings); err != nil {
		return fmt.Errorf("failed to record mappings: %w", err)
	}
	return nil
}
