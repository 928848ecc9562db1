package modules

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"upc/internal/errors"
	"upc/internal/paths"
	"upc/internal/unity"
)

// DiscoverOptions controls module discovery.
type DiscoverOptions struct {
	// ScanRoot is the directory searched for module definitions,
	// usually <project>/Assets or a subdirectory of it
	ScanRoot string

	// BinaryDir is the directory holding compiled <name>.dll files
	BinaryDir string

	// Ignored, when set, returns the subset of definition paths to drop
	Ignored func(paths []string) (map[string]bool, error)

	Logger *slog.Logger
}

// Discover finds every module definition under the scan root plus the
// modules declared in MODULES.toml. Modules come back without files,
// sorted by scope directory.
func Discover(opts DiscoverOptions) ([]*Module, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var defPaths []string
	err := filepath.WalkDir(opts.ScanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != opts.ScanRoot && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if paths.HasExtFold(path, unity.DefinitionExt) {
			defPaths = append(defPaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.IOFailure, "scan "+opts.ScanRoot, err)
	}

	ignored := map[string]bool{}
	if opts.Ignored != nil && len(defPaths) > 0 {
		if ignored, err = opts.Ignored(defPaths); err != nil {
			return nil, err
		}
	}

	var modules []*Module
	for _, p := range defPaths {
		if ignored[p] {
			logger.Info("Ignoring module definition", "path", p)
			continue
		}
		def, err := unity.ReadDefinition(p)
		if err != nil {
			return nil, err
		}
		modules = append(modules, &Module{
			Name:           def.Name,
			Definition:     def,
			DefinitionPath: p,
			ScopeDir:       filepath.Dir(p),
			BinaryPath:     filepath.Join(opts.BinaryDir, def.Name+".dll"),
		})
	}

	declared, err := LoadDeclaredModules(opts.ScanRoot, opts.BinaryDir)
	if err != nil {
		return nil, errors.New(errors.DefinitionInvalid, ModulesDeclarationFile, err)
	}
	modules = append(modules, declared...)

	sort.SliceStable(modules, func(i, j int) bool {
		return modules[i].ScopeDir < modules[j].ScopeDir
	})

	logger.Debug("Discovered modules", "count", len(modules), "declared", len(declared))
	return modules, nil
}

// CollectSources lists every .cs file under dir in lexical order.
func CollectSources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if paths.HasExtFold(path, unity.SourceExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(errors.IOFailure, "scan "+dir, err)
	}
	return files, nil
}

// skipDir reports directories the editor never imports: hidden ones and
// those ending in '~'.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}
