package modules

import (
	"path/filepath"

	"upc/internal/errors"
	"upc/internal/paths"
)

// ResolveHierarchy gives every file to its deepest enclosing module.
//
// Modules are keyed by scope directory. For each module the directory
// chain is walked up while it stays inside scanRoot, and at every level
// that has a module registered, the child's files are removed from it.
// Nesting may skip levels, so every ancestor is checked. A module outside
// scanRoot never strips files from anything.
func ResolveHierarchy(modules []*Module, scanRoot string) error {
	scanRoot = filepath.Clean(scanRoot)

	byDir := make(map[string]*Module, len(modules))
	for _, m := range modules {
		dir := filepath.Clean(m.ScopeDir)
		if other, ok := byDir[dir]; ok {
			return errors.Newf(errors.DuplicateScope,
				"modules %s and %s share directory %s", other.Name, m.Name, dir)
		}
		byDir[dir] = m
	}

	for _, m := range modules {
		if len(m.Files) == 0 {
			continue
		}
		owned := make(map[string]bool, len(m.Files))
		for _, f := range m.Files {
			owned[f.Path] = true
		}

		dir := filepath.Clean(m.ScopeDir)
		for {
			parent := filepath.Dir(dir)
			if parent == dir || !paths.IsWithin(parent, scanRoot) {
				break
			}
			dir = parent

			if ancestor, ok := byDir[dir]; ok {
				ancestor.Files = removeFiles(ancestor.Files, owned)
			}
		}
	}
	return nil
}

func removeFiles(files []*SourceFile, drop map[string]bool) []*SourceFile {
	kept := files[:0]
	for _, f := range files {
		if !drop[f.Path] {
			kept = append(kept, f)
		}
	}
	return kept
}
