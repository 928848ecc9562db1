// Package paths knows the on-disk layout of a Unity project and of the
// state upc keeps next to the destination project.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// AssetsDir is the project directory holding scripts and documents.
	AssetsDir = "Assets"
	// ProjectSettingsDir holds editor and player settings.
	ProjectSettingsDir = "ProjectSettings"
	// PackagesDir holds the package manifest.
	PackagesDir = "Packages"
	// StateDir holds upc's own files inside the destination project.
	StateDir = ".upc"
)

// Layout resolves well-known locations under a project root.
type Layout struct {
	Root string
}

// NewLayout returns the layout for root, made absolute when possible.
func NewLayout(root string) Layout {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return Layout{Root: filepath.Clean(root)}
}

// Assets returns <root>/Assets.
func (l Layout) Assets() string { return filepath.Join(l.Root, AssetsDir) }

// Plugins returns <root>/Assets/<pluginsDir>.
func (l Layout) Plugins(pluginsDir string) string {
	return filepath.Join(l.Assets(), filepath.FromSlash(pluginsDir))
}

// ProjectSettings returns <root>/ProjectSettings.
func (l Layout) ProjectSettings() string { return filepath.Join(l.Root, ProjectSettingsDir) }

// Packages returns <root>/Packages.
func (l Layout) Packages() string { return filepath.Join(l.Root, PackagesDir) }

// Binary returns the compiled binary path for a module under binaryDir.
func (l Layout) Binary(binaryDir, moduleName string) string {
	return filepath.Join(l.Root, filepath.FromSlash(binaryDir), moduleName+".dll")
}

// State returns <root>/.upc.
func (l Layout) State() string { return filepath.Join(l.Root, StateDir) }

// Ledger returns the path of the run ledger database.
func (l Layout) Ledger() string { return filepath.Join(l.State(), "ledger.db") }

// Manifest returns the path of the last run manifest.
func (l Layout) Manifest() string { return filepath.Join(l.State(), "manifest.toml") }

// Backups returns the directory holding rewrite backup archives.
func (l Layout) Backups() string { return filepath.Join(l.State(), "backups") }

// CanonicalizePath converts an absolute path to a root-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relativePath), nil
}

// IsWithin checks if path is inside root (or is root).
func IsWithin(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// JoinCanonical joins a root with a forward-slash relative path.
func JoinCanonical(root string, canonicalPath string) string {
	parts := strings.Split(NormalizePath(canonicalPath), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// HasExtFold reports whether path ends in ext, ignoring case.
func HasExtFold(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
