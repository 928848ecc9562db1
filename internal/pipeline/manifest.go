package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"upc/internal/toolchain"
)

// ManifestVersion is the schema version of manifest.toml.
const ManifestVersion = 1

// Manifest records the last compile and fixup of a destination project.
type Manifest struct {
	Version int             `toml:"version" json:"version"`
	Tool    string          `toml:"tool" json:"tool"`
	Compile *CompileSection `toml:"compile,omitempty" json:"compile,omitempty"`
	Fixup   *FixupSection   `toml:"fixup,omitempty" json:"fixup,omitempty"`
}

// CompileSection describes a compile run.
type CompileSection struct {
	RunID         string                 `toml:"run_id" json:"runId"`
	FinishedAt    time.Time              `toml:"finished_at" json:"finishedAt"`
	Src           string                 `toml:"src" json:"src"`
	Dst           string                 `toml:"dst" json:"dst"`
	Configuration string                 `toml:"configuration" json:"configuration"`
	Defines       []string               `toml:"defines" json:"defines"`
	Source        *toolchain.SourceState `toml:"source,omitempty" json:"source,omitempty"`
	Modules       []ManifestModule       `toml:"module" json:"modules"`
}

// ManifestModule is one emitted module.
type ManifestModule struct {
	Name     string `toml:"name" json:"name"`
	GUID     string `toml:"guid" json:"guid"`
	Binary   string `toml:"binary" json:"binary"`
	Classes  int    `toml:"classes" json:"classes"`
	Skipped  int    `toml:"skipped" json:"skipped"`
	Warnings int    `toml:"warnings" json:"warnings"`
}

// FixupSection describes a fixup run.
type FixupSection struct {
	RunID         string    `toml:"run_id" json:"runId"`
	FinishedAt    time.Time `toml:"finished_at" json:"finishedAt"`
	Maps          int       `toml:"maps" json:"maps"`
	Identities    int       `toml:"identities" json:"identities"`
	Scanned       int       `toml:"scanned" json:"scanned"`
	Patched       int       `toml:"patched" json:"patched"`
	Substitutions int       `toml:"substitutions" json:"substitutions"`
	DryRun        bool      `toml:"dry_run" json:"dryRun"`
	Backup        string    `toml:"backup,omitempty" json:"backup,omitempty"`
}

// ReadManifest loads a manifest from path.
func ReadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// WriteManifest saves m to path, creating the parent directory.
func WriteManifest(path string, m *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// loadOrNewManifest reads the manifest at path, or starts a new one when
// there is none.
func loadOrNewManifest(path, tool string) (*Manifest, error) {
	m, err := ReadManifest(path)
	if err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return &Manifest{Version: ManifestVersion, Tool: tool}, nil
		}
		return nil, err
	}
	m.Tool = tool
	return m, nil
}
