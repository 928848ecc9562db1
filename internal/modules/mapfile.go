package modules

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"upc/internal/errors"
	"upc/internal/paths"
	"upc/internal/unity"
)

// WriteMap writes the module's map artifact as indented JSON.
func WriteMap(path string, m *Module) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.New(errors.InternalError, "encode map for "+m.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New(errors.IOFailure, "create "+filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.IOFailure, "write "+path, err)
	}
	return nil
}

// ReadMap reads one map artifact.
func ReadMap(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.IOFailure, "read "+path, err)
	}
	var m Module
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.DefinitionInvalid, "parse map "+path, err)
	}
	return &m, nil
}

// LoadMaps reads every map artifact under dir, recursively, in path order.
func LoadMaps(dir string) ([]*Module, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && paths.HasExtFold(path, unity.MapExt) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.IOFailure, "scan "+dir, err)
	}
	sort.Strings(found)

	out := make([]*Module, 0, len(found))
	for _, p := range found {
		m, err := ReadMap(p)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
