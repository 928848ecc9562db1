package modules

import (
	"fmt"
	"sort"

	"upc/internal/errors"
)

// Entry is what an original identity maps to.
type Entry struct {
	File   *SourceFile
	Module *Module
}

// IdentityTable maps original file identities to the file and the
// module that absorbed it. It is read-only once built.
type IdentityTable struct {
	entries map[string]Entry
}

// CollisionError reports two files claiming the same original identity.
type CollisionError struct {
	GUID string
	New  Entry
	Old  Entry
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("Collision: %s.\nNew: %s > %s\nOld: %s > %s",
		e.GUID, e.New.Module.Name, e.New.File.Path, e.Old.Module.Name, e.Old.File.Path)
}

// NewIdentityTable indexes every file of every module. The first
// duplicate identity aborts construction with IDENTITY_COLLISION.
func NewIdentityTable(modules []*Module) (*IdentityTable, error) {
	t := &IdentityTable{entries: make(map[string]Entry)}
	for _, m := range modules {
		for _, f := range m.Files {
			if old, ok := t.entries[f.OriginalGUID]; ok {
				cause := &CollisionError{GUID: f.OriginalGUID, New: Entry{f, m}, Old: old}
				return nil, errors.New(errors.IdentityCollision, "duplicate original identity "+f.OriginalGUID, cause).
					WithDetails(map[string]string{
						"guid":      f.OriginalGUID,
						"newModule": m.Name,
						"newFile":   f.Path,
						"oldModule": old.Module.Name,
						"oldFile":   old.File.Path,
					})
			}
			t.entries[f.OriginalGUID] = Entry{File: f, Module: m}
		}
	}
	return t, nil
}

// Lookup returns the entry for an original identity.
func (t *IdentityTable) Lookup(guid string) (Entry, bool) {
	e, ok := t.entries[guid]
	return e, ok
}

// Len returns the number of identities in the table.
func (t *IdentityTable) Len() int {
	return len(t.entries)
}

// GUIDs returns the original identities in sorted order.
func (t *IdentityTable) GUIDs() []string {
	out := make([]string, 0, len(t.entries))
	for g := range t.entries {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
