// Package unity reads and writes the editor's on-disk formats that the
// precompiler touches: module definitions, .meta sidecars and the
// importer settings of a precompiled plugin.
package unity

import "strings"

// ScriptFileID is the local identifier the editor gives the single
// script object of a .cs file (class id 115, object 00000).
const ScriptFileID = "11500000"

// ScriptTypeTag is the reference type tag for external script references.
const ScriptTypeTag = 3

// MetaExt is the sidecar extension appended to every asset path.
const MetaExt = ".meta"

// MapExt is the extension of module map artifacts.
const MapExt = ".map"

// DefinitionExt is the extension of module definition files.
const DefinitionExt = ".asmdef"

// SourceExt is the extension of script sources.
const SourceExt = ".cs"

// DefaultExtensions are the serialized document types that can hold
// script references.
var DefaultExtensions = []string{
	".unity",
	".prefab",
	".mat",
	".asset",
	".cubemap",
	".flare",
	".compute",
	".controller",
	".anim",
	".overrideController",
	".mask",
	".physicsMaterial",
	".physicsMaterial2D",
	".guiskin",
	".fontsettings",
}

// ExtensionSet is a case-insensitive set of file extensions.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds a set from extensions with or without a leading dot.
func NewExtensionSet(exts []string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, e := range exts {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[strings.ToLower(e)] = struct{}{}
	}
	return set
}

// ParseExtensions parses extension lists such as "unity prefab". Each
// argument may hold several space-separated entries. An empty list
// yields DefaultExtensions.
func ParseExtensions(lists ...string) ExtensionSet {
	var fields []string
	for _, l := range lists {
		fields = append(fields, strings.Fields(l)...)
	}
	if len(fields) == 0 {
		return NewExtensionSet(DefaultExtensions)
	}
	return NewExtensionSet(fields)
}

// Contains reports whether ext (with leading dot) is in the set.
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s[strings.ToLower(ext)]
	return ok
}
