// Package csharp finds the script class a C# source file declares and
// reports its namespace and nested type name.
package csharp

import (
	"errors"
	"strings"
)

// SkipReason says why a file has no resolvable class.
type SkipReason string

const (
	// SkipNonClassType means the file only declares structs, enums,
	// interfaces or records. Expected and silent.
	SkipNonClassType SkipReason = "non-class-type"
	// SkipKnownGenerated means the file is generated assembly metadata.
	// Expected and silent.
	SkipKnownGenerated SkipReason = "known-generated"
	// SkipClassless means nothing was declared at all. Usually a missing
	// define hid the class; callers report it as a warning.
	SkipClassless SkipReason = "classless"
)

// Silent reports whether a skip is expected and needs no warning.
func (r SkipReason) Silent() bool {
	return r == SkipNonClassType || r == SkipKnownGenerated
}

// NestingSeparator joins enclosing type names.
const NestingSeparator = "+"

// NamespaceSeparator joins namespace segments.
const NamespaceSeparator = "."

// GeneratedBaseName is the base name of the generated assembly metadata
// file. Matching is by bare name only.
const GeneratedBaseName = "AssemblyInfo"

// ErrUnavailable is returned when the resolver was built without cgo.
var ErrUnavailable = errors.New("C# resolver requires cgo (tree-sitter)")

// Resolution is the outcome of resolving one file. Exactly one of
// Name or Skip is set.
type Resolution struct {
	Namespace string
	Name      string
	Skip      SkipReason
}

// Skipped reports whether the file produced no class.
func (r Resolution) Skipped() bool {
	return r.Skip != ""
}

// FullName returns namespace.Name, or Name when there is no namespace.
func (r Resolution) FullName() string {
	return FullName(r.Namespace, r.Name)
}

// FullName joins a namespace and type name the way the editor displays
// script classes.
func FullName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + NamespaceSeparator + name
}

// Declaration is one class declaration found in a file.
type Declaration struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"` // nested name, outer types joined with NestingSeparator
	Line      int    `json:"line"` // 1-indexed
}

// classify decides the skip reason for a file without classes.
func classify(hasOtherType bool, fileBaseName string) SkipReason {
	if hasOtherType {
		return SkipNonClassType
	}
	if isGenerated(fileBaseName) {
		return SkipKnownGenerated
	}
	return SkipClassless
}

func isGenerated(fileBaseName string) bool {
	base := fileBaseName
	if i := strings.LastIndexByte(base, '.'); i > 0 && strings.EqualFold(base[i:], ".cs") {
		base = base[:i]
	}
	return base == GeneratedBaseName
}

// normalizeName drops whitespace inside a qualified name such as
// "A . B".
func normalizeName(s string) string {
	return strings.Join(strings.Fields(s), "")
}
