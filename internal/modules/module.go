package modules

import (
	"upc/internal/unity"
)

// SourceFile is one script merged into a module. The JSON names are the
// map artifact format and must stay stable.
type SourceFile struct {
	// Path is the source file location at build time
	Path string `json:"path"`

	// OriginalGUID is the identity the file had before merging, from its sidecar
	OriginalGUID string `json:"originalGuid"`

	Namespace string `json:"classNamespace"`
	ClassName string `json:"className"` // nested types joined with '+'
	FullName  string `json:"classFullName"`

	// FileID is the local identifier of the class inside the module
	FileID int32 `json:"fileID"`

	ExecutionOrder int `json:"executionOrder"`
}

// Module is a compiled module and the scripts it absorbed.
type Module struct {
	Name           string            `json:"name"`
	Definition     *unity.Definition `json:"asmdef"`
	DefinitionPath string            `json:"asmDefPath"`
	ScopeDir       string            `json:"scopeDir"`
	BinaryPath     string            `json:"srcDllPath"`

	// GUID is the fresh identity of the module, 32 lowercase hex characters
	GUID string `json:"guid"`

	Files []*SourceFile `json:"files"`
}

// ExecutionOrders returns the non-default execution orders of the
// module's classes, in file order.
func (m *Module) ExecutionOrders() []unity.ExecutionOrder {
	var out []unity.ExecutionOrder
	for _, f := range m.Files {
		if f.ExecutionOrder != 0 {
			out = append(out, unity.ExecutionOrder{Class: f.FullName, Order: f.ExecutionOrder})
		}
	}
	return out
}

// FilePaths returns the paths of the module's files.
func (m *Module) FilePaths() []string {
	out := make([]string, len(m.Files))
	for i, f := range m.Files {
		out[i] = f.Path
	}
	return out
}
