//go:build !cgo

package csharp

import "context"

// Resolver resolves script classes from C# source.
// This is a stub implementation when CGO is not available.
type Resolver struct {
	defines []string
}

// NewResolver creates a resolver that evaluates #if blocks with defines.
func NewResolver(defines []string) *Resolver {
	return &Resolver{defines: append([]string(nil), defines...)}
}

// IsAvailable reports whether C# parsing is compiled in.
func IsAvailable() bool {
	return false
}

// Resolve always fails with ErrUnavailable without cgo.
func (r *Resolver) Resolve(ctx context.Context, source []byte, fileBaseName string) (Resolution, error) {
	return Resolution{}, ErrUnavailable
}

// Declarations always fails with ErrUnavailable without cgo.
func (r *Resolver) Declarations(ctx context.Context, source []byte) ([]Declaration, error) {
	return nil, ErrUnavailable
}
