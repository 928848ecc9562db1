//go:build cgo

package csharp

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

const (
	nodeClass           = "class_declaration"
	nodeNamespace       = "namespace_declaration"
	nodeFileScopedNS    = "file_scoped_namespace_declaration"
	nodeCompilationUnit = "compilation_unit"
	nodeStruct          = "struct_declaration"
	nodeInterface       = "interface_declaration"
	nodeEnum            = "enum_declaration"
	nodeRecord          = "record_declaration"
	nodeRecordStruct    = "record_struct_declaration"
	fieldName           = "name"
)

// Types that contribute to a nested name.
var enclosingTypes = map[string]bool{
	nodeClass:        true,
	nodeStruct:       true,
	nodeInterface:    true,
	nodeRecord:       true,
	nodeRecordStruct: true,
}

// Non-class declarations that make a classless file expected.
var otherTypes = map[string]bool{
	nodeStruct:       true,
	nodeInterface:    true,
	nodeEnum:         true,
	nodeRecord:       true,
	nodeRecordStruct: true,
}

// Resolver resolves script classes from C# source. It is safe for
// concurrent use; each call gets its own parser.
type Resolver struct {
	defines []string
}

// NewResolver creates a resolver that evaluates #if blocks with defines.
func NewResolver(defines []string) *Resolver {
	return &Resolver{defines: append([]string(nil), defines...)}
}

// IsAvailable reports whether C# parsing is compiled in.
func IsAvailable() bool {
	return true
}

// Resolve returns the namespace and nested name of the first class
// declared in source, in document order. Later classes are ignored.
func (r *Resolver) Resolve(ctx context.Context, source []byte, fileBaseName string) (Resolution, error) {
	var res Resolution
	err := r.withTree(ctx, source, func(root *sitter.Node, src []byte) {
		var first *sitter.Node
		hasOther := false
		walk(root, func(n *sitter.Node) bool {
			switch t := n.Type(); {
			case t == nodeClass:
				first = n
				return false
			case otherTypes[t]:
				hasOther = true
			}
			return true
		})

		if first == nil {
			res = Resolution{Skip: classify(hasOther, fileBaseName)}
			return
		}
		decl := describe(root, first, src)
		res = Resolution{Namespace: decl.Namespace, Name: decl.Name}
	})
	return res, err
}

// Declarations lists every class declaration in document order.
func (r *Resolver) Declarations(ctx context.Context, source []byte) ([]Declaration, error) {
	var decls []Declaration
	err := r.withTree(ctx, source, func(root *sitter.Node, src []byte) {
		walk(root, func(n *sitter.Node) bool {
			if n.Type() == nodeClass {
				decls = append(decls, describe(root, n, src))
			}
			return true
		})
	})
	return decls, err
}

func (r *Resolver) withTree(ctx context.Context, source []byte, fn func(root *sitter.Node, src []byte)) error {
	src := Preprocess(source, r.defines)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(csharp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	fn(tree.RootNode(), src)
	return nil
}

// walk visits nodes in pre-order until visit returns false.
func walk(root *sitter.Node, visit func(*sitter.Node) bool) {
	var rec func(*sitter.Node) bool
	rec = func(n *sitter.Node) bool {
		if n == nil {
			return true
		}
		if !visit(n) {
			return false
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if !rec(n.NamedChild(i)) {
				return false
			}
		}
		return true
	}
	rec(root)
}

// describe computes the namespace and nested name of a class node.
func describe(root, n *sitter.Node, src []byte) Declaration {
	name := nodeName(n, src)
	var namespaces []string
	sawNamespace := false

	for p := n.Parent(); p != nil; p = p.Parent() {
		switch t := p.Type(); {
		case enclosingTypes[t]:
			name = nodeName(p, src) + NestingSeparator + name
		case t == nodeNamespace || t == nodeFileScopedNS:
			namespaces = append([]string{nodeName(p, src)}, namespaces...)
			sawNamespace = true
		}
	}

	// Depending on grammar version a file-scoped namespace either wraps
	// the following declarations or precedes them as a sibling.
	if !sawNamespace {
		if ns := precedingFileScopedNamespace(root, n, src); ns != "" {
			namespaces = []string{ns}
		}
	}

	var namespace string
	for i, ns := range namespaces {
		if i > 0 {
			namespace += NamespaceSeparator
		}
		namespace += ns
	}

	return Declaration{
		Namespace: namespace,
		Name:      name,
		Line:      int(n.StartPoint().Row) + 1,
	}
}

func precedingFileScopedNamespace(root, n *sitter.Node, src []byte) string {
	if root == nil || root.Type() != nodeCompilationUnit {
		return ""
	}
	ns := ""
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c := root.NamedChild(i)
		if c.StartByte() >= n.StartByte() {
			break
		}
		if c.Type() == nodeFileScopedNS {
			ns = nodeName(c, src)
		}
	}
	return ns
}

func nodeName(n *sitter.Node, src []byte) string {
	nameNode := n.ChildByFieldName(fieldName)
	if nameNode == nil {
		return ""
	}
	return normalizeName(string(src[nameNode.StartByte():nameNode.EndByte()]))
}
