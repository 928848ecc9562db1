// Package stablehash computes the 32-bit local identifier the editor
// assigns to a script class living inside a compiled module.
//
// The value is derived from the first four bytes of an MD4 digest over
// a fixed prefix, the namespace and the type name. It must be bit-exact
// with the editor, so nothing here may change without updating the
// golden vectors in the tests.
package stablehash

import (
	"golang.org/x/crypto/md4"
)

// prefix is the serialized class-id header the editor hashes ahead of
// the type identity (class id 115, little-endian, as a 4-byte tag).
var prefix = []byte{'s', 0, 0, 0}

// Compute returns the local identifier for typeName in namespace.
// typeName uses '+' to separate nested types. Both strings are hashed
// as UTF-8 with no separator between them.
func Compute(namespace, typeName string) int32 {
	h := md4.New()
	h.Write(prefix)
	h.Write([]byte(namespace))
	h.Write([]byte(typeName))
	return FromDigest(h.Sum(nil))
}

// FromDigest reduces a digest to the identifier: bytes 3..0 assembled
// with byte 3 most significant and reinterpreted as signed.
func FromDigest(d []byte) int32 {
	return int32(uint32(d[3])<<24 | uint32(d[2])<<16 | uint32(d[1])<<8 | uint32(d[0]))
}
