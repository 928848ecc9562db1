// Package rewrite patches serialized documents so that script references
// point at the classes inside compiled modules.
package rewrite

import (
	"regexp"
	"strconv"

	"upc/internal/modules"
	"upc/internal/unity"
)

// tokenPattern matches a script reference. Only type 3 references are
// considered; groups are fileID and guid.
var tokenPattern = regexp.MustCompile(`\{fileID: ([0-9]+), guid: ([0-9a-f]+), type: 3}`)

// Table resolves original identities. *modules.IdentityTable satisfies it.
type Table interface {
	Lookup(guid string) (modules.Entry, bool)
}

// Substitute rewrites every script reference in content whose identity is
// in table and returns the new content with the number of substitutions.
// References with a fileID other than the script sentinel, or an unknown
// guid, are left untouched. When nothing matches, content is returned
// as is.
func Substitute(content []byte, table Table) ([]byte, int) {
	matches := tokenPattern.FindAllSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, 0
	}

	var out []byte
	last, n := 0, 0
	for _, m := range matches {
		fileID := string(content[m[2]:m[3]])
		if fileID != unity.ScriptFileID {
			continue
		}
		entry, ok := table.Lookup(string(content[m[4]:m[5]]))
		if !ok {
			continue
		}
		if out == nil {
			out = make([]byte, 0, len(content)+64)
		}
		out = append(out, content[last:m[0]]...)
		out = appendToken(out, entry.File.FileID, entry.Module.GUID)
		last = m[1]
		n++
	}
	if n == 0 {
		return content, 0
	}
	return append(out, content[last:]...), n
}

func appendToken(dst []byte, fileID int32, guid string) []byte {
	dst = append(dst, "{fileID: "...)
	dst = strconv.AppendInt(dst, int64(fileID), 10)
	dst = append(dst, ", guid: "...)
	dst = append(dst, guid...)
	dst = append(dst, ", type: "...)
	dst = strconv.AppendInt(dst, unity.ScriptTypeTag, 10)
	return append(dst, '}')
}
