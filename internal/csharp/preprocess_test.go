package csharp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocess_Conditions(t *testing.T) {
	src := strings.Join([]string{
		"#if UNITY_EDITOR",
		"class EditorOnly {}",
		"#elif UNITY_STANDALONE",
		"class Standalone {}",
		"#else",
		"class Fallback {}",
		"#endif",
	}, "\n")

	tests := []struct {
		name    string
		defines []string
		want    string
	}{
		{"first branch", []string{"UNITY_EDITOR"}, "class EditorOnly {}"},
		{"elif branch", []string{"UNITY_STANDALONE"}, "class Standalone {}"},
		{"both set takes first", []string{"UNITY_EDITOR", "UNITY_STANDALONE"}, "class EditorOnly {}"},
		{"else branch", nil, "class Fallback {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(Preprocess([]byte(src), tt.defines))
			assert.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"), "line count must be kept")
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestPreprocess_Nested(t *testing.T) {
	src := strings.Join([]string{
		"#if A",
		"  #if B",
		"class AB {}",
		"  #else",
		"class AnotB {}",
		"  #endif",
		"#else",
		"  #if B",
		"class NotAB {}",
		"  #endif",
		"#endif",
	}, "\n")

	assert.Equal(t, "class AB {}", strings.TrimSpace(string(Preprocess([]byte(src), []string{"A", "B"}))))
	assert.Equal(t, "class AnotB {}", strings.TrimSpace(string(Preprocess([]byte(src), []string{"A"}))))
	assert.Equal(t, "class NotAB {}", strings.TrimSpace(string(Preprocess([]byte(src), []string{"B"}))))
	assert.Equal(t, "", strings.TrimSpace(string(Preprocess([]byte(src), nil))))
}

func TestPreprocess_DefineUndef(t *testing.T) {
	src := strings.Join([]string{
		"#define LOCAL",
		"#if LOCAL",
		"class Defined {}",
		"#endif",
		"#undef LOCAL",
		"#if LOCAL",
		"class StillDefined {}",
		"#endif",
		"#if false",
		"#define HIDDEN",
		"#endif",
		"#if HIDDEN",
		"class Hidden {}",
		"#endif",
	}, "\n")

	out := string(Preprocess([]byte(src), nil))
	assert.Contains(t, out, "class Defined {}")
	assert.NotContains(t, out, "StillDefined")
	assert.NotContains(t, out, "Hidden")
	assert.NotContains(t, out, "#")
}

func TestPreprocess_KeepsCRLF(t *testing.T) {
	src := "#if X\r\nclass A {}\r\n#endif\r\nclass B {}\r\n"
	out := string(Preprocess([]byte(src), nil))
	assert.Equal(t, "\r\n\r\n\r\nclass B {}\r\n", out)
}

func TestPreprocess_OtherDirectivesBlanked(t *testing.T) {
	src := "#region Fields\nclass A {}\n#endregion\n#pragma warning disable 0649\n"
	out := string(Preprocess([]byte(src), nil))
	assert.Equal(t, "\nclass A {}\n\n\n", out)
}

func TestEvalCondition(t *testing.T) {
	symbols := map[string]bool{"A": true, "B": true}

	tests := []struct {
		expr string
		want bool
	}{
		{"A", true},
		{"C", false},
		{"!C", true},
		{"A && B", true},
		{"A && C", false},
		{"C || B", true},
		{"A && (C || B)", true},
		{"!(A && B)", false},
		{"A == B", true},
		{"A != C", true},
		{"C == false", true},
		{"true", true},
		{"false || C", false},
		{"A || B && C", true}, // && binds tighter
		{"A // trailing comment stripped by caller", false},
		{"", false},
		{"A &&", false},
		{"(A", false},
		{"A B", false},
		{"A & B", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, evalCondition(tt.expr, symbols))
		})
	}
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		line    string
		keyword string
		rest    string
		ok      bool
	}{
		{"#if DEBUG", "if", "DEBUG", true},
		{"   #  elif   A || B  // note", "elif", "A || B", true},
		{"#endif", "endif", "", true},
		{"\t#define FOO", "define", "FOO", true},
		{"class A {} // #if", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			keyword, rest, ok := parseDirective([]byte(tt.line))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.keyword, keyword)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestPreprocess_DirectivesInsideCommentsAndStrings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "block comment",
			src:  "/* usage:\n#if NEVER_DEFINED\n*/\npublic class Kept {}\n/*\n#endif\n*/",
			want: []string{"#if NEVER_DEFINED", "public class Kept {}", "#endif"},
		},
		{
			name: "verbatim string",
			src:  "class Kept {\n  const string Doc = @\"\n#if NEVER_DEFINED\n\";\n}",
			want: []string{"#if NEVER_DEFINED", "class Kept {"},
		},
		{
			name: "interpolated verbatim with doubled quote",
			src:  "class Kept {\n  string s = $@\"a \"\"{x}\"\"\n#else\n\";\n}",
			want: []string{"#else", "class Kept {"},
		},
		{
			name: "comment opener inside string",
			src:  "class Kept { string s = \"/*\"; }\n#if NEVER_DEFINED\nclass Hidden {}\n#endif",
			want: []string{"class Kept"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(Preprocess([]byte(tt.src), nil))
			assert.Equal(t, strings.Count(tt.src, "\n"), strings.Count(out, "\n"))
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			assert.NotContains(t, out, "class Hidden")
		})
	}
}

func TestPreprocess_CommentClosedBeforeDirective(t *testing.T) {
	src := "/* a */ class Kept {}\n/* one-liner */\n#if NEVER_DEFINED\nclass Hidden {}\n#endif\n// /* not a block\n#if NEVER_DEFINED\nclass AlsoHidden {}\n#endif"
	out := string(Preprocess([]byte(src), nil))
	assert.Contains(t, out, "class Kept {}")
	assert.NotContains(t, out, "Hidden")
}

func TestScanLine(t *testing.T) {
	tests := []struct {
		line  string
		start lexState
		want  lexState
	}{
		{"int x; /* open", lexCode, lexBlockComment},
		{"still */ int y;", lexBlockComment, lexCode},
		{"/* a */ /* b", lexCode, lexBlockComment},
		{"var s = @\"open", lexCode, lexVerbatim},
		{"\"\" still open", lexVerbatim, lexVerbatim},
		{"close\";", lexVerbatim, lexCode},
		{"// /* comment", lexCode, lexCode},
		{"var c = '\"'; /* x */", lexCode, lexCode},
		{"var s = \"\\\"/*\";", lexCode, lexCode},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, scanLine([]byte(tt.line), tt.start))
		})
	}
}
