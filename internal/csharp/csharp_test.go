package csharp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		hasOther bool
		base     string
		want     SkipReason
	}{
		{"struct only", true, "Point", SkipNonClassType},
		{"struct wins over generated name", true, "AssemblyInfo", SkipNonClassType},
		{"generated", false, "AssemblyInfo", SkipKnownGenerated},
		{"generated with extension", false, "AssemblyInfo.cs", SkipKnownGenerated},
		{"generated match is case sensitive", false, "assemblyinfo", SkipClassless},
		{"classless", false, "Empty", SkipClassless},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.hasOther, tt.base))
		})
	}
}

func TestSkipReason_Silent(t *testing.T) {
	assert.True(t, SkipNonClassType.Silent())
	assert.True(t, SkipKnownGenerated.Silent())
	assert.False(t, SkipClassless.Silent())
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Game.Core.Player", FullName("Game.Core", "Player"))
	assert.Equal(t, "Player", FullName("", "Player"))
	assert.Equal(t, "N.Outer+Inner", Resolution{Namespace: "N", Name: "Outer+Inner"}.FullName())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "A.B.C", normalizeName("A . B\n.C"))
}
