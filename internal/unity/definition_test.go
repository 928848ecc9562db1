package unity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upc/internal/errors"
)

func TestParseDefinition(t *testing.T) {
	data := []byte(`{
    "name": "Game.Core",
    "references": ["Unity.Mathematics"],
    "includePlatforms": [],
    "excludePlatforms": ["WSA"],
    "allowUnsafeCode": false,
    "defineConstraints": ["ENABLE_GAME"],
    "versionDefines": [
        {"name": "com.unity.inputsystem", "expression": "1.0.0", "define": "HAS_INPUT"}
    ]
}`)

	def, err := ParseDefinition(data)
	require.NoError(t, err)
	assert.Equal(t, "Game.Core", def.Name)
	assert.Equal(t, []string{"WSA"}, def.ExcludePlatforms)
	assert.Equal(t, []string{}, def.IncludePlatforms)
	assert.Equal(t, []string{"HAS_INPUT", "ENABLE_GAME"}, def.Constraints())
}

func TestParseDefinition_Errors(t *testing.T) {
	_, err := ParseDefinition([]byte(`{"references": []}`))
	assert.Error(t, err, "name is required")

	_, err = ParseDefinition([]byte(`{not json`))
	assert.Error(t, err)
}

func TestReadDefinition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Game.asmdef")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Game"}`), 0644))

	def, err := ReadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "Game", def.Name)
	assert.Empty(t, def.Constraints())

	_, err = ReadDefinition(filepath.Join(dir, "Missing.asmdef"))
	assert.True(t, errors.IsCode(err, errors.DefinitionInvalid))
}
