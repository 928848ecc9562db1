package modules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upc/internal/errors"
	"upc/internal/unity"
)

func sampleModule() *Module {
	return &Module{
		Name:           "Game.Core",
		Definition:     &unity.Definition{Name: "Game.Core", IncludePlatforms: []string{}, ExcludePlatforms: []string{}, DefineConstraints: []string{}, VersionDefines: []unity.VersionDefine{}},
		DefinitionPath: "/p/Assets/Game/Game.Core.asmdef",
		ScopeDir:       "/p/Assets/Game",
		BinaryPath:     "/p/Temp/bin/Debug/Game.Core.dll",
		GUID:           "0123456789abcdef0123456789abcdef",
		Files: []*SourceFile{{
			Path:         "/p/Assets/Game/Player.cs",
			OriginalGUID: "aa11",
			Namespace:    "Game.Core",
			ClassName:    "Player",
			FullName:     "Game.Core.Player",
			FileID:       42606923,
		}},
	}
}

func TestWriteMap_Schema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Plugins", "Game.Core.map")
	require.NoError(t, WriteMap(path, sampleModule()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"name", "asmdef", "asmDefPath", "srcDllPath", "guid", "files"} {
		assert.Contains(t, raw, key)
	}

	files := raw["files"].([]any)
	file := files[0].(map[string]any)
	for _, key := range []string{"path", "originalGuid", "classNamespace", "className", "classFullName", "fileID", "executionOrder"} {
		assert.Contains(t, file, key)
	}
	assert.EqualValues(t, 42606923, file["fileID"])
}

func TestLoadMaps(t *testing.T) {
	dir := t.TempDir()
	first := sampleModule()
	second := sampleModule()
	second.Name = "Game.UI"
	second.Files[0].OriginalGUID = "bb22"

	require.NoError(t, WriteMap(filepath.Join(dir, "Game.UI.map"), second))
	require.NoError(t, WriteMap(filepath.Join(dir, "Nested", "Game.Core.map"), first))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Game.Core.dll.meta"), []byte("x"), 0644))

	loaded, err := LoadMaps(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Game.UI", loaded[0].Name)
	assert.Equal(t, "Game.Core", loaded[1].Name)
	assert.Equal(t, first.Files[0].FileID, loaded[1].Files[0].FileID)

	table, err := NewIdentityTable(loaded)
	require.NoError(t, err)
	e, ok := table.Lookup("aa11")
	require.True(t, ok)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", e.Module.GUID)
}

func TestReadMap_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bad.map")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := ReadMap(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.DefinitionInvalid))
}
