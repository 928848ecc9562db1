package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upc/internal/errors"
	"upc/internal/modules"
	"upc/internal/paths"
	"upc/internal/pipeline"
	"upc/internal/stablehash"
	"upc/internal/storage"
)

// execute runs the root command with args and returns what it wrote to
// stdout. Flags are reset afterwards since the command tree is global.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestHashCmd_JSON(t *testing.T) {
	out, err := execute(t, "hash", "Game.Core", "Player", "--format", "json")
	require.NoError(t, err)

	var resp HashResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "Game.Core", resp.Namespace)
	assert.Equal(t, "Player", resp.TypeName)
	assert.Equal(t, "Game.Core.Player", resp.FullName)
	assert.Equal(t, int32(42606923), resp.FileID)
}

func TestHashCmd_Human(t *testing.T) {
	out, err := execute(t, "hash", "", "Outer+Inner")
	require.NoError(t, err)
	assert.Equal(t, "Outer+Inner: 176992872\n", out)
}

func TestHashCmd_WrongArgs(t *testing.T) {
	_, err := execute(t, "hash", "OnlyNamespace")
	assert.Error(t, err)
}

func TestResolveCmd_MissingFile(t *testing.T) {
	_, err := execute(t, "resolve", filepath.Join(t.TempDir(), "Nope.cs"), "--format", "json")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.IOFailure))
}

func writeGameMap(t *testing.T, dst string) {
	t.Helper()
	m := &modules.Module{
		Name: "Game",
		GUID: "0123456789abcdef0123456789abcdef",
		Files: []*modules.SourceFile{
			{Path: "/src/Assets/Game/Player.cs", OriginalGUID: "aa11", Namespace: "Game", ClassName: "Player",
				FullName: "Game.Player", FileID: stablehash.Compute("Game", "Player")},
			{Path: "/src/Assets/Game/Enemy.cs", OriginalGUID: "bb22", Namespace: "Game", ClassName: "Enemy",
				FullName: "Game.Enemy", FileID: stablehash.Compute("Game", "Enemy")},
		},
	}
	require.NoError(t, modules.WriteMap(filepath.Join(paths.NewLayout(dst).Plugins("Plugins"), "Game.map"), m))
}

func TestLookupCmd_Maps(t *testing.T) {
	dst := t.TempDir()
	writeGameMap(t, dst)

	out, err := execute(t, "lookup", "aa11", "--maps", "-d", dst, "--format", "json")
	require.NoError(t, err)

	var resp LookupResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.True(t, resp.Found)
	assert.Equal(t, "Game", resp.Mapping.ModuleName)
	assert.Equal(t, "Game.Player", resp.Mapping.ClassFullName)
	assert.Equal(t, stablehash.Compute("Game", "Player"), resp.Mapping.FileID)
	assert.Empty(t, resp.Mapping.RunID)
}

func TestLookupCmd_ListsEveryIdentity(t *testing.T) {
	dst := t.TempDir()
	writeGameMap(t, dst)

	out, err := execute(t, "lookup", "-d", dst, "--format", "json")
	require.NoError(t, err)

	var resp LookupListResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "aa11", resp.Results[0].OriginalGUID)
	assert.Equal(t, "bb22", resp.Results[1].OriginalGUID)
	assert.Equal(t, "Game.Enemy", resp.Results[1].Mapping.ClassFullName)
}

func TestLookupCmd_NoLedger(t *testing.T) {
	_, err := execute(t, "lookup", "aa11", "-d", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.IOFailure))
}

func writeStatusManifest(t *testing.T, dst string) *pipeline.Manifest {
	t.Helper()
	m := &pipeline.Manifest{
		Version: pipeline.ManifestVersion,
		Tool:    "upc test",
		Compile: &pipeline.CompileSection{
			RunID:         "run-compile",
			FinishedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Src:           "/src",
			Dst:           dst,
			Configuration: "Debug",
			Modules:       []pipeline.ManifestModule{{Name: "Game", GUID: "0123", Classes: 2}},
		},
	}
	require.NoError(t, pipeline.WriteManifest(paths.NewLayout(dst).Manifest(), m))
	return m
}

func TestStatusCmd_WithoutLedger(t *testing.T) {
	dst := t.TempDir()
	writeStatusManifest(t, dst)

	out, err := execute(t, "status", "-d", dst, "--format", "json")
	require.NoError(t, err)

	var resp StatusResponseCLI
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Last.Compile)
	assert.Equal(t, "run-compile", resp.Last.Compile.RunID)
	assert.Empty(t, resp.Runs)
}

func TestStatusCmd_LedgerState(t *testing.T) {
	dst := t.TempDir()
	writeStatusManifest(t, dst)

	db, err := storage.Open(paths.NewLayout(dst).State(), nil)
	require.NoError(t, err)
	runs := storage.NewRunRepository(db)
	require.NoError(t, runs.Create(&storage.Run{
		RunID:     "run-compile",
		Kind:      storage.RunKindCompile,
		Status:    storage.RunStatusRunning,
		Dst:       dst,
		StartedAt: time.Now(),
	}))
	require.NoError(t, runs.Complete("run-compile"))
	require.NoError(t, db.Close())

	out, err := execute(t, "status", "-d", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Compile run-compile")
	assert.Contains(t, out, "[ledger: "+storage.RunStatusSucceeded+"]")
}

func TestStatusCmd_NoManifest(t *testing.T) {
	_, err := execute(t, "status", "-d", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.IOFailure))
}

func TestModulesCmd_Init(t *testing.T) {
	src := t.TempDir()
	wd := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "Assets"), 0755))

	t.Chdir(wd)

	_, err := execute(t, "modules", "-s", src, "--init")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(src, "Assets", modules.ModulesDeclarationFile))
	assert.FileExists(t, filepath.Join(wd, "upc.json"))

	_, err = execute(t, "modules", "-s", src, "--init")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ConfigInvalid))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "upc version")
}
