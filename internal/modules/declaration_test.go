package modules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseModulesFile(t *testing.T) {
	tempDir := t.TempDir()

	modulesContent := `
version = 1

[[module]]
name = "Game.Runtime"
path = "Game/Scripts"
define_constraints = ["GAME_RUNTIME"]

[[module]]
path = "Tools/Editor"
include_platforms = ["Editor"]
`

	modulesPath := filepath.Join(tempDir, ModulesDeclarationFile)
	if err := os.WriteFile(modulesPath, []byte(modulesContent), 0644); err != nil {
		t.Fatalf("Failed to write MODULES.toml: %v", err)
	}

	modulesFile, err := ParseModulesFile(modulesPath)
	if err != nil {
		t.Fatalf("ParseModulesFile failed: %v", err)
	}

	if modulesFile.Version != 1 {
		t.Errorf("Expected version 1, got %d", modulesFile.Version)
	}
	if len(modulesFile.Modules) != 2 {
		t.Fatalf("Expected 2 modules, got %d", len(modulesFile.Modules))
	}

	runtime := modulesFile.Modules[0]
	if runtime.Name != "Game.Runtime" || runtime.Path != "Game/Scripts" {
		t.Errorf("Unexpected first module: %+v", runtime)
	}
	if len(runtime.DefineConstraints) != 1 || runtime.DefineConstraints[0] != "GAME_RUNTIME" {
		t.Errorf("Expected define constraint GAME_RUNTIME, got %v", runtime.DefineConstraints)
	}

	editor := modulesFile.Modules[1]
	if len(editor.IncludePlatforms) != 1 || editor.IncludePlatforms[0] != "Editor" {
		t.Errorf("Expected include platform Editor, got %v", editor.IncludePlatforms)
	}
}

func TestParseModulesFile_DefaultVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), ModulesDeclarationFile)
	if err := os.WriteFile(path, []byte("[[module]]\npath = \"A\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	modulesFile, err := ParseModulesFile(path)
	if err != nil {
		t.Fatalf("ParseModulesFile failed: %v", err)
	}
	if modulesFile.Version != 1 {
		t.Errorf("Expected version to default to 1, got %d", modulesFile.Version)
	}
}

func TestParseModulesFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ModulesDeclarationFile)
	if err := os.WriteFile(path, []byte("[[module]\npath = "), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ParseModulesFile(path); err == nil {
		t.Error("Expected error for malformed TOML")
	}
}

func TestLoadDeclaredModules(t *testing.T) {
	scanRoot := t.TempDir()
	binDir := filepath.Join(scanRoot, "bin")

	content := `
version = 1

[[module]]
name = "Game.Runtime"
path = "Game/Scripts"

[[module]]
path = "Tools/Editor"
exclude_platforms = ["WSA"]
`
	if err := os.WriteFile(filepath.Join(scanRoot, ModulesDeclarationFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	modules, err := LoadDeclaredModules(scanRoot, binDir)
	if err != nil {
		t.Fatalf("LoadDeclaredModules failed: %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("Expected 2 modules, got %d", len(modules))
	}

	m := modules[0]
	if m.Name != "Game.Runtime" {
		t.Errorf("Expected name Game.Runtime, got %s", m.Name)
	}
	if want := filepath.Join(scanRoot, "Game", "Scripts"); m.ScopeDir != want {
		t.Errorf("ScopeDir = %q, want %q", m.ScopeDir, want)
	}
	if want := filepath.Join(binDir, "Game.Runtime.dll"); m.BinaryPath != want {
		t.Errorf("BinaryPath = %q, want %q", m.BinaryPath, want)
	}
	if m.Definition == nil || m.Definition.Name != "Game.Runtime" {
		t.Errorf("Expected definition named Game.Runtime, got %+v", m.Definition)
	}

	// Name falls back to the last path segment
	if modules[1].Name != "Editor" {
		t.Errorf("Expected derived name Editor, got %s", modules[1].Name)
	}
	if got := modules[1].Definition.ExcludePlatforms; len(got) != 1 || got[0] != "WSA" {
		t.Errorf("Expected exclude platform WSA, got %v", got)
	}
	if modules[1].Definition.IncludePlatforms == nil {
		t.Error("Expected empty, non-nil include platforms")
	}
}

func TestLoadDeclaredModules_NoFile(t *testing.T) {
	modules, err := LoadDeclaredModules(t.TempDir(), "bin")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if modules != nil {
		t.Errorf("Expected nil modules, got %v", modules)
	}
}

func TestLoadDeclaredModules_MissingPath(t *testing.T) {
	scanRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(scanRoot, ModulesDeclarationFile), []byte("[[module]]\nname = \"X\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadDeclaredModules(scanRoot, "bin"); err == nil {
		t.Error("Expected error for declaration without path")
	}
}

func TestCreateExampleModulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ModulesDeclarationFile)
	if err := CreateExampleModulesFile(path); err != nil {
		t.Fatalf("CreateExampleModulesFile failed: %v", err)
	}

	modulesFile, err := ParseModulesFile(path)
	if err != nil {
		t.Fatalf("ParseModulesFile failed: %v", err)
	}
	if len(modulesFile.Modules) != 2 {
		t.Errorf("Expected 2 example modules, got %d", len(modulesFile.Modules))
	}
}
