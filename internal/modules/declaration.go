package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"upc/internal/paths"
	"upc/internal/unity"
)

// ModulesDeclarationFile is the default filename for module declarations
const ModulesDeclarationFile = "MODULES.toml"

// ModuleDeclaration declares a module for a directory that has no
// .asmdef of its own.
type ModuleDeclaration struct {
	// Name is the module name, also the compiled binary name
	Name string `toml:"name"`

	// Path is the scan-root-relative directory the module owns
	Path string `toml:"path"`

	IncludePlatforms  []string `toml:"include_platforms,omitempty"`
	ExcludePlatforms  []string `toml:"exclude_platforms,omitempty"`
	DefineConstraints []string `toml:"define_constraints,omitempty"`
}

// ModulesFile represents the root structure of MODULES.toml
type ModulesFile struct {
	// Version is the schema version
	Version int `toml:"version"`

	// Modules is the list of declared modules
	Modules []ModuleDeclaration `toml:"module"`
}

// ParseModulesFile parses a MODULES.toml file from the given path
func ParseModulesFile(filePath string) (*ModulesFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read MODULES.toml: %w", err)
	}

	var modulesFile ModulesFile
	if err := toml.Unmarshal(data, &modulesFile); err != nil {
		return nil, fmt.Errorf("failed to parse MODULES.toml: %w", err)
	}

	if modulesFile.Version < 1 {
		modulesFile.Version = 1
	}

	return &modulesFile, nil
}

// LoadDeclaredModules loads declared modules from MODULES.toml under
// scanRoot if it exists. binaryDir is where compiled binaries live.
func LoadDeclaredModules(scanRoot string, binaryDir string) ([]*Module, error) {
	filePath := filepath.Join(scanRoot, ModulesDeclarationFile)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	}

	modulesFile, err := ParseModulesFile(filePath)
	if err != nil {
		return nil, err
	}

	return convertDeclarationsToModules(scanRoot, filePath, binaryDir, modulesFile.Modules)
}

func convertDeclarationsToModules(scanRoot, filePath, binaryDir string, declarations []ModuleDeclaration) ([]*Module, error) {
	var modules []*Module

	for _, decl := range declarations {
		if decl.Path == "" {
			return nil, fmt.Errorf("module declaration missing required 'path' field")
		}

		name := decl.Name
		if name == "" {
			parts := strings.Split(strings.TrimRight(paths.NormalizePath(decl.Path), "/"), "/")
			name = parts[len(parts)-1]
		}

		def := &unity.Definition{
			Name:              name,
			IncludePlatforms:  nonNil(decl.IncludePlatforms),
			ExcludePlatforms:  nonNil(decl.ExcludePlatforms),
			DefineConstraints: nonNil(decl.DefineConstraints),
			VersionDefines:    []unity.VersionDefine{},
		}

		modules = append(modules, &Module{
			Name:           name,
			Definition:     def,
			DefinitionPath: filePath,
			ScopeDir:       paths.JoinCanonical(scanRoot, decl.Path),
			BinaryPath:     filepath.Join(binaryDir, name+".dll"),
		})
	}

	return modules, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// WriteModulesFile writes a ModulesFile to the given path
func WriteModulesFile(filePath string, modulesFile *ModulesFile) error {
	data, err := toml.Marshal(modulesFile)
	if err != nil {
		return fmt.Errorf("failed to marshal MODULES.toml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write MODULES.toml: %w", err)
	}

	return nil
}

// CreateExampleModulesFile creates an example MODULES.toml file
func CreateExampleModulesFile(filePath string) error {
	example := &ModulesFile{
		Version: 1,
		Modules: []ModuleDeclaration{
			{
				Name: "Game.Runtime",
				Path: "Game/Scripts",
			},
			{
				Name:             "Game.Editor",
				Path:             "Game/Editor",
				IncludePlatforms: []string{unity.PlatformEditor},
			},
		},
	}

	return WriteModulesFile(filePath, example)
}
