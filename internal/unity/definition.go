package unity

import (
	"encoding/json"
	"fmt"
	"os"

	"upc/internal/errors"
)

// VersionDefine adds a define when a package version matches expression.
type VersionDefine struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Define     string `json:"define"`
}

// Definition is a module definition (.asmdef). Only the fields the
// precompiler needs are kept.
type Definition struct {
	Name              string          `json:"name"`
	IncludePlatforms  []string        `json:"includePlatforms"`
	ExcludePlatforms  []string        `json:"excludePlatforms"`
	DefineConstraints []string        `json:"defineConstraints"`
	VersionDefines    []VersionDefine `json:"versionDefines"`
}

// ParseDefinition decodes a module definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	if def.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	def.normalize()
	return &def, nil
}

// ReadDefinition reads and decodes the module definition at path.
func ReadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.DefinitionInvalid, "read "+path, err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, errors.New(errors.DefinitionInvalid, "parse "+path, err)
	}
	return def, nil
}

// Constraints returns the version defines followed by the define
// constraints, the order the plugin importer expects.
func (d *Definition) Constraints() []string {
	out := make([]string, 0, len(d.VersionDefines)+len(d.DefineConstraints))
	for _, vd := range d.VersionDefines {
		out = append(out, vd.Define)
	}
	return append(out, d.DefineConstraints...)
}

func (d *Definition) normalize() {
	if d.IncludePlatforms == nil {
		d.IncludePlatforms = []string{}
	}
	if d.ExcludePlatforms == nil {
		d.ExcludePlatforms = []string{}
	}
	if d.DefineConstraints == nil {
		d.DefineConstraints = []string{}
	}
	if d.VersionDefines == nil {
		d.VersionDefines = []VersionDefine{}
	}
}
