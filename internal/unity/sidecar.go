package unity

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"upc/internal/errors"
)

// SidecarVersionLine must be the first line of every sidecar.
const SidecarVersionLine = "fileFormatVersion: 2"

// Sidecar is what the precompiler reads from a script's .meta file.
type Sidecar struct {
	GUID           string
	ExecutionOrder int
}

// ReadSidecar reads the sidecar of sourcePath (sourcePath + ".meta").
// A missing sidecar is SIDECAR_MISSING; anything unreadable is
// SIDECAR_MALFORMED.
func ReadSidecar(sourcePath string) (*Sidecar, error) {
	metaPath := sourcePath + MetaExt
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.SidecarMissing, metaPath+" doesn't exist", nil)
		}
		return nil, errors.New(errors.IOFailure, "read "+metaPath, err)
	}
	sc, err := ParseSidecar(data)
	if err != nil {
		return nil, errors.New(errors.SidecarMalformed, metaPath, err)
	}
	return sc, nil
}

// ParseSidecar parses sidecar text. The first line must be the version
// marker and the second the guid; an executionOrder entry inside the
// importer block must be an integer.
func ParseSidecar(data []byte) (*Sidecar, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var lines []string
	for len(lines) < 2 && sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("expected at least 2 lines")
	}
	if lines[0] != SidecarVersionLine {
		return nil, fmt.Errorf("is not file format 2")
	}

	key, value, ok := strings.Cut(lines[1], ":")
	if !ok || strings.TrimSpace(key) != "guid" {
		return nil, fmt.Errorf("second line is not a guid: %q", lines[1])
	}
	guid := strings.TrimSpace(value)
	if guid == "" {
		return nil, fmt.Errorf("empty guid")
	}

	order, err := executionOrder(data)
	if err != nil {
		return nil, err
	}
	return &Sidecar{GUID: guid, ExecutionOrder: order}, nil
}

// executionOrder finds importer.executionOrder in the document. Absent
// means 0.
func executionOrder(data []byte) (int, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("invalid yaml: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return 0, nil
	}

	top := doc.Content[0]
	for i := 0; i+1 < len(top.Content); i += 2 {
		importer := top.Content[i+1]
		if importer.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(importer.Content); j += 2 {
			if importer.Content[j].Value != "executionOrder" {
				continue
			}
			v := importer.Content[j+1]
			n, err := strconv.Atoi(v.Value)
			if v.Kind != yaml.ScalarNode || err != nil {
				return 0, fmt.Errorf("executionOrder is expected to be an integer, was '%s'", v.Value)
			}
			return n, nil
		}
	}
	return 0, nil
}
