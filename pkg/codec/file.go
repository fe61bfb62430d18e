package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sspace/pkg/space"
)

// Syntax is the file syntax of a persisted space.
type Syntax string

// Supported syntaxes.
const (
	SyntaxJSON Syntax = "json"
	SyntaxYAML Syntax = "yaml"
)

// SyntaxFromPath picks the syntax from a file extension.
func SyntaxFromPath(path string) (Syntax, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SyntaxJSON, nil
	case ".yaml", ".yml":
		return SyntaxYAML, nil
	}
	return "", fmt.Errorf("unsupported space file extension %q (expected .json, .yaml or .yml)", filepath.Ext(path))
}

// Marshal encodes m. JSON output is indented and keeps key order.
func Marshal(m *Map, syntax Syntax) ([]byte, error) {
	switch syntax {
	case SyntaxJSON:
		data, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case SyntaxYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported syntax %q", syntax)
}

// Unmarshal decodes JSON or YAML into an ordered Map. Both go through the
// YAML parser, JSON being valid YAML.
func Unmarshal(data []byte) (*Map, error) {
	m := NewMap()
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if err := m.UnmarshalYAML(&node); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFile reads a space file into target. Canonical and compact entries
// may be mixed.
func LoadFile(path string, target *space.Space) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read space file: %w", err)
	}
	m, err := Unmarshal(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := Deserialize(m, target); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// SaveFile writes s to path. The syntax follows the file extension.
func SaveFile(path string, s *space.Space, format Format) error {
	syntax, err := SyntaxFromPath(path)
	if err != nil {
		return err
	}
	m, err := Encode(s, format)
	if err != nil {
		return err
	}
	data, err := Marshal(m, syntax)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // space files are not secret
		return fmt.Errorf("failed to write space file: %w", err)
	}
	return nil
}
