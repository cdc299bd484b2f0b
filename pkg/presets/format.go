package presets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format represents a preset file format
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatUnknown Format = "unknown"
)

// ExportVersion is written into every export envelope
const ExportVersion = "1.0.0"

// Export is the envelope written by Export and accepted by Import
type Export struct {
	Exported string   `json:"exported" yaml:"exported"`
	Version  string   `json:"version" yaml:"version"`
	Presets  []Preset `json:"presets" yaml:"presets"`
}

// DetectFormat detects the format of a file based on its extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent guesses the format from the first significant byte
func DetectFormatFromContent(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormatUnknown
	}
	switch trimmed[0] {
	case '{', '[':
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Decode reads presets from an export envelope or a bare list.
// FormatUnknown sniffs the content.
func Decode(r io.Reader, format Format) ([]Preset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	if format == FormatUnknown {
		format = DetectFormatFromContent(data)
	}

	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	default:
		return nil, ErrUnknownFormat
	}
}

func decodeJSON(data []byte) ([]Preset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Preset
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to parse presets: %w", err)
		}
		return list, nil
	}

	var env Export
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if env.Presets == nil {
		return nil, ErrUnknownFormat
	}
	return env.Presets, nil
}

func decodeYAML(data []byte) ([]Preset, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, ErrUnknownFormat
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []Preset
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("failed to parse presets: %w", err)
		}
		return list, nil
	case yaml.MappingNode:
		var env Export
		if err := root.Decode(&env); err != nil {
			return nil, fmt.Errorf("failed to parse presets: %w", err)
		}
		if env.Presets == nil {
			return nil, ErrUnknownFormat
		}
		return env.Presets, nil
	default:
		return nil, ErrUnknownFormat
	}
}

// Encode writes presets inside an export envelope
func Encode(w io.Writer, format Format, presets []Preset, now time.Time) error {
	if presets == nil {
		presets = []Preset{}
	}
	env := Export{
		Exported: now.UTC().Format(time.RFC3339),
		Version:  ExportVersion,
		Presets:  presets,
	}

	switch format {
	case FormatJSON, FormatUnknown:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return err
		}
		return enc.Close()
	default:
		return ErrUnknownFormat
	}
}
