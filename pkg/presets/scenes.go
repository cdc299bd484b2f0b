package presets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/midifade/pkg/cuelist"
	"github.com/james-see/midifade/pkg/fade"
	"gopkg.in/yaml.v3"
)

// sceneDocument is the object form of a scene file, the same shape the
// external backend receives on stdin
type sceneDocument struct {
	Scenes []fade.Scene `json:"scenes" yaml:"scenes"`
}

// ReadSceneFile loads scenes from a cue sheet (.txt, .cue) or from a JSON
// or YAML document holding either a scene list or {"scenes": [...]}.
// Warnings are only produced for cue sheets.
func ReadSceneFile(path string) ([]fade.Scene, []cuelist.Warning, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".cue":
		return cuelist.ParseFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		format = DetectFormatFromContent(data)
	}

	var scenes []fade.Scene
	switch format {
	case FormatJSON:
		scenes, err = decodeScenesJSON(data)
	case FormatYAML:
		scenes, err = decodeScenesYAML(data)
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read scenes from %s: %w", path, err)
	}
	return scenes, nil, nil
}

func decodeScenesJSON(data []byte) ([]fade.Scene, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var scenes []fade.Scene
		err := json.Unmarshal(trimmed, &scenes)
		return scenes, err
	}

	var doc sceneDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if doc.Scenes == nil {
		return nil, ErrUnknownFormat
	}
	return doc.Scenes, nil
}

func decodeScenesYAML(data []byte) ([]fade.Scene, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, ErrUnknownFormat
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var scenes []fade.Scene
		err := root.Decode(&scenes)
		return scenes, err
	case yaml.MappingNode:
		var doc sceneDocument
		if err := root.Decode(&doc); err != nil {
			return nil, err
		}
		if doc.Scenes == nil {
			return nil, ErrUnknownFormat
		}
		return doc.Scenes, nil
	default:
		return nil, ErrUnknownFormat
	}
}
