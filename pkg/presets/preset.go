// Package presets stores named scene collections in a JSON file
package presets

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/james-see/midifade/pkg/fade"
	"gopkg.in/yaml.v3"
)

// Preset is a named, saved list of scenes
type Preset struct {
	Name   string       `json:"name" yaml:"name"`
	Scenes []fade.Scene `json:"scenes" yaml:"scenes"`
	// Steps, when set, overrides the step count of every scene
	Steps   int    `json:"steps,omitempty" yaml:"steps,omitempty"`
	SavedAt string `json:"saved_at,omitempty" yaml:"saved_at,omitempty"`
}

// legacyPreset covers both the current layout and the older single-scene
// layout that kept channels and durations on the preset itself
type legacyPreset struct {
	Name            string       `json:"name" yaml:"name"`
	Scenes          []fade.Scene `json:"scenes" yaml:"scenes"`
	Steps           int          `json:"steps" yaml:"steps"`
	SavedAt         string       `json:"saved_at" yaml:"saved_at"`
	Channels        map[int]int  `json:"channels" yaml:"channels"`
	FadeInDuration  float64      `json:"fade_in_duration" yaml:"fade_in_duration"`
	FadeOutDuration float64      `json:"fade_out_duration" yaml:"fade_out_duration"`
}

func (l legacyPreset) normalize() Preset {
	p := Preset{Name: l.Name, Scenes: l.Scenes, Steps: l.Steps, SavedAt: l.SavedAt}
	if l.Scenes != nil || l.Channels == nil {
		return p
	}

	scene := fade.Scene{
		Name:            l.Name,
		Channels:        l.Channels,
		FadeInDuration:  l.FadeInDuration,
		FadeOutDuration: l.FadeOutDuration,
		Steps:           l.Steps,
	}
	if scene.Name == "" {
		scene.Name = "Scene 1"
	}
	if scene.FadeInDuration == 0 {
		scene.FadeInDuration = 1
	}
	if scene.FadeOutDuration == 0 {
		scene.FadeOutDuration = 1
	}
	if scene.Steps == 0 {
		scene.Steps = fade.DefaultSteps
	}
	p.Scenes = []fade.Scene{scene}
	p.Steps = scene.Steps
	return p
}

// UnmarshalJSON accepts both preset layouts
func (p *Preset) UnmarshalJSON(data []byte) error {
	var l legacyPreset
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	*p = l.normalize()
	return nil
}

// UnmarshalYAML accepts both preset layouts
func (p *Preset) UnmarshalYAML(value *yaml.Node) error {
	var l legacyPreset
	if err := value.Decode(&l); err != nil {
		return err
	}
	*p = l.normalize()
	return nil
}

// SceneList returns the scenes ready for generation, with the preset-level
// step count applied
func (p Preset) SceneList() []fade.Scene {
	scenes := make([]fade.Scene, len(p.Scenes))
	copy(scenes, p.Scenes)
	if p.Steps > 0 {
		for i := range scenes {
			scenes[i].Steps = p.Steps
		}
	}
	return scenes
}

// Validate checks the preset name and every scene
func (p Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &fade.ValidationError{Field: "preset name", Reason: "must not be empty"}
	}
	if p.Steps < 0 {
		return fmt.Errorf("preset %q: %w", p.Name, &fade.ValidationError{Field: "steps", Reason: "must not be negative"})
	}
	for _, scene := range p.SceneList() {
		if err := scene.Validate(); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return nil
}
