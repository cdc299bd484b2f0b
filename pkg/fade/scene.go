package fade

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalJSON decodes a scene, defaulting steps to DefaultSteps when the
// field is absent. An explicit 0 is kept so Validate can reject it.
func (s *Scene) UnmarshalJSON(data []byte) error {
	type raw Scene
	r := raw{Steps: DefaultSteps}
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*s = Scene(r)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents
func (s *Scene) UnmarshalYAML(value *yaml.Node) error {
	type raw Scene
	r := raw{Steps: DefaultSteps}
	if err := value.Decode(&r); err != nil {
		return err
	}
	*s = Scene(r)
	return nil
}

// Validate checks every field the generator and batch driver depend on
func (s Scene) Validate() error {
	if err := validateName(s.Name); err != nil {
		return err
	}

	wrap := func(err error) error {
		if ve, ok := err.(*ValidationError); ok {
			ve.Scene = s.Name
		}
		return err
	}

	if err := validateSteps(s.Steps); err != nil {
		return wrap(err)
	}
	if err := validateDuration("fade_in_duration", s.FadeInDuration); err != nil {
		return wrap(err)
	}
	if err := validateDuration("fade_out_duration", s.FadeOutDuration); err != nil {
		return wrap(err)
	}
	if err := validateChannels(s.Channels); err != nil {
		return wrap(err)
	}
	return nil
}

// SortedChannels returns the channel indices in ascending order
func (s Scene) SortedChannels() []int {
	return sortedKeys(s.Channels)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return &ValidationError{Scene: name, Field: "name", Reason: "must not contain path separators"}
	}
	return nil
}

func validateSteps(steps int) error {
	if steps < 1 || steps > MaxSteps {
		return &ValidationError{Field: "steps", Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxSteps, steps)}
	}
	return nil
}

func validateDuration(field string, seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be a positive number of seconds, got %v", seconds)}
	}
	// the whole ramp plus the hold phase has to fit in one VLQ delta
	if seconds*TicksPerQuarter+HoldTicks > maxTicks {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%v seconds is too long to encode", seconds)}
	}
	return nil
}

func validateChannels(channels map[int]int) error {
	for _, ch := range sortedKeys(channels) {
		if ch < 0 {
			return &ValidationError{Field: "channels", Reason: fmt.Sprintf("channel %d is negative", ch)}
		}
		if note := NoteFor(ch); note > MaxNote {
			return &ValidationError{Field: "channels", Reason: fmt.Sprintf("channel %d maps to note %d, above %d", ch, note, MaxNote)}
		}
		if v := channels[ch]; v < 0 || v > MaxVelocity {
			return &ValidationError{Field: "channels", Reason: fmt.Sprintf("channel %d velocity %d outside 0-%d", ch, v, MaxVelocity)}
		}
	}
	return nil
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
