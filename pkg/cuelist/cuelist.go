// Package cuelist reads scenes from plain-text cue sheets.
//
// Each non-blank line that does not start with '#' describes one scene:
//
//	name;channels;fade_in;fade_out[;steps]
//
// channels is a comma separated list of "channel:velocity" or bare
// "channel" (velocity 127). Missing fade durations default to one second
// and missing steps to fade.DefaultSteps.
package cuelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/james-see/midifade/pkg/fade"
)

// Defaults for omitted fields
const (
	DefaultVelocity = 127
	DefaultDuration = 1.0
)

// Warning describes a line that was skipped
type Warning struct {
	Line int
	Text string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %v", w.Line, w.Err)
}

// ParseFile reads a cue sheet from disk
func ParseFile(filename string) ([]fade.Scene, []Warning, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cue sheet: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads every scene line from r. Malformed lines are skipped and
// reported as warnings; only read errors are returned as err.
func Parse(r io.Reader) ([]fade.Scene, []Warning, error) {
	var scenes []fade.Scene
	var warnings []Warning

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		scene, err := ParseLine(line)
		if err != nil {
			warnings = append(warnings, Warning{Line: lineNum, Text: line, Err: err})
			continue
		}
		scenes = append(scenes, scene)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read cue sheet: %w", err)
	}

	return scenes, warnings, nil
}

// ParseLine parses a single "name;channels;fade_in;fade_out[;steps]" line
func ParseLine(line string) (fade.Scene, error) {
	parts := strings.Split(line, ";")
	if len(parts) < 2 {
		return fade.Scene{}, fmt.Errorf("expected at least name;channels, got %q", line)
	}

	scene := fade.Scene{
		Name:            strings.TrimSpace(parts[0]),
		FadeInDuration:  DefaultDuration,
		FadeOutDuration: DefaultDuration,
		Steps:           fade.DefaultSteps,
	}
	if scene.Name == "" {
		return fade.Scene{}, fmt.Errorf("missing scene name")
	}

	channels, err := ParseChannels(parts[1])
	if err != nil {
		return fade.Scene{}, err
	}
	scene.Channels = channels

	if len(parts) > 2 {
		if scene.FadeInDuration, err = parseSeconds(parts[2], "fade-in"); err != nil {
			return fade.Scene{}, err
		}
	}
	if len(parts) > 3 {
		if scene.FadeOutDuration, err = parseSeconds(parts[3], "fade-out"); err != nil {
			return fade.Scene{}, err
		}
	}
	if len(parts) > 4 && strings.TrimSpace(parts[4]) != "" {
		steps, err := strconv.Atoi(strings.TrimSpace(parts[4]))
		if err != nil {
			return fade.Scene{}, fmt.Errorf("invalid steps %q", parts[4])
		}
		scene.Steps = steps
	}

	return scene, nil
}

// ParseChannels parses "1:127, 2:64, 3" into a channel to velocity map
func ParseChannels(s string) (map[int]int, error) {
	channels := map[int]int{}
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no channels given")
	}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		chStr, velStr, hasVel := strings.Cut(pair, ":")
		ch, err := strconv.Atoi(strings.TrimSpace(chStr))
		if err != nil {
			return nil, fmt.Errorf("invalid channel %q", chStr)
		}

		vel := DefaultVelocity
		if hasVel {
			vel, err = strconv.Atoi(strings.TrimSpace(velStr))
			if err != nil {
				return nil, fmt.Errorf("invalid velocity %q for channel %d", velStr, ch)
			}
		}
		channels[ch] = vel
	}

	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels given")
	}
	return channels, nil
}

func parseSeconds(s, what string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDuration, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q", what, s)
	}
	return v, nil
}
