// Package fade turns lighting scenes into timed MIDI note ramps
package fade

// Timing and mapping constants shared by the curve generator and the encoder
const (
	TicksPerQuarter = 480 // division written to the SMF header
	HoldTicks       = 192 // fade-in settle phase at the exact target (0.4 * 480)
	BaseNote        = 69  // channel c plays note BaseNote + c
	DefaultSteps    = 20
	MaxSteps        = 10000
	MaxVelocity     = 127
	MaxNote         = 127

	// maxTicks is the largest delta a 4-byte variable-length quantity can hold
	maxTicks = 0x0FFFFFFF
)

// Direction selects which ramp to generate
type Direction int

const (
	FadeIn Direction = iota
	FadeOut
)

// String returns the direction as used in filenames
func (d Direction) String() string {
	switch d {
	case FadeIn:
		return "in"
	case FadeOut:
		return "out"
	default:
		return "unknown"
	}
}

// ParseDirection accepts "in", "out", "fade_in" and "fade_out"
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "in", "fade_in", "fade-in":
		return FadeIn, nil
	case "out", "fade_out", "fade-out":
		return FadeOut, nil
	default:
		return 0, &ValidationError{Field: "direction", Reason: "must be \"in\" or \"out\", got " + quote(s)}
	}
}

// EventKind is the type of a timed note event
type EventKind uint8

const (
	NoteOn EventKind = iota
	NoteOff
)

// TimedEvent is a note event at an absolute tick
type TimedEvent struct {
	Tick     uint32
	Channel  uint8 // MIDI channel, always 0
	Note     uint8
	Velocity uint8
	Kind     EventKind
}

// Scene is a named set of channel targets with fade timings
type Scene struct {
	Name            string      `json:"name" yaml:"name"`
	Channels        map[int]int `json:"channels" yaml:"channels"`
	FadeInDuration  float64     `json:"fade_in_duration" yaml:"fade_in_duration"`
	FadeOutDuration float64     `json:"fade_out_duration" yaml:"fade_out_duration"`
	Steps           int         `json:"steps" yaml:"steps"`
}

// Duration returns the fade length in seconds for the given direction
func (s Scene) Duration(dir Direction) float64 {
	if dir == FadeOut {
		return s.FadeOutDuration
	}
	return s.FadeInDuration
}

// Filename returns the output filename for the given direction
func (s Scene) Filename(dir Direction) string {
	return s.Name + "_fade_" + dir.String() + ".mid"
}

// NoteFor maps a lighting channel to its MIDI note
func NoteFor(channel int) int {
	return BaseNote + channel
}
