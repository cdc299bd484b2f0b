package fade

import (
	"math"
)

// GenerateCurve builds the note events for one fade of the given channels.
//
// The ramp spans round(durationSeconds*TicksPerQuarter) ticks split into
// equal steps; leftover ticks from the integer division are dropped. Every
// step emits a NoteOn per channel at the step start and a NoteOff per
// channel at the step end, channels in ascending order.
//
// Fade-in runs steps 1..steps with velocities floored at 1, then holds the
// exact targets for HoldTicks. Fade-out runs steps 0..steps and ends at
// velocity 0 with no hold.
func GenerateCurve(channels map[int]int, durationSeconds float64, steps int, dir Direction) ([]TimedEvent, error) {
	if err := validateSteps(steps); err != nil {
		return nil, err
	}
	if err := validateDuration("duration", durationSeconds); err != nil {
		return nil, err
	}
	if err := validateChannels(channels); err != nil {
		return nil, err
	}

	order := sortedKeys(channels)
	if len(order) == 0 {
		return []TimedEvent{}, nil
	}

	totalTicks := uint32(math.Round(durationSeconds * TicksPerQuarter))
	stepWidth := totalTicks / uint32(steps)

	// steps <= MaxSteps and at most MaxNote-BaseNote+1 channels keep this small
	windows := steps + 1

	var c curve
	c.events = make([]TimedEvent, 0, 2*len(order)*windows)
	c.notes = make([]uint8, len(order))
	c.targets = make([]int, len(order))
	for i, ch := range order {
		c.notes[i] = uint8(NoteFor(ch))
		c.targets[i] = channels[ch]
	}

	switch dir {
	case FadeIn:
		for s := 1; s <= steps; s++ {
			factor := float64(s) / float64(steps)
			c.step(stepWidth, func(target int) int {
				return max(1, int(math.Floor(float64(target)*factor)))
			})
		}
		c.step(HoldTicks, func(target int) int { return target })
	case FadeOut:
		for s := 0; s <= steps; s++ {
			factor := 1 - float64(s)/float64(steps)
			c.step(stepWidth, func(target int) int {
				return int(math.Floor(float64(target) * factor))
			})
		}
	default:
		return nil, &ValidationError{Field: "direction", Reason: "unknown fade direction"}
	}

	return c.events, nil
}

// curve accumulates events while the tick cursor walks forward
type curve struct {
	notes   []uint8
	targets []int
	cursor  uint32
	events  []TimedEvent
}

// step emits one window of width ticks for every channel and advances the cursor
func (c *curve) step(width uint32, velocity func(target int) int) {
	end := c.cursor + width
	for i, note := range c.notes {
		c.events = append(c.events, TimedEvent{
			Tick:     c.cursor,
			Note:     note,
			Velocity: uint8(velocity(c.targets[i])),
			Kind:     NoteOn,
		})
	}
	for _, note := range c.notes {
		c.events = append(c.events, TimedEvent{
			Tick: end,
			Note: note,
			Kind: NoteOff,
		})
	}
	c.cursor = end
}
