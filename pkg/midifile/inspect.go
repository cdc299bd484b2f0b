package midifile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Summary describes the contents of a MIDI file
type Summary struct {
	Format      uint16        `json:"format"`
	Resolution  uint16        `json:"resolution"`
	Tracks      int           `json:"tracks"`
	TempoBPM    float64       `json:"tempo_bpm"`
	NoteOns     int           `json:"note_ons"`
	NoteOffs    int           `json:"note_offs"`
	Notes       []uint8       `json:"notes"`
	MinVelocity uint8         `json:"min_velocity"`
	MaxVelocity uint8         `json:"max_velocity"`
	TotalTicks  uint32        `json:"total_ticks"`
	Length      time.Duration `json:"length"`
}

// InspectFile reads a MIDI file from disk and summarizes it
func InspectFile(filename string) (*Summary, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return Inspect(data)
}

// Inspect parses MIDI data and summarizes its note events
func Inspect(data []byte) (*Summary, error) {
	if len(data) < 14 || !bytes.Equal(data[:4], headerMagic) {
		return nil, errors.New("not a Standard MIDI File: missing MThd header")
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	summary := &Summary{
		Format:   binary.BigEndian.Uint16(data[8:10]),
		Tracks:   len(s.Tracks),
		TempoBPM: TempoBPM,
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("unsupported time format: only metric ticks are handled")
	}
	summary.Resolution = ticks.Resolution()

	notes := map[uint8]bool{}
	first := true

	for _, track := range s.Tracks {
		var currentTick uint32
		for _, ev := range track {
			currentTick += ev.Delta
			msg := ev.Message

			// Tempo meta message (FF 51 03 ...)
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				microsecondsPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if microsecondsPerBeat > 0 {
					summary.TempoBPM = 60000000.0 / float64(microsecondsPerBeat)
				}
				continue
			}

			if len(msg) < 3 {
				continue
			}

			switch msg[0] & 0xF0 {
			case 0x90:
				summary.NoteOns++
				notes[msg[1]] = true
				vel := msg[2]
				if first || vel < summary.MinVelocity {
					summary.MinVelocity = vel
				}
				if first || vel > summary.MaxVelocity {
					summary.MaxVelocity = vel
				}
				first = false
			case 0x80:
				summary.NoteOffs++
				notes[msg[1]] = true
			}
		}
		if currentTick > summary.TotalTicks {
			summary.TotalTicks = currentTick
		}
	}

	for note := range notes {
		summary.Notes = append(summary.Notes, note)
	}
	sort.Slice(summary.Notes, func(i, j int) bool { return summary.Notes[i] < summary.Notes[j] })

	summary.Length = ticks.Duration(summary.TempoBPM, summary.TotalTicks)
	return summary, nil
}
