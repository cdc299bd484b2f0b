// Package midifile writes fade curves as Standard MIDI Files and reads them back
package midifile

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/james-see/midifade/pkg/fade"
	"gitlab.com/gomidi/midi/v2"
)

// TempoBPM is the fixed playback tempo of every generated file
const TempoBPM = 120

// SMF chunk and meta-event bytes
var (
	headerMagic = []byte("MThd")
	trackMagic  = []byte("MTrk")

	metaTempo      = []byte{0xFF, 0x51, 0x03}
	metaEndOfTrack = []byte{0xFF, 0x2F, 0x00}
)

const (
	headerLength = 6
	formatSingle = 0
	maxVLQ       = 0x0FFFFFFF
)

// Encode writes events as a format 0 SMF with a single track.
//
// The track starts with a tempo meta-event, carries one channel message per
// event with its delta from the previous event, and ends with end-of-track.
// Events must be in non-decreasing tick order.
func Encode(events []fade.TimedEvent, tempoBPM int) ([]byte, error) {
	if tempoBPM < 4 || tempoBPM > 60000000 {
		return nil, &fade.ValidationError{Field: "tempo", Reason: fmt.Sprintf("%d bpm cannot be written as a 3-byte tempo", tempoBPM)}
	}

	var track bytes.Buffer

	// Tempo meta event
	microsecondsPerBeat := uint32(60000000 / tempoBPM)
	track.WriteByte(0x00)
	track.Write(metaTempo)
	track.Write([]byte{
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	})

	var previous uint32
	for i, ev := range events {
		if ev.Tick < previous {
			return nil, fmt.Errorf("%w: event %d at tick %d follows tick %d", fade.ErrEncodingInvariant, i, ev.Tick, previous)
		}
		delta := ev.Tick - previous
		if delta > maxVLQ {
			return nil, fmt.Errorf("%w: event %d delta %d exceeds %d", fade.ErrEncodingInvariant, i, delta, maxVLQ)
		}

		msg, err := channelMessage(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}

		track.Write(AppendVLQ(nil, delta))
		track.Write(msg)
		previous = ev.Tick
	}

	track.WriteByte(0x00)
	track.Write(metaEndOfTrack)

	out := make([]byte, 0, 14+8+track.Len())

	out = append(out, headerMagic...)
	out = binary.BigEndian.AppendUint32(out, headerLength)
	out = binary.BigEndian.AppendUint16(out, formatSingle)
	out = binary.BigEndian.AppendUint16(out, 1)
	out = binary.BigEndian.AppendUint16(out, fade.TicksPerQuarter)

	out = append(out, trackMagic...)
	out = binary.BigEndian.AppendUint32(out, uint32(track.Len()))
	out = append(out, track.Bytes()...)

	return out, nil
}

// EncodeScene generates and encodes one fade of a validated scene
func EncodeScene(scene fade.Scene, dir fade.Direction) ([]byte, error) {
	events, err := fade.GenerateCurve(scene.Channels, scene.Duration(dir), scene.Steps, dir)
	if err != nil {
		if ve, ok := err.(*fade.ValidationError); ok && ve.Scene == "" {
			ve.Scene = scene.Name
		}
		return nil, err
	}
	return Encode(events, TempoBPM)
}

func channelMessage(ev fade.TimedEvent) (midi.Message, error) {
	if ev.Channel > 15 || ev.Note > fade.MaxNote || ev.Velocity > fade.MaxVelocity {
		return nil, fmt.Errorf("%w: channel %d note %d velocity %d out of range", fade.ErrEncodingInvariant, ev.Channel, ev.Note, ev.Velocity)
	}

	switch ev.Kind {
	case fade.NoteOn:
		return midi.NoteOn(ev.Channel, ev.Note, ev.Velocity), nil
	case fade.NoteOff:
		return midi.NoteOff(ev.Channel, ev.Note), nil
	default:
		return nil, fmt.Errorf("%w: unknown event kind %d", fade.ErrEncodingInvariant, ev.Kind)
	}
}

// AppendVLQ appends v as a MIDI variable-length quantity: 7 bits per byte,
// most significant group first, continuation bit on all but the last byte.
func AppendVLQ(dst []byte, v uint32) []byte {
	var groups [4]byte
	n := 0
	for {
		groups[n] = byte(v & 0x7F)
		n++
		v >>= 7
		if v == 0 || n == len(groups) {
			break
		}
	}
	for i := n - 1; i > 0; i-- {
		dst = append(dst, groups[i]|0x80)
	}
	return append(dst, groups[0])
}
