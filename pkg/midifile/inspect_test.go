package midifile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/james-see/midifade/pkg/fade"
)

func TestInspectRoundTrip(t *testing.T) {
	scene := fade.Scene{Name: "node_test", Channels: map[int]int{1: 127, 4: 80}, FadeInDuration: 2, FadeOutDuration: 2, Steps: 15}

	data, err := EncodeScene(scene, fade.FadeIn)
	if err != nil {
		t.Fatalf("EncodeScene() error = %v", err)
	}

	summary, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}

	if summary.Format != 0 {
		t.Errorf("Format = %d, want 0", summary.Format)
	}
	if summary.Tracks != 1 {
		t.Errorf("Tracks = %d, want 1", summary.Tracks)
	}
	if summary.Resolution != fade.TicksPerQuarter {
		t.Errorf("Resolution = %d, want %d", summary.Resolution, fade.TicksPerQuarter)
	}
	if summary.TempoBPM != 120 {
		t.Errorf("TempoBPM = %v, want 120", summary.TempoBPM)
	}
	if summary.NoteOns != 32 || summary.NoteOffs != 32 {
		t.Errorf("NoteOns/NoteOffs = %d/%d, want 32/32", summary.NoteOns, summary.NoteOffs)
	}
	if !reflect.DeepEqual(summary.Notes, []uint8{70, 73}) {
		t.Errorf("Notes = %v, want [70 73]", summary.Notes)
	}
	if summary.MinVelocity != 5 || summary.MaxVelocity != 127 {
		t.Errorf("velocity range = %d..%d, want 5..127", summary.MinVelocity, summary.MaxVelocity)
	}
	if summary.TotalTicks != 15*64+fade.HoldTicks {
		t.Errorf("TotalTicks = %d, want %d", summary.TotalTicks, 15*64+fade.HoldTicks)
	}

	// 1152 ticks at 480 tpq and 120 bpm
	want := 1200 * time.Millisecond
	if diff := summary.Length - want; diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("Length = %v, want about %v", summary.Length, want)
	}
}

func TestInspectEmptyTrack(t *testing.T) {
	data, err := Encode(nil, TempoBPM)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	summary, err := Inspect(data)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if summary.NoteOns != 0 || summary.NoteOffs != 0 {
		t.Errorf("NoteOns/NoteOffs = %d/%d, want 0/0", summary.NoteOns, summary.NoteOffs)
	}
	if summary.TotalTicks != 0 {
		t.Errorf("TotalTicks = %d, want 0", summary.TotalTicks)
	}
}

func TestInspectFile(t *testing.T) {
	scene := fade.Scene{Name: "x", Channels: map[int]int{3: 90}, FadeInDuration: 1, FadeOutDuration: 1, Steps: 4}
	data, err := EncodeScene(scene, fade.FadeOut)
	if err != nil {
		t.Fatalf("EncodeScene() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), scene.Filename(fade.FadeOut))
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	summary, err := InspectFile(path)
	if err != nil {
		t.Fatalf("InspectFile() error = %v", err)
	}
	// steps 0..4
	if summary.NoteOns != 5 {
		t.Errorf("NoteOns = %d, want 5", summary.NoteOns)
	}
	if summary.MaxVelocity != 90 {
		t.Errorf("MaxVelocity = %d, want 90", summary.MaxVelocity)
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	if _, err := Inspect([]byte("not a midi file at all")); err == nil {
		t.Error("Inspect() error = nil, want error")
	}
	if _, err := InspectFile(filepath.Join(t.TempDir(), "missing.mid")); err == nil {
		t.Error("InspectFile() error = nil, want error")
	}
}
