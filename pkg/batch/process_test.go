package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/james-see/midifade/pkg/fade"
)

// helperRunner re-executes the test binary as a stand-in external backend
func helperRunner(mode string) *ProcessRunner {
	return &ProcessRunner{
		Command: []string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		Env: []string{
			"MIDIFADE_WANT_HELPER_PROCESS=1",
			"MIDIFADE_HELPER_MODE=" + mode,
		},
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("MIDIFADE_WANT_HELPER_PROCESS") != "1" {
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "bad request: %v\n", err)
		os.Exit(2)
	}

	switch os.Getenv("MIDIFADE_HELPER_MODE") {
	case "ok":
		result, err := (&Driver{}).Run(context.Background(), req.Scenes, req.OutputDir)
		if err != nil {
			_ = json.NewEncoder(os.Stderr).Encode(ProcessResponse{Error: err.Error()})
			os.Exit(1)
		}
		_ = json.NewEncoder(os.Stdout).Encode(ProcessResponse{Success: true, Results: result.Results})
	case "fail":
		_ = json.NewEncoder(os.Stderr).Encode(ProcessResponse{Error: "No module named midiutil"})
		os.Exit(1)
	case "crash":
		fmt.Fprintln(os.Stderr, "Traceback (most recent call last)")
		os.Exit(3)
	case "reported":
		_ = json.NewEncoder(os.Stdout).Encode(ProcessResponse{Error: "disk full"})
	case "garbage":
		fmt.Fprintln(os.Stdout, "Node.js MIDI Generator starting...")
	}
	os.Exit(0)
}

func TestProcessRunnerSuccess(t *testing.T) {
	dir := t.TempDir()
	scenes := []fade.Scene{nodeTestScene(), sceneNamed("second", 90)}

	result, err := helperRunner("ok").Run(context.Background(), scenes, dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Error("Success = false, want true")
	}
	if len(result.Results) != 2 {
		t.Fatalf("Results = %d, want 2", len(result.Results))
	}
	if result.Results[0].Scene != "node_test" || result.Results[0].Steps != 15 {
		t.Errorf("Results[0] = %+v", result.Results[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "second_fade_out.mid")); err != nil {
		t.Errorf("external backend did not write files: %v", err)
	}
}

func TestProcessRunnerFailures(t *testing.T) {
	tests := []struct {
		mode    string
		message string
	}{
		{"fail", "No module named midiutil"},
		{"crash", "Traceback"},
		{"reported", "disk full"},
		{"garbage", "unreadable output"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			_, err := helperRunner(tt.mode).Run(context.Background(), []fade.Scene{nodeTestScene()}, t.TempDir())
			if err == nil {
				t.Fatal("Run() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Run() error = %q, want it to mention %q", err, tt.message)
			}
		})
	}
}

func TestProcessRunnerValidatesFirst(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	scene := nodeTestScene()
	scene.Channels[70] = 100

	_, err := helperRunner("ok").Run(context.Background(), []fade.Scene{scene}, dir)
	if !errors.Is(err, fade.ErrValidation) {
		t.Fatalf("Run() error = %v, want ErrValidation", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("output directory should not be created, stat error = %v", err)
	}
}

func TestProcessRunnerMissingCommand(t *testing.T) {
	_, err := (&ProcessRunner{}).Run(context.Background(), nil, t.TempDir())
	if err == nil {
		t.Error("Run() error = nil, want error")
	}
}
