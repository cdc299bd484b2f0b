package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/james-see/midifade/pkg/fade"
)

// ProcessRunner delegates generation to an external program.
//
// The program receives {"scenes": [...], "outputDir": "..."} as JSON on
// stdin and answers with {"success": bool, "results": [...], "error": "..."}
// on stdout (or on stderr when it exits non-zero).
type ProcessRunner struct {
	Command []string
	Env     []string // appended to the current environment
	Logger  *log.Logger
}

// ProcessRequest is the document written to the external program
type ProcessRequest struct {
	Scenes    []fade.Scene `json:"scenes"`
	OutputDir string       `json:"outputDir"`
}

// ProcessResponse is the document read back from the external program
type ProcessResponse struct {
	Success bool          `json:"success"`
	Results []SceneResult `json:"results,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Run implements Runner
func (p *ProcessRunner) Run(ctx context.Context, scenes []fade.Scene, outputDir string) (*Result, error) {
	if len(p.Command) == 0 {
		return nil, errors.New("external backend requires a command")
	}
	logger := orDiscard(p.Logger).With("backend", p.Command[0])

	// the external program never sees a scene this package would reject
	for _, scene := range scenes {
		if err := scene.Validate(); err != nil {
			return nil, &SceneError{Scene: scene.Name, Err: err}
		}
	}

	dir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve output directory %s: %w", ErrIO, outputDir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %w", ErrIO, err)
	}

	payload, err := json.Marshal(ProcessRequest{Scenes: scenes, OutputDir: dir})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("starting external backend", "args", p.Command[1:], "scenes", len(scenes))
	if err := cmd.Run(); err != nil {
		if resp, ok := decodeResponse(stderr.Bytes()); ok && resp.Error != "" {
			return nil, fmt.Errorf("external backend failed: %s", resp.Error)
		}
		return nil, fmt.Errorf("external backend failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	resp, ok := decodeResponse(stdout.Bytes())
	if !ok {
		return nil, fmt.Errorf("external backend returned unreadable output: %q", truncate(stdout.String(), 200))
	}
	if !resp.Success {
		return nil, fmt.Errorf("external backend reported failure: %s", resp.Error)
	}

	logger.Info("batch complete", "dir", dir, "scenes", len(resp.Results))
	return &Result{Success: true, OutputDir: dir, Results: resp.Results}, nil
}

func decodeResponse(data []byte) (*ProcessResponse, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false
	}
	var resp ProcessResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
