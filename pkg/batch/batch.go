// Package batch writes fade-in/fade-out MIDI file pairs for a list of scenes
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/james-see/midifade/pkg/fade"
)

// Backend names accepted by New
const (
	BackendNative   = "native"
	BackendExternal = "external"
)

// ErrIO wraps directory creation and file write failures
var ErrIO = errors.New("i/o error")

// Runner generates the MIDI files for a batch of scenes.
//
// Scenes are processed in order and the first failure aborts the batch with
// a *SceneError. Files already written for earlier scenes are left on disk.
// On failure the returned Result lists the scenes that completed.
type Runner interface {
	Run(ctx context.Context, scenes []fade.Scene, outputDir string) (*Result, error)
}

// SceneResult describes the files generated for one scene
type SceneResult struct {
	Scene         string `json:"scene"`
	FadeInFile    string `json:"fade_in_file"`
	FadeOutFile   string `json:"fade_out_file"`
	FadeInPath    string `json:"fade_in_path"`
	FadeOutPath   string `json:"fade_out_path"`
	ChannelsCount int    `json:"channels_count"`
	Steps         int    `json:"steps"`
}

// Result is the outcome of a batch run
type Result struct {
	Success   bool          `json:"success"`
	OutputDir string        `json:"output_directory"`
	Results   []SceneResult `json:"results"`
}

// SceneError names the scene that stopped a batch
type SceneError struct {
	Scene string
	Err   error
}

func (e *SceneError) Error() string {
	return fmt.Sprintf("scene %q: %v", e.Scene, e.Err)
}

func (e *SceneError) Unwrap() error {
	return e.Err
}

// Options selects and configures a backend
type Options struct {
	Backend string   // BackendNative (default) or BackendExternal
	Command []string // external backend command line
	Workers int      // native backend parallelism, <= 1 is sequential
	Logger  *log.Logger
}

// New returns the Runner chosen by opts.Backend
func New(opts Options) (Runner, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendNative:
		return &Driver{Workers: opts.Workers, Logger: opts.Logger}, nil
	case BackendExternal:
		if len(opts.Command) == 0 {
			return nil, errors.New("external backend requires a command")
		}
		return &ProcessRunner{Command: opts.Command, Logger: opts.Logger}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %q or %q)", opts.Backend, BackendNative, BackendExternal)
	}
}

func orDiscard(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New(io.Discard)
}
