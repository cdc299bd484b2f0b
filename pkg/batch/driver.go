package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/james-see/midifade/pkg/fade"
	"github.com/james-see/midifade/pkg/midifile"
	"golang.org/x/sync/errgroup"
)

// Driver is the in-process backend. It encodes both fades of a scene in
// memory and only then writes them, so an invalid scene leaves no files.
type Driver struct {
	// Workers > 1 processes scenes concurrently. Batches with duplicate
	// scene names always run sequentially so the last one wins. On failure
	// scenes after the failing one may already be written.
	Workers int
	Logger  *log.Logger
}

// Run implements Runner
func (d *Driver) Run(ctx context.Context, scenes []fade.Scene, outputDir string) (*Result, error) {
	dir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve output directory %s: %w", ErrIO, outputDir, err)
	}

	result := &Result{OutputDir: dir, Results: make([]SceneResult, 0, len(scenes))}
	if err := os.MkdirAll(dir, 0755); err != nil {
		err = fmt.Errorf("%w: create output directory: %w", ErrIO, err)
		orDiscard(d.Logger).Error("batch failed", "dir", dir, "err", err)
		return result, err
	}

	if d.Workers > 1 && len(scenes) > 1 && uniqueNames(scenes) {
		err = d.runParallel(ctx, scenes, result)
	} else {
		err = d.runSequential(ctx, scenes, result)
	}
	if err != nil {
		orDiscard(d.Logger).Error("batch failed", "dir", dir, "completed", len(result.Results), "err", err)
		return result, err
	}

	result.Success = true
	orDiscard(d.Logger).Info("batch complete", "dir", dir, "scenes", len(result.Results))
	return result, nil
}

func (d *Driver) runSequential(ctx context.Context, scenes []fade.Scene, result *Result) error {
	for _, scene := range scenes {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := d.writeScene(result.OutputDir, scene)
		if err != nil {
			return err
		}
		result.Results = append(result.Results, *res)
	}
	return nil
}

// runParallel reports results like a sequential run: Results is the input
// prefix before the first scene that did not complete. Later scenes that
// finished first keep their files on disk but are not listed.
func (d *Driver) runParallel(ctx context.Context, scenes []fade.Scene, result *Result) error {
	done := make([]*SceneResult, len(scenes))
	failed := make([]error, len(scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)
	for i, scene := range scenes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := d.writeScene(result.OutputDir, scene)
			if err != nil {
				failed[i] = err
				return err
			}
			done[i] = res
			return nil
		})
	}
	err := g.Wait()

	for i, res := range done {
		if res == nil {
			var sceneErr *SceneError
			if errors.As(failed[i], &sceneErr) {
				return failed[i]
			}
			return err
		}
		result.Results = append(result.Results, *res)
	}
	return err
}

func (d *Driver) writeScene(dir string, scene fade.Scene) (*SceneResult, error) {
	logger := orDiscard(d.Logger).With("scene", scene.Name)

	if err := scene.Validate(); err != nil {
		return nil, &SceneError{Scene: scene.Name, Err: err}
	}

	fadeIn, err := midifile.EncodeScene(scene, fade.FadeIn)
	if err != nil {
		return nil, &SceneError{Scene: scene.Name, Err: err}
	}
	fadeOut, err := midifile.EncodeScene(scene, fade.FadeOut)
	if err != nil {
		return nil, &SceneError{Scene: scene.Name, Err: err}
	}

	res := &SceneResult{
		Scene:         scene.Name,
		FadeInFile:    scene.Filename(fade.FadeIn),
		FadeOutFile:   scene.Filename(fade.FadeOut),
		ChannelsCount: len(scene.Channels),
		Steps:         scene.Steps,
	}
	res.FadeInPath = filepath.Join(dir, res.FadeInFile)
	res.FadeOutPath = filepath.Join(dir, res.FadeOutFile)

	if err := os.WriteFile(res.FadeInPath, fadeIn, 0644); err != nil {
		return nil, &SceneError{Scene: scene.Name, Err: fmt.Errorf("%w: write %s: %w", ErrIO, res.FadeInFile, err)}
	}
	if err := os.WriteFile(res.FadeOutPath, fadeOut, 0644); err != nil {
		return nil, &SceneError{Scene: scene.Name, Err: fmt.Errorf("%w: write %s: %w", ErrIO, res.FadeOutFile, err)}
	}

	logger.Debug("wrote fades", "fade_in", res.FadeInPath, "fade_out", res.FadeOutPath,
		"channels", res.ChannelsCount, "steps", res.Steps)
	return res, nil
}

func uniqueNames(scenes []fade.Scene) bool {
	seen := make(map[string]bool, len(scenes))
	for _, s := range scenes {
		if seen[s.Name] {
			return false
		}
		seen[s.Name] = true
	}
	return true
}
