package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/james-see/midifade/pkg/batch"
	"github.com/james-see/midifade/pkg/cuelist"
	"github.com/james-see/midifade/pkg/fade"
	"github.com/james-see/midifade/pkg/midifile"
	"github.com/james-see/midifade/pkg/presets"
	"github.com/spf13/cobra"
)

var (
	presetName   string
	channelsFlag string
	fadeInFlag   float64
	fadeOutFlag  float64
	stepsFlag    int
	jsonOutput   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [scenes.json|scenes.yaml|cues.txt]",
	Short: "Generate fade files for a scene list, cue sheet or preset",
	Long: `Reads scenes from a JSON/YAML document or a text cue sheet, or from a saved
preset with --preset, and writes <name>_fade_in.mid and <name>_fade_out.mid
for every scene into the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

var sceneCmd = &cobra.Command{
	Use:   "scene <name>",
	Short: "Generate the fade pair for a single scene",
	Args:  cobra.ExactArgs(1),
	RunE:  runScene,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>...",
	Short: "Summarize MIDI files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func init() {
	generateCmd.Flags().StringVar(&presetName, "preset", "", "Generate from a saved preset")

	sceneCmd.Flags().StringVar(&channelsFlag, "channels", "", `Channel levels, e.g. "1:127, 2:64, 3" (required)`)
	sceneCmd.Flags().Float64Var(&fadeInFlag, "fade-in", cuelist.DefaultDuration, "Fade-in duration in seconds")
	sceneCmd.Flags().Float64Var(&fadeOutFlag, "fade-out", cuelist.DefaultDuration, "Fade-out duration in seconds")
	sceneCmd.Flags().IntVar(&stepsFlag, "steps", fade.DefaultSteps, "Velocity steps per fade")
	_ = sceneCmd.MarkFlagRequired("channels")

	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print summaries as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	var scenes []fade.Scene
	switch {
	case presetName != "" && len(args) > 0:
		return errors.New("give either a scene file or --preset, not both")
	case presetName != "":
		p, err := a.store.Get(presetName)
		if err != nil {
			return err
		}
		scenes = p.SceneList()
	case len(args) == 1:
		var warnings []cuelist.Warning
		scenes, warnings, err = presets.ReadSceneFile(args[0])
		if err != nil {
			return err
		}
		for _, w := range warnings {
			a.logger.Warn("skipped cue line", "file", args[0], "line", w.Line, "err", w.Err)
		}
	default:
		return errors.New("nothing to generate: give a scene file or --preset")
	}

	return a.generate(scenes)
}

func runScene(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	scene, err := buildScene(args[0], channelsFlag, fadeInFlag, fadeOutFlag, stepsFlag)
	if err != nil {
		return err
	}
	return a.generate([]fade.Scene{scene})
}

func buildScene(name, channels string, fadeIn, fadeOut float64, steps int) (fade.Scene, error) {
	levels, err := cuelist.ParseChannels(channels)
	if err != nil {
		return fade.Scene{}, err
	}
	scene := fade.Scene{
		Name:            name,
		Channels:        levels,
		FadeInDuration:  fadeIn,
		FadeOutDuration: fadeOut,
		Steps:           steps,
	}
	return scene, scene.Validate()
}

func (a *app) generate(scenes []fade.Scene) error {
	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.runner.Run(ctx, scenes, a.cfg.OutputDir)
	if result != nil {
		printResult(os.Stdout, result)
	}
	if err != nil {
		var sceneErr *batch.SceneError
		if errors.As(err, &sceneErr) && result != nil && len(result.Results) > 0 {
			fmt.Printf("Stopped at scene %q; %d earlier scene(s) were written\n", sceneErr.Scene, len(result.Results))
		}
		return err
	}

	fmt.Printf("Generated %d scene(s) in %s\n", len(result.Results), result.OutputDir)
	return nil
}

func printResult(w io.Writer, result *batch.Result) {
	for _, r := range result.Results {
		fmt.Fprintf(w, "  %-20s %s, %s (%d channels, %d steps)\n",
			r.Scene, r.FadeInFile, r.FadeOutFile, r.ChannelsCount, r.Steps)
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		summary, err := midifile.InspectFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(struct {
				File string `json:"file"`
				*midifile.Summary
			}{path, summary}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			continue
		}

		fmt.Printf("%s\n", path)
		fmt.Printf("  format %d, %d track(s), %d ticks/quarter, %.0f bpm\n",
			summary.Format, summary.Tracks, summary.Resolution, summary.TempoBPM)
		fmt.Printf("  %d note on, %d note off, notes %v\n", summary.NoteOns, summary.NoteOffs, summary.Notes)
		fmt.Printf("  velocity %d-%d, %d ticks, %s\n",
			summary.MinVelocity, summary.MaxVelocity, summary.TotalTicks, summary.Length)
	}
	return nil
}
