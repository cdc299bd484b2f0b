package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/james-see/midifade/pkg/config"
	"github.com/james-see/midifade/pkg/cuelist"
	"github.com/james-see/midifade/pkg/presets"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	presetSteps int
	previewOnly bool
	forceInit   bool
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage saved presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	Args:  cobra.NoArgs,
	RunE:  runPresetsList,
}

var presetsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a preset as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetsShow,
}

var presetsSaveCmd = &cobra.Command{
	Use:   "save <name> <scenes.json|scenes.yaml|cues.txt>",
	Short: "Save the scenes of a file as a preset, replacing one with the same name",
	Args:  cobra.ExactArgs(2),
	RunE:  runPresetsSave,
}

var presetsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetsDelete,
}

var presetsImportCmd = &cobra.Command{
	Use:   "import <file.json|file.yaml>",
	Short: "Merge presets from an export file or a preset list",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetsImport,
}

var presetsExportCmd = &cobra.Command{
	Use:   "export <file.json|file.yaml> [name]...",
	Short: "Export presets; all of them when no names are given",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPresetsExport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default values",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	presetsSaveCmd.Flags().IntVar(&presetSteps, "steps", 0, "Step count applied to every scene (0 keeps each scene's own)")
	presetsImportCmd.Flags().BoolVar(&previewOnly, "preview", false, "List the presets in the file without importing")
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")

	presetsCmd.AddCommand(presetsListCmd, presetsShowCmd, presetsSaveCmd, presetsDeleteCmd, presetsImportCmd, presetsExportCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
}

func runPresetsList(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	list, err := a.store.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Printf("No presets in %s\n", a.store.Path())
		return nil
	}

	for _, p := range list {
		names := make([]string, 0, len(p.Scenes))
		for _, sc := range p.Scenes {
			names = append(names, sc.Name)
		}
		fmt.Printf("%-24s %2d scene(s)  %s\n", p.Name, len(p.Scenes), strings.Join(names, ", "))
	}
	return nil
}

func runPresetsShow(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	p, err := a.store.Get(args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runPresetsSave(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	scenes, warnings, err := presets.ReadSceneFile(args[1])
	if err != nil {
		return err
	}
	printWarnings(warnings)

	replaced, err := a.store.Save(presets.Preset{Name: args[0], Scenes: scenes, Steps: presetSteps})
	if err != nil {
		return err
	}
	if replaced {
		fmt.Printf("Replaced preset %q (%d scenes)\n", args[0], len(scenes))
	} else {
		fmt.Printf("Saved preset %q (%d scenes)\n", args[0], len(scenes))
	}
	return nil
}

func runPresetsDelete(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	if err := a.store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted preset %q\n", args[0])
	return nil
}

func runPresetsImport(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	format := presets.DetectFormat(args[0])

	if previewOnly {
		list, err := presets.Decode(f, format)
		if err != nil {
			return err
		}
		for _, p := range list {
			fmt.Printf("%-24s %2d scene(s)\n", p.Name, len(p.Scenes))
		}
		return nil
	}

	summary, err := a.store.Import(f, format)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d new preset(s), replaced %d\n", summary.Imported, summary.Existing)
	return nil
}

func runPresetsExport(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	path := args[0]
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	n, err := a.store.Export(f, presets.DetectFormat(path), args[1:]...)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	fmt.Printf("Exported %d preset(s) to %s\n", n, path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if cfg.Path() != "" {
		fmt.Printf("# %s\n", cfg.Path())
	}
	fmt.Print(string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg := config.DefaultConfig()
	applyOverrides(cfg)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func printWarnings(warnings []cuelist.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
