// Package main is the entry point for the midifade CLI
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/james-see/midifade/pkg/api"
	"github.com/james-see/midifade/pkg/batch"
	"github.com/james-see/midifade/pkg/config"
	"github.com/james-see/midifade/pkg/presets"
	"github.com/james-see/midifade/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile    string
	logLevel   string
	outputDir  string
	backend    string
	workers    int
	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midifade",
	Short: "Generate fade-in/fade-out MIDI files for lighting scenes",
	Long: `midifade turns lighting scenes (DMX channel -> target level) into pairs of
Standard MIDI Files that ramp every channel up to its level and back down.

Channel c is played as note 69+c on MIDI channel 1; velocity carries the level.

Examples:
  midifade scene intro --channels "1:127, 4:80" --fade-in 2 --fade-out 3
  midifade generate show.yaml -o ./midi
  midifade generate cues.txt
  midifade generate --preset "Friday show"
  midifade presets import backup.json
  midifade inspect midi/intro_fade_in.mid
  midifade tui
  midifade serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default ~/.config/midifade/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory for generated files")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Generation backend: native or external")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Scenes generated in parallel (native backend)")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config)")

	// Add commands
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(sceneCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file and applies command line overrides
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "midifade",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", level)
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// app bundles what every command needs
type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  *presets.Store
	runner batch.Runner
}

func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)

	runner, err := batch.New(batch.Options{
		Backend: cfg.Backend,
		Command: cfg.ExternalCommand,
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("config loaded", "path", cfg.Path(), "backend", cfg.Backend, "output", cfg.OutputDir)
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  presets.NewStore(cfg.PresetsFile),
		runner: runner,
	}, nil
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	return tui.Run(tui.Options{
		Store:     a.store,
		Runner:    a.runner,
		OutputDir: a.cfg.OutputDir,
		Logger:    a.logger,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	port := a.cfg.Server.Port
	if serverPort > 0 {
		port = serverPort
	}

	fmt.Printf("Starting API server on port %d...\n", port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", port)
	return api.StartServer(port, api.Options{
		Store:     a.store,
		Runner:    a.runner,
		OutputDir: a.cfg.OutputDir,
		Logger:    a.logger,
	})
}
