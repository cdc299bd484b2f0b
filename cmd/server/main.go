// Package main is the entry point for the midifade API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/james-see/midifade/pkg/api"
	"github.com/james-see/midifade/pkg/batch"
	"github.com/james-see/midifade/pkg/config"
	"github.com/james-see/midifade/pkg/presets"
)

func main() {
	cfgPath := flag.String("config", "", "Config file (default ~/.config/midifade/config.yaml)")
	port := flag.Int("port", 0, "Server port (default from config)")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "midifade-server"})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	runner, err := batch.New(batch.Options{
		Backend: cfg.Backend,
		Command: cfg.ExternalCommand,
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backend error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting midifade API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)

	err = api.StartServer(cfg.Server.Port, api.Options{
		Store:     presets.NewStore(cfg.PresetsFile),
		Runner:    runner,
		OutputDir: cfg.OutputDir,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
