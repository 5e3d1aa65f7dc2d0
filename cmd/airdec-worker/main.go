package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/app"
	"github.com/inveniosoftware/airdec-workflows/internal/common"
)

var (
	// Command-line flags
	configFile   = flag.String("config", "", "Configuration file path")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	common.LoadVersionFromFile()

	if *showVersion || *showVersionV {
		fmt.Printf("airdec-worker version %s\n", common.GetVersion())
		os.Exit(0)
	}

	var err error

	// Auto-discover config file if not specified
	path := *configFile
	if path == "" {
		if _, err := os.Stat("airdec.toml"); err == nil {
			path = "airdec.toml"
		}
	}

	config, err = common.LoadFromFile(path)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config, "airdec-worker")

	common.PrintBanner("airdec-worker", common.GetVersion())

	logger.Info().
		Str("config_file", path).
		Str("sqlite_path", config.Storage.SQLite.Path).
		Int("concurrency", config.Engine.Concurrency).
		Msg("Worker configuration loaded")

	// Initialize worker application
	worker, err := app.NewWorker(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize worker")
	}
	defer worker.Close()

	worker.Start()

	logger.Info().Msg("Worker ready - Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received, shutting down worker")
}
