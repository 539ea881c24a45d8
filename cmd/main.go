package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/scarchive/internal/formatter"
	"github.com/desertthunder/scarchive/internal/shared"
)

const (
	defaultConfigPath = "config.toml"
	configPathEnv     = "SCARCHIVE_CONFIG"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadDotEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := os.Getenv(configPathEnv)
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := shared.LoadConfig(configPath)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		logger.Debug("no config file, using defaults", "path", configPath)
		config = shared.DefaultConfig()
	case err != nil:
		logger.Fatalf("failed to load config: %v", err)
	}

	if err := config.ApplyEnv(os.Getenv); err != nil {
		logger.Fatalf("failed to apply environment: %v", err)
	}

	shared.SetLogLevel(logger, shared.ParseLogLevel(config.LogLevel))
	logger = shared.WithLogger(logger, "run", shared.GenerateID())

	var palette *formatter.Palette
	if isTerminal(os.Stdout) {
		palette = formatter.DefaultPalette
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
		Output:     os.Stdout,
		Palette:    palette,
	})

	app := rootCommand(runner)
	app.Version = "0.1.0"

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
