package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"ibup/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "ibup",
		Usage:    "Upload local audio files to your iBroadcast library",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrAborted) {
			logger.Warn("aborted")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
