package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/jmpijll/discrec/internal/app"
	"github.com/jmpijll/discrec/internal/capture"
	"github.com/jmpijll/discrec/internal/cli"
	"github.com/jmpijll/discrec/internal/config"
	"github.com/jmpijll/discrec/internal/discord"
	"github.com/jmpijll/discrec/internal/level"
	"github.com/jmpijll/discrec/internal/logging"
	"github.com/jmpijll/discrec/internal/secrets"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.NewWithLevel(cfg.LogLevel)

	// One recording flag and one peak meter shared by both modes, so
	// only one recording can run at a time.
	var recording atomic.Bool
	var peak level.Meter

	source := capture.NewSource(capture.SourceConfig{
		Device:      cfg.Audio.Device,
		ProcessName: cfg.Audio.ProcessName,
	}, log)
	engine := capture.New(source, &recording, &peak, log)
	bot := discord.NewBot(&recording, &peak, log)

	recorder := app.New(app.Config{
		Engine:    engine,
		Bot:       bot,
		Config:    cfg,
		Logger:    log,
		Recording: &recording,
		Peak:      &peak,
	})

	deps := &cli.Dependencies{
		Recorder: recorder,
		Bot:      bot,
		Config:   cfg,
		Secrets:  secrets.Keychain{},
		Logger:   log,
		Version:  Version,
	}

	return cli.NewRootCmd(deps).Execute()
}
