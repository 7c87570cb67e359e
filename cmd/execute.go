// Package cmd is the command-line entry point: flag routing, logger and
// configuration setup, and the Bubble Tea program lifecycle.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"

	"github.com/hara-ai/hara/internal/app"
	"github.com/hara-ai/hara/internal/config"
	"github.com/hara-ai/hara/internal/log"
	"github.com/hara-ai/hara/internal/tui"
)

// Execute routes the invocation. Version and help work before any
// configuration is loaded, so they never fail on a broken config file.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersion()
		case "help", "--help", "-h":
			printHelp()
			return nil
		}
	}
	return run()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runtime, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}
	defer runtime.Close()

	model, err := tui.New(ctx, tui.Deps{
		Users:   runtime.Users,
		Chat:    runtime.Chat,
		Admin:   runtime.Admin,
		Speaker: runtime.Speaker,
		Config:  runtime.Config,
		Logger:  logger,
	}, runtime.Identity)
	if err != nil {
		return fmt.Errorf("create interface: %w", err)
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interface exited: %w", err)
	}
	return nil
}
