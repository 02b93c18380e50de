package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/pipegrid/internal/app"
	"github.com/vk/pipegrid/internal/cli"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/report"
)

// main is the entrypoint for the pipegrid orchestrator.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	code, err := runMain(os.Stdout, os.Args[1:])
	if err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(code)
}

// runMain encapsulates the main application logic for easier testing and
// error handling. It returns the process exit code derived from the run's
// overall outcome.
func runMain(outW io.Writer, args []string) (int, error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return 0, err
	}
	if shouldExit {
		return 0, nil
	}

	// The app panics on critical startup errors (unreadable or invalid
	// pipeline definitions), so we recover here to provide a clean exit.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(outW, "A critical startup error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	loader, err := config.ForPath(appConfig.PipelinePath)
	if err != nil {
		return 0, &cli.ExitError{Code: 2, Message: err.Error()}
	}

	// An interrupt cancels the run; in-flight cells drain within the
	// configured grace period and the reporter still emits a full table.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipegridApp := app.NewApp(outW, appConfig, loader, nil)
	overall, err := pipegridApp.Run(ctx)
	if err != nil {
		return 0, err
	}
	return report.ExitCode(overall), nil
}
