package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/entsync/internal/cli"
	"github.com/alexanderramin/entsync/internal/devops"
	"github.com/alexanderramin/entsync/internal/graph"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.App{
		Logger:        newLogger(os.Stderr),
		Out:           os.Stdout,
		NewConnection: devops.NewClient,
		NewDirectory:  graph.NewClient,
	}

	rootCmd := cli.NewRootCmd(app)
	return rootCmd.Execute()
}

// newLogger writes human-readable logs on a terminal and JSON otherwise,
// so a scheduled run feeds structured lines to whatever collects them.
func newLogger(w *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
