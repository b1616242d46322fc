package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// newRootCmd builds the fully-assembled root command. Called once from
// main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "smugsync",
		Short:   "Synchronize a local photo library with SmugMug",
		Long:    "smugsync reconciles a locally organized tree of photo and video albums with the equivalent tree on SmugMug.",
		Version: version,
		// Silence cobra's default error/usage printing; errors are
		// reported once by main.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(newSyncCmd())

	return cmd
}

// buildLogger creates the process logger: a colorized tint handler when
// stderr is a terminal, plain text otherwise.
func buildLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	w := os.Stderr

	var handler slog.Handler
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// exitOnError prints a user-friendly error message to stderr and exits
// non-zero.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
