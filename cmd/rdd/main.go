package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bamsammich/rdd/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	return exitOK
}

func newRootCmd() *cobra.Command {
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:   "rdd",
		Short: "Safe, verifiable block copy in the spirit of dd",
		Long: `rdd copies a byte range from one file or device to another in fixed-size
blocks. A reader, a writer and an optional hasher run concurrently with a
bounded queue between them, so a slow disk never makes memory grow.

Unlike dd, rdd can hash the copied stream (BLAKE3, SHA-256) and re-read the
destination to prove it landed intact.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "rdd %s\n", version)
				return nil
			}
			return cmd.Help()
		},
	}
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")

	rootCmd.AddCommand(newCopyCmd())
	rootCmd.AddCommand(sumCmd)
	rootCmd.AddCommand(docsCmd)
	return rootCmd
}

// logLevel picks the stderr log level. Info lines would tear the HUD, so it
// only gets warnings unless --verbose is set.
func logLevel(verbose, quiet, hud bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet || hud:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// setupLogging installs the default logger: text on stderr at level, plus a
// Debug-level JSON file when logFile is set. The returned func closes the
// file.
func setupLogging(level slog.Level, logFile string) (func(), error) {
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	var logHandler slog.Handler = textHandler
	closeLog := func() {}
	if logFile != "" {
		lf, err := os.Create(logFile)
		if err != nil {
			return closeLog, fmt.Errorf("open log file: %w", err)
		}
		closeLog = func() { lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))
	return closeLog, nil
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
