package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bamsammich/rdd/internal/engine"
)

var sumCmd = &cobra.Command{
	Use:   "sum [flags] FILE...",
	Short: "Print BLAKE3 or SHA-256 digests of files",
	Long: `Print the digest of each FILE ("-" reads stdin) in the same form rdd copy
reports, so a copy can be checked later against its source.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSum,
}

func init() {
	sumCmd.Flags().String("hash", "blake3", "algorithm: blake3, sha256 or both")
}

func runSum(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("hash") //nolint:errcheck // flag name is hardcoded
	algos, err := engine.ParseHashAlgo(name)
	if err != nil {
		return fmt.Errorf("invalid --hash: %w", err)
	}
	if algos == engine.HashNone {
		return errors.New("invalid --hash: choose blake3, sha256 or both")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	code := exitOK
	for _, path := range args {
		var digests engine.Digests
		if path == stdio {
			digests, err = engine.HashReader(ctx, os.Stdin, algos)
		} else {
			digests, err = engine.HashFile(ctx, path, algos)
		}
		if err != nil {
			if ctx.Err() != nil {
				return &exitError{code: exitCancelled}
			}
			slog.Error("hash failed", "path", path, "error", err)
			code = exitFailed
			continue
		}

		for _, algo := range algos.Algorithms() {
			if algos == engine.HashBoth {
				fmt.Fprintf(out, "%s  %s  %s\n", algo, digests[algo], path)
			} else {
				fmt.Fprintf(out, "%s  %s\n", digests[algo], path)
			}
		}
	}
	if code != exitOK {
		return &exitError{code: code}
	}
	return nil
}
