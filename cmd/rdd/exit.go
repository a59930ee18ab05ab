package main

import (
	"errors"

	"github.com/bamsammich/rdd/internal/engine"
)

const (
	exitOK                  = 0
	exitFailed              = 1
	exitUsage               = 2
	exitCompletedWithErrors = 3
	exitHashMismatch        = 4
	exitCancelled           = 130
)

// exitCodeFor maps a finished job to the process exit status.
func exitCodeFor(res engine.Result) int {
	switch res.Status {
	case engine.StateCompleted:
		return exitOK
	case engine.StateCompletedWithErrors:
		return exitCompletedWithErrors
	case engine.StateCancelled:
		return exitCancelled
	}
	switch {
	case errors.Is(res.Err, engine.ErrHashMismatch):
		return exitHashMismatch
	case errors.Is(res.Err, engine.ErrInvalidJob), errors.Is(res.Err, engine.ErrAlignment):
		return exitUsage
	default:
		return exitFailed
	}
}
