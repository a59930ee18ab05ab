package ui

import "github.com/bamsammich/rdd/internal/event"

// Event is the engine event type presenters consume.
type Event = event.Event

// Re-export event types for convenience.
const (
	CopyStarted   = event.CopyStarted
	Progress      = event.Progress
	ReadError     = event.ReadError
	Retry         = event.Retry
	VerifyStarted = event.VerifyStarted
	VerifyOK      = event.VerifyOK
	VerifyFailed  = event.VerifyFailed
	CopyFinished  = event.CopyFinished
)
