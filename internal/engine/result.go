package engine

import (
	"time"

	"github.com/bamsammich/rdd/internal/stats"
)

// State is the orchestrator's lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateCopying
	StateVerifying
	StateCompleted
	StateCompletedWithErrors
	StateCancelled
	StateFailed
)

var stateNames = [...]string{
	StateInitializing:        "initializing",
	StateCopying:             "copying",
	StateVerifying:           "verifying",
	StateCompleted:           "completed",
	StateCompletedWithErrors: "completed with errors",
	StateCancelled:           "cancelled",
	StateFailed:              "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether s ends a job.
func (s State) Terminal() bool { return s >= StateCompleted }

// ProgressSnapshot is handed to Job.Progress while a copy runs.
type ProgressSnapshot struct {
	State         State
	BytesCopied   int64
	BytesTotal    int64 // 0 when unknown
	Elapsed       time.Duration
	Throughput    float64 // bytes/sec since the previous snapshot
	BlocksRead    int64
	BlocksWritten int64
	Errors        int64
}

// Records counts blocks the way dd does: full blocks and partial ones.
type Records struct {
	Full    int64
	Partial int64
}

// Result is the outcome of Run.
type Result struct {
	JobID           string
	Status          State
	Err             error
	BytesCopied     int64
	Elapsed         time.Duration
	Digests         Digests
	VerifiedDigests Digests
	Errors          []BlockError
	RecordsIn       Records
	RecordsOut      Records
	PaddedBytes     int64
	Stats           stats.Snapshot
}

// OK reports a copy that finished, with or without recovered errors.
func (r Result) OK() bool {
	return r.Status == StateCompleted || r.Status == StateCompletedWithErrors
}
