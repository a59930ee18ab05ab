package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	CopyStarted Type = iota + 1
	Progress
	ReadError
	Retry
	VerifyStarted
	VerifyOK
	VerifyFailed
	CopyFinished
)

var typeNames = [...]string{
	CopyStarted:   "CopyStarted",
	Progress:      "Progress",
	ReadError:     "ReadError",
	Retry:         "Retry",
	VerifyStarted: "VerifyStarted",
	VerifyOK:      "VerifyOK",
	VerifyFailed:  "VerifyFailed",
	CopyFinished:  "CopyFinished",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Seq       int64  // block sequence number (ReadError, Retry, VerifyFailed)
	Offset    int64  // byte offset of the block in the source or destination
	Bytes     int64  // bytes written so far
	Total     int64  // expected bytes, 0 when unknown
	Message   string // state name on CopyFinished, digest line on VerifyOK
	Error     error
}
