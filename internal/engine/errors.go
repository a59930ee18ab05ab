package engine

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

var (
	ErrAlignment        = errors.New("block size is not aligned for direct I/O")
	ErrHashMismatch     = errors.New("destination hash does not match source")
	ErrCancelled        = fmt.Errorf("copy cancelled: %w", context.Canceled)
	ErrIncompleteStream = errors.New("hash finalized before the final block")
	ErrOutOfOrder       = errors.New("block observed out of order")
	ErrFatalIO          = errors.New("fatal I/O error")
	ErrInvalidJob       = errors.New("invalid job")
)

// AlignmentError reports a block size that direct I/O cannot use.
type AlignmentError struct {
	BlockSize int
	Alignment int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("block size %d is not a multiple of the %d-byte direct I/O alignment",
		e.BlockSize, e.Alignment)
}

func (e *AlignmentError) Is(target error) bool { return target == ErrAlignment }

// IOError is an unrecoverable read or write failure. It matches ErrFatalIO.
type IOError struct {
	Op     string // "read", "write", "skip", "seek", "truncate", "sync", ...
	Seq    int64  // block sequence number, -1 when not tied to a block
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	if e.Seq < 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s block %d at offset %d: %v", e.Op, e.Seq, e.Offset, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrFatalIO, e.Err} }

// ErrorKind classifies a recoverable per-block error.
type ErrorKind int

const (
	KindReadError ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	if k == KindReadError {
		return "read"
	}
	return "unknown"
}

// BlockError is a recoverable failure recorded against one block. The block
// was replaced with zeroes and the copy continued.
type BlockError struct {
	Seq    int64
	Offset int64
	Kind   ErrorKind
	Err    error
}

func (e BlockError) Error() string {
	return fmt.Sprintf("%s error at block %d (offset %d): %v", e.Kind, e.Seq, e.Offset, e.Err)
}

func (e BlockError) Unwrap() error { return e.Err }

// HashMismatchError reports a destination whose re-read digest differs from
// the digest of the copied stream.
type HashMismatchError struct {
	Algorithm   HashAlgo
	Source      string
	Destination string
	// FirstBadBlock is the first block whose contents differ, -1 if unknown.
	FirstBadBlock int64
}

func (e *HashMismatchError) Error() string {
	msg := fmt.Sprintf("%s mismatch: source %s, destination %s", e.Algorithm, e.Source, e.Destination)
	if e.FirstBadBlock >= 0 {
		msg += fmt.Sprintf(" (first bad block %d)", e.FirstBadBlock)
	}
	return msg
}

func (e *HashMismatchError) Is(target error) bool { return target == ErrHashMismatch }

// isTransient reports errors that are worth retrying unchanged.
func isTransient(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}
