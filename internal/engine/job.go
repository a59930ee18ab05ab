package engine

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/bamsammich/rdd/internal/event"
	"github.com/bamsammich/rdd/internal/stats"
)

const (
	// DefaultQueueDepth is the number of blocks allowed between the reader
	// and the writer.
	DefaultQueueDepth = 8
	// MinQueueDepth leaves room for the block the reader holds back to find
	// the last one, plus the block being read or written.
	MinQueueDepth = 2
	// DefaultRetries is how many times a transient EINTR/EAGAIN is retried
	// before the error is treated as a real failure.
	DefaultRetries = 5
	// DefaultProgressInterval is how often Job.Progress is called.
	DefaultProgressInterval = time.Second
)

// Conv is a set of dd-style conversion flags.
type Conv uint8

const (
	ConvSync      Conv = 1 << iota // pad short and faulted blocks to the block size
	ConvNoTrunc                    // leave the destination length alone
	ConvNoError                    // zero-fill unreadable blocks and keep going
	ConvFsync                      // fsync the destination before finishing
	ConvFdatasync                  // fdatasync the destination before finishing
	ConvSparse                     // seek over all-zero blocks instead of writing them
)

var convNames = []struct {
	flag Conv
	name string
}{
	{ConvSync, "sync"},
	{ConvNoTrunc, "notrunc"},
	{ConvNoError, "noerror"},
	{ConvFsync, "fsync"},
	{ConvFdatasync, "fdatasync"},
	{ConvSparse, "sparse"},
}

// ParseConv parses a comma-separated list such as "sync,noerror".
func ParseConv(s string) (Conv, error) {
	var c Conv
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(strings.ToLower(field))
		if field == "" {
			continue
		}
		found := false
		for _, cn := range convNames {
			if cn.name == field {
				c |= cn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown conversion %q", field)
		}
	}
	return c, nil
}

// Has reports whether every flag in f is set.
func (c Conv) Has(f Conv) bool { return c&f == f }

func (c Conv) String() string {
	var names []string
	for _, cn := range convNames {
		if c.Has(cn.flag) {
			names = append(names, cn.name)
		}
	}
	return strings.Join(names, ",")
}

// Job describes a single copy. It is resolved by the caller and not modified
// once Run starts.
type Job struct {
	// Source is read from. When it also implements io.ReaderAt and
	// io.Seeker and is seekable, blocks are read positionally.
	Source io.Reader
	// Destination is written to. When it also implements io.WriterAt and
	// io.Seeker and is seekable, blocks are written positionally.
	Destination io.Writer

	BlockSize int
	Skip      int64 // blocks to skip on the source
	Seek      int64 // blocks to skip on the destination
	Count     int64 // blocks to copy, 0 for all

	Direct     bool
	Conv       Conv
	Hash       HashAlgo
	Verify     bool
	QueueDepth int
	// Retries bounds transient-error retries per block. 0 selects
	// DefaultRetries, negative disables retrying.
	Retries          int
	BWLimit          int64 // bytes/sec, 0 for unlimited
	ProgressInterval time.Duration
	UseIOURing       bool

	Logger   *slog.Logger
	Events   chan<- event.Event
	Progress func(ProgressSnapshot)
	// Stats receives the live counters. A fresh collector is used when nil.
	Stats *stats.Collector
}

// normalize fills defaults and rejects jobs that cannot run.
func (j *Job) normalize() error {
	if j.Source == nil {
		return fmt.Errorf("%w: no source", ErrInvalidJob)
	}
	if j.Destination == nil {
		return fmt.Errorf("%w: no destination", ErrInvalidJob)
	}
	if j.BlockSize <= 0 {
		return fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidJob, j.BlockSize)
	}
	if j.Skip < 0 || j.Seek < 0 || j.Count < 0 {
		return fmt.Errorf("%w: skip, seek and count must not be negative", ErrInvalidJob)
	}
	bs := int64(j.BlockSize)
	for _, v := range []int64{j.Skip, j.Seek, j.Count} {
		if v > math.MaxInt64/bs {
			return fmt.Errorf("%w: offset %d×%d overflows", ErrInvalidJob, v, bs)
		}
	}
	switch {
	case j.QueueDepth == 0:
		j.QueueDepth = DefaultQueueDepth
	case j.QueueDepth < MinQueueDepth:
		return fmt.Errorf("%w: queue depth must be at least %d, got %d", ErrInvalidJob, MinQueueDepth, j.QueueDepth)
	}
	if j.BWLimit < 0 {
		return fmt.Errorf("%w: bandwidth limit must not be negative", ErrInvalidJob)
	}
	switch {
	case j.Retries == 0:
		j.Retries = DefaultRetries
	case j.Retries < 0:
		j.Retries = 0
	}
	if j.ProgressInterval <= 0 {
		j.ProgressInterval = DefaultProgressInterval
	}
	if j.Verify && j.Hash == HashNone {
		j.Hash = HashBLAKE3
	}
	if j.Logger == nil {
		j.Logger = slog.Default()
	}
	if j.Stats == nil {
		j.Stats = stats.NewCollector()
	}
	return nil
}
