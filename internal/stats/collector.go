package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Reader is the read-only view presenters use.
type Reader interface {
	Snapshot() Snapshot
	RollingSpeed(seconds int) float64
	ETA() time.Duration
	SparklineData(n int) []float64
}

// ReadTicker is a Reader that presenters also drive once per second.
type ReadTicker interface {
	Reader
	Tick()
}

// Collector tracks copy progress using lock-free atomic counters. The
// reader and writer goroutines are the only writers; everything else reads.
type Collector struct {
	bytesRead      atomic.Int64
	bytesWritten   atomic.Int64
	bytesPadded    atomic.Int64
	bytesTotal     atomic.Int64
	blocksRead     atomic.Int64
	blocksWritten  atomic.Int64
	partialIn      atomic.Int64
	partialOut     atomic.Int64
	blocksSparse   atomic.Int64
	blocksVerified atomic.Int64
	readErrors     atomic.Int64
	retries        atomic.Int64
	startTime      time.Time

	// Ring buffer, written only by Tick().
	mu         sync.Mutex
	throughput [ringSize]int64 // bytes delta per second
	ringIdx    int
	ringCount  int // how many samples have been written (capped at ringSize)
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetTotal records the expected number of bytes, when it is known up front.
func (c *Collector) SetTotal(bytes int64) { c.bytesTotal.Store(bytes) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	BytesRead      int64
	BytesWritten   int64
	BytesPadded    int64
	BytesTotal     int64
	BlocksRead     int64
	BlocksWritten  int64
	PartialIn      int64
	PartialOut     int64
	BlocksSparse   int64
	BlocksVerified int64
	ReadErrors     int64
	Retries        int64
	Elapsed        time.Duration
}

// AddBlockRead counts one emitted block: n source bytes plus padded zero bytes.
func (c *Collector) AddBlockRead(n, padded int64, partial bool) {
	c.bytesRead.Add(n)
	if padded > 0 {
		c.bytesPadded.Add(padded)
	}
	if partial {
		c.partialIn.Add(1)
	}
	c.blocksRead.Add(1)
}

// AddBlockWritten counts one block persisted to the destination.
func (c *Collector) AddBlockWritten(n int64, partial bool) {
	c.bytesWritten.Add(n)
	if partial {
		c.partialOut.Add(1)
	}
	c.blocksWritten.Add(1)
}

func (c *Collector) AddSparseBlock()     { c.blocksSparse.Add(1) }
func (c *Collector) AddBlockVerified()   { c.blocksVerified.Add(1) }
func (c *Collector) AddReadError()       { c.readErrors.Add(1) }
func (c *Collector) AddRetry()           { c.retries.Add(1) }
func (c *Collector) BytesWritten() int64 { return c.bytesWritten.Load() }

// Snapshot returns a point-in-time read of all counters. Reads happen in
// pipeline order (read before written) so BlocksRead-BlocksWritten never
// overstates the number of blocks in flight.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		BytesRead:  c.bytesRead.Load(),
		BlocksRead: c.blocksRead.Load(),
		PartialIn:  c.partialIn.Load(),
	}
	s.BytesPadded = c.bytesPadded.Load()
	s.BytesWritten = c.bytesWritten.Load()
	s.BlocksWritten = c.blocksWritten.Load()
	s.PartialOut = c.partialOut.Load()
	s.BlocksSparse = c.blocksSparse.Load()
	s.BlocksVerified = c.blocksVerified.Load()
	s.ReadErrors = c.readErrors.Load()
	s.Retries = c.retries.Load()
	s.BytesTotal = c.bytesTotal.Load()
	s.Elapsed = c.Elapsed()
	return s
}

// Tick snapshots the byte delta into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	current := c.bytesWritten.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.lastBytes = current
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(seconds, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := 0; i < count; i++ {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns the last n bytes/sec samples, oldest first.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	if count <= 0 {
		return nil
	}

	data := make([]float64, count)
	for i := 0; i < count; i++ {
		idx := (c.ringIdx - count + i + ringSize) % ringSize
		data[i] = float64(c.throughput[idx])
	}
	return data
}

// ETA estimates remaining time based on rolling speed and remaining bytes.
// Zero when the total is unknown (streams) or nothing is moving.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesTotal.Load() - c.bytesWritten.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / speed * float64(time.Second))
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"read=%d+%d written=%d+%d bytes=%d padded=%d sparse=%d errors=%d retries=%d",
		s.BlocksRead-s.PartialIn, s.PartialIn,
		s.BlocksWritten-s.PartialOut, s.PartialOut,
		s.BytesWritten, s.BytesPadded, s.BlocksSparse, s.ReadErrors, s.Retries,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
