package engine

import (
	"context"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps aggregate throughput to
// bytesPerSec. The burst is set to 1 MB to allow natural block-size chunks
// through without unnecessary blocking on small writes.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20 // 1 MB
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// limitedSink waits for tokens before handing a block to the next sink.
// Blocks larger than the burst are paid for in burst-sized installments.
type limitedSink struct {
	next    sink
	limiter *rate.Limiter
}

func (ls *limitedSink) writeBlock(ctx context.Context, p []byte, seq int64) error {
	burst := ls.limiter.Burst()
	for rem := len(p); rem > 0; {
		n := min(rem, burst)
		if err := ls.limiter.WaitN(ctx, n); err != nil {
			return err
		}
		rem -= n
	}
	return ls.next.writeBlock(ctx, p, seq)
}
