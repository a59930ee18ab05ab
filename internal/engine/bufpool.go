package engine

import (
	"context"
	"sync/atomic"

	"github.com/bamsammich/rdd/internal/platform"
)

// bufferPool hands out fixed-size, optionally aligned buffers. At most
// capacity buffers exist at once; Acquire blocks when all are in use.
type bufferPool struct {
	size     int
	align    int
	capacity int
	free     chan []byte
	made     atomic.Int32
}

func newBufferPool(size, align, capacity int) *bufferPool {
	return &bufferPool{
		size:     size,
		align:    align,
		capacity: capacity,
		free:     make(chan []byte, capacity),
	}
}

// Acquire returns a buffer of exactly the pool's size, allocating lazily up
// to capacity and then waiting for a Release.
func (p *bufferPool) Acquire(ctx context.Context) ([]byte, error) {
	select {
	case b := <-p.free:
		return b, nil
	default:
	}
	if n := p.made.Add(1); int(n) <= p.capacity {
		return platform.AlignedBlock(p.size, p.align), nil
	}
	p.made.Add(-1)

	select {
	case b := <-p.free:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns b to the pool. b may have been resliced.
func (p *bufferPool) Release(b []byte) {
	if cap(b) < p.size {
		return
	}
	select {
	case p.free <- b[:p.size]:
	default:
	}
}

// Allocated returns the number of buffers created so far.
func (p *bufferPool) Allocated() int { return int(p.made.Load()) }
