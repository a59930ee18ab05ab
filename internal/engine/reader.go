package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/bamsammich/rdd/internal/event"
	"github.com/bamsammich/rdd/internal/stats"
)

// reader owns the source. It emits blocks in sequence order and marks
// exactly one of them Last, holding one block back so it knows. Every block
// it reads, the held-back one included, occupies a pipeline slot from before
// the read until the writer is done with it.
type reader struct {
	src    source
	pool   *bufferPool
	pipe   *pipeline
	bs     int
	count  int64
	conv   Conv
	base   int64 // source offset of block 0
	size   int64 // bytes available from base, -1 when unknown
	holes  *holeMap
	stats  *stats.Collector
	events chan<- event.Event
	log    *slog.Logger

	// errs is owned by the reader goroutine until run returns.
	errs []BlockError
}

func (r *reader) offset(seq int64) int64 { return r.base + seq*int64(r.bs) }

func (r *reader) run(ctx context.Context) error {
	defer r.pipe.Close()

	var pending *Block
	for seq := int64(0); ; seq++ {
		if err := r.pipe.Reserve(ctx); err != nil {
			r.drop(pending)
			return err
		}
		blk, err := r.next(ctx, seq)
		if err != nil {
			r.pipe.Done()
			r.drop(pending)
			return err
		}
		if blk == nil {
			r.pipe.Done()
			break
		}
		if pending != nil {
			r.push(*pending)
		}
		pending = blk
		if blk.Last {
			break
		}
	}
	if pending == nil {
		r.log.Debug("source produced no data")
		return nil
	}
	pending.Last = true
	r.push(*pending)
	return nil
}

// push queues a block whose slot was reserved before it was read.
func (r *reader) push(b Block) {
	r.pipe.Push(b)
	n := len(b.Data) - b.Padded
	r.stats.AddBlockRead(int64(n), int64(b.Padded), n < r.bs)
}

// drop gives back the buffer and slot of a block that will not be sent.
func (r *reader) drop(b *Block) {
	if b == nil {
		return
	}
	r.pool.Release(b.Data)
	r.pipe.Done()
}

// next reads block seq. It returns a nil block at a clean end of input.
func (r *reader) next(ctx context.Context, seq int64) (*Block, error) {
	buf, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	off := r.offset(seq)

	var n int
	var rerr error
	if want := r.expectedLen(seq); r.holes != nil && want > 0 && r.holes.isHole(off, int64(want)) {
		n = want
		clear(buf[:n])
		if n < r.bs {
			rerr = io.EOF
		}
	} else {
		n, rerr = r.src.readBlock(ctx, buf, seq)
	}

	eof, faulted := false, false
	switch {
	case rerr == nil:
	case errors.Is(rerr, io.EOF):
		eof = true
	case ctx.Err() != nil:
		r.pool.Release(buf)
		return nil, ctx.Err()
	case !r.conv.Has(ConvNoError):
		r.pool.Release(buf)
		return nil, &IOError{Op: "read", Seq: seq, Offset: off, Err: rerr}
	default:
		n = r.expectedLen(seq)
		clear(buf[:n])
		faulted = true
		r.recordFault(seq, off, rerr)
	}

	if n == 0 {
		r.pool.Release(buf)
		return nil, nil
	}

	blk := &Block{Seq: seq, Data: buf[:n], Faulted: faulted}
	if n < r.bs {
		eof = true
		if r.conv.Has(ConvSync) {
			clear(buf[n:r.bs])
			blk.Data = buf[:r.bs]
			blk.Padded = r.bs - n
		}
	}
	blk.Last = eof || (r.count > 0 && seq == r.count-1)
	return blk, nil
}

// expectedLen is how many bytes block seq holds when the source size is
// known, and the full block size otherwise.
func (r *reader) expectedLen(seq int64) int {
	if r.size < 0 {
		return r.bs
	}
	rem := r.size - seq*int64(r.bs)
	if rem <= 0 {
		return 0
	}
	return int(min(rem, int64(r.bs)))
}

func (r *reader) recordFault(seq, off int64, err error) {
	be := BlockError{Seq: seq, Offset: off, Kind: KindReadError, Err: err}
	r.errs = append(r.errs, be)
	r.stats.AddReadError()
	r.log.Warn("read error, substituting zeroes", "block", seq, "offset", off, "error", err)
	emitEvent(r.events, event.Event{
		Type:   event.ReadError,
		Seq:    seq,
		Offset: off,
		Error:  be,
	})
}
