package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"syscall"

	"github.com/bamsammich/rdd/internal/platform"
	"github.com/bamsammich/rdd/internal/stats"
)

// writer owns the destination. It persists blocks in the order received,
// then passes each one to the hasher or back to the pool.
type writer struct {
	sink  sink
	pipe  *pipeline
	pool  *bufferPool
	hashQ chan<- Block // nil when nothing is hashed

	file     *os.File // nil unless the destination is an *os.File
	truncate bool     // regular file without conv=notrunc
	base     int64    // destination offset of block 0
	expected int64    // bytes the copy will produce, -1 when unknown
	bs       int
	conv     Conv
	direct   bool
	align    int

	stats *stats.Collector
	log   *slog.Logger
}

func (w *writer) run(ctx context.Context) error {
	if w.hashQ != nil {
		defer close(w.hashQ)
	}
	if err := w.prepare(); err != nil {
		return err
	}

	for {
		blk, ok, err := w.pipe.Recv(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := w.write(ctx, blk); err != nil {
			w.pipe.Done()
			w.pool.Release(blk.Data)
			return err
		}
		// Count before Done so written never trails read by more than the depth.
		w.stats.AddBlockWritten(int64(len(blk.Data)), len(blk.Data) < w.bs)
		w.pipe.Done()

		if w.hashQ == nil {
			w.pool.Release(blk.Data)
			continue
		}
		select {
		case w.hashQ <- blk:
		case <-ctx.Done():
			w.pool.Release(blk.Data)
			return ctx.Err()
		}
	}
	return w.finish()
}

// prepare truncates a regular-file destination at the seek offset and then
// extends it to the expected length, so skipped sparse blocks read as zero.
func (w *writer) prepare() error {
	if w.file == nil || !w.truncate {
		return nil
	}
	if err := w.file.Truncate(w.base); err != nil {
		return &IOError{Op: "truncate", Seq: -1, Offset: w.base, Err: err}
	}
	if w.expected > 0 {
		end := w.base + w.expected
		if err := w.file.Truncate(end); err != nil {
			return &IOError{Op: "truncate", Seq: -1, Offset: end, Err: err}
		}
		platform.Preallocate(w.file, end)
	}
	return nil
}

func (w *writer) write(ctx context.Context, blk Block) error {
	if w.truncate && w.conv.Has(ConvSparse) && !blk.Last && allZero(blk.Data) {
		w.stats.AddSparseBlock()
		return nil
	}
	if w.direct && len(blk.Data)%w.align != 0 {
		// O_DIRECT rejects a short tail; finish it through the page cache.
		if err := platform.DisableDirectIO(w.file); err != nil {
			return &IOError{Op: "write", Seq: blk.Seq, Offset: w.offset(blk.Seq), Err: err}
		}
		w.direct = false
		w.log.Debug("direct I/O disabled for unaligned final block", "block", blk.Seq, "len", len(blk.Data))
	}
	if err := w.sink.writeBlock(ctx, blk.Data, blk.Seq); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &IOError{Op: "write", Seq: blk.Seq, Offset: w.offset(blk.Seq), Err: err}
	}
	return nil
}

func (w *writer) offset(seq int64) int64 { return w.base + seq*int64(w.bs) }

// finish flushes the destination when conv=fsync or conv=fdatasync asks.
func (w *writer) finish() error {
	if w.file == nil {
		return nil
	}
	var err error
	switch {
	case w.conv.Has(ConvFsync):
		err = w.file.Sync()
	case w.conv.Has(ConvFdatasync):
		err = platform.Fdatasync(w.file)
	default:
		return nil
	}
	// Pipes and some character devices cannot be synced. dd ignores that too.
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTSUP) {
		w.log.Debug("destination does not support sync", "error", err)
		return nil
	}
	if err != nil {
		return &IOError{Op: "sync", Seq: -1, Err: err}
	}
	w.log.Debug("destination flushed", "conv", w.conv.String())
	return nil
}
