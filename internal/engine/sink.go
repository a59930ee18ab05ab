package engine

import (
	"context"
	"io"
)

// sink persists one block. Implementations loop over short writes; any
// error they return is final for the block.
type sink interface {
	writeBlock(ctx context.Context, p []byte, seq int64) error
}

// positionalSink writes block seq at base+seq*bs.
type positionalSink struct {
	w     io.WriterAt
	base  int64
	bs    int64
	retry retrier
}

func (s *positionalSink) writeBlock(ctx context.Context, p []byte, seq int64) error {
	off := s.base + seq*s.bs
	var n, attempt int
	for n < len(p) {
		m, err := s.w.WriteAt(p[n:], off+int64(n))
		n += m
		if err == nil {
			if m == 0 {
				return io.ErrShortWrite
			}
			continue
		}
		attempt++
		if werr := s.retry.wait(ctx, attempt, err); werr != nil {
			return werr
		}
	}
	return nil
}

// streamSink writes sequentially, for pipes and terminals.
type streamSink struct {
	w     io.Writer
	retry retrier
}

func (s *streamSink) writeBlock(ctx context.Context, p []byte, _ int64) error {
	var n, attempt int
	for n < len(p) {
		m, err := s.w.Write(p[n:])
		n += m
		if err == nil {
			if m == 0 {
				return io.ErrShortWrite
			}
			continue
		}
		attempt++
		if werr := s.retry.wait(ctx, attempt, err); werr != nil {
			return werr
		}
	}
	return nil
}
