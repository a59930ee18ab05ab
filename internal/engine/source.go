package engine

import (
	"context"
	"errors"
	"io"
)

// source fills block-sized buffers. readBlock returns the number of bytes
// placed in buf and io.EOF once the input is exhausted; a short count is
// only ever returned together with io.EOF or another error.
type source interface {
	readBlock(ctx context.Context, buf []byte, seq int64) (int, error)
}

// positionalSource reads block seq at base+seq*bs, so a failed block never
// shifts the offsets of the blocks after it.
type positionalSource struct {
	r     io.ReaderAt
	base  int64
	bs    int64
	retry retrier
}

func (s *positionalSource) offset(seq int64) int64 { return s.base + seq*s.bs }

func (s *positionalSource) readBlock(ctx context.Context, buf []byte, seq int64) (int, error) {
	off := s.offset(seq)
	var n, attempt int
	for n < len(buf) {
		m, err := s.r.ReadAt(buf[n:], off+int64(n))
		n += m
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		attempt++
		if werr := s.retry.wait(ctx, attempt, err); werr != nil {
			return n, werr
		}
	}
	return n, nil
}

// streamSource reads sequentially, for pipes and terminals.
type streamSource struct {
	r     io.Reader
	retry retrier
}

func (s *streamSource) readBlock(ctx context.Context, buf []byte, _ int64) (int, error) {
	var n, attempt, empty int
	for n < len(buf) {
		m, err := s.r.Read(buf[n:])
		n += m
		switch {
		case err == nil && m == 0:
			empty++
			if empty > 100 {
				return n, io.ErrNoProgress
			}
		case err == nil:
		case errors.Is(err, io.EOF):
			return n, io.EOF
		default:
			attempt++
			if werr := s.retry.wait(ctx, attempt, err); werr != nil {
				return n, werr
			}
		}
	}
	return n, nil
}
