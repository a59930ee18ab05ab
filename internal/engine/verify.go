package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/bamsammich/rdd/internal/event"
	"github.com/bamsammich/rdd/internal/stats"
)

// verifier re-reads the region the writer produced and digests it with a
// fresh accumulator.
type verifier struct {
	src          *positionalSource
	length       int64 // bytes written by the copy
	bs           int
	algos        HashAlgo
	pool         *bufferPool
	fingerprints []uint64
	stats        *stats.Collector
}

type verifyResult struct {
	digests Digests
	// firstBad is the first block whose contents differ from what was
	// written, -1 if every block matched.
	firstBad int64
}

func (v *verifier) run(ctx context.Context) (verifyResult, error) {
	res := verifyResult{firstBad: -1}
	acc := NewAccumulator(v.algos)

	buf, err := v.pool.Acquire(ctx)
	if err != nil {
		return res, err
	}
	defer v.pool.Release(buf)

	bs := int64(v.bs)
	blocks := (v.length + bs - 1) / bs
	if blocks == 0 {
		acc.End()
	}
	for seq := int64(0); seq < blocks; seq++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		want := int(min(bs, v.length-seq*bs))
		// Always read a whole block; O_DIRECT rejects unaligned lengths.
		n, err := v.src.readBlock(ctx, buf, seq)
		if err != nil && !errors.Is(err, io.EOF) {
			return res, &IOError{Op: "verify", Seq: seq, Offset: v.src.offset(seq), Err: err}
		}
		data := buf[:min(n, want)]
		if oerr := acc.Observe(Block{Seq: seq, Data: data, Last: seq == blocks-1}); oerr != nil {
			return res, oerr
		}
		if res.firstBad < 0 && v.fingerprints != nil && !v.matches(seq, data) {
			res.firstBad = seq
		}
		v.stats.AddBlockVerified()
	}

	res.digests, err = acc.Finalize()
	return res, err
}

func (v *verifier) matches(seq int64, data []byte) bool {
	return seq < int64(len(v.fingerprints)) && xxhash.Sum64(data) == v.fingerprints[seq]
}

// compareDigests returns a HashMismatchError for the first algorithm whose
// digests differ.
func compareDigests(src, dst Digests, firstBad int64) error {
	for _, algo := range singleAlgos {
		s, ok := src[algo]
		if !ok {
			continue
		}
		if d := dst[algo]; d != s {
			return &HashMismatchError{
				Algorithm:     algo,
				Source:        s,
				Destination:   d,
				FirstBadBlock: firstBad,
			}
		}
	}
	return nil
}

func emitEvent(ch chan<- event.Event, e event.Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
