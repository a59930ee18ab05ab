package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// HashAlgo is a set of digest algorithms.
type HashAlgo uint8

const (
	HashBLAKE3 HashAlgo = 1 << iota
	HashSHA256

	HashNone HashAlgo = 0
	HashBoth          = HashBLAKE3 | HashSHA256
)

var singleAlgos = []HashAlgo{HashBLAKE3, HashSHA256}

// ParseHashAlgo accepts "blake3", "sha256", "both" or "none".
func ParseHashAlgo(s string) (HashAlgo, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return HashNone, nil
	case "blake3", "b3":
		return HashBLAKE3, nil
	case "sha256", "sha-256":
		return HashSHA256, nil
	case "both", "all":
		return HashBoth, nil
	default:
		return HashNone, fmt.Errorf("unknown hash algorithm %q (want blake3, sha256 or both)", s)
	}
}

// Has reports whether every algorithm in x is selected.
func (h HashAlgo) Has(x HashAlgo) bool { return h&x == x && x != 0 }

// Algorithms returns the individual algorithms in h.
func (h HashAlgo) Algorithms() []HashAlgo {
	var out []HashAlgo
	for _, a := range singleAlgos {
		if h.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (h HashAlgo) String() string {
	switch h {
	case HashNone:
		return "none"
	case HashBLAKE3:
		return "blake3"
	case HashSHA256:
		return "sha256"
	case HashBoth:
		return "both"
	default:
		return fmt.Sprintf("HashAlgo(%d)", uint8(h))
	}
}

func (h HashAlgo) newHash() hash.Hash {
	switch h {
	case HashBLAKE3:
		return blake3.New()
	case HashSHA256:
		return sha256.New()
	default:
		panic(fmt.Sprintf("engine: no hash for %s", h))
	}
}

// Digests maps each algorithm to its hex-encoded digest.
type Digests map[HashAlgo]string

func (d Digests) String() string {
	var parts []string
	for _, a := range singleAlgos {
		if v, ok := d[a]; ok {
			parts = append(parts, a.String()+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

// Accumulator computes running digests over a block stream. Blocks must
// arrive in sequence order starting at 0.
type Accumulator struct {
	algos   []HashAlgo
	hashes  []hash.Hash
	w       io.Writer
	next    int64
	done    bool
	results Digests
}

// NewAccumulator returns an Accumulator for the algorithms in algos.
func NewAccumulator(algos HashAlgo) *Accumulator {
	a := &Accumulator{algos: algos.Algorithms()}
	writers := make([]io.Writer, 0, len(a.algos))
	for _, algo := range a.algos {
		h := algo.newHash()
		a.hashes = append(a.hashes, h)
		writers = append(writers, h)
	}
	a.w = io.MultiWriter(writers...)
	return a
}

// Observe feeds b into every digest.
func (a *Accumulator) Observe(b Block) error {
	if a.done {
		return fmt.Errorf("%w: block %d after the final block", ErrOutOfOrder, b.Seq)
	}
	if b.Seq != a.next {
		return fmt.Errorf("%w: got block %d, want %d", ErrOutOfOrder, b.Seq, a.next)
	}
	a.w.Write(b.Data) //nolint:errcheck // hash.Hash writes never fail
	a.next++
	a.done = b.Last
	return nil
}

// End marks a stream that finished without producing any block.
func (a *Accumulator) End() {
	if a.next == 0 {
		a.done = true
	}
}

// Finalize returns the digests. It fails with ErrIncompleteStream until the
// final block has been observed.
func (a *Accumulator) Finalize() (Digests, error) {
	if !a.done {
		return nil, fmt.Errorf("%w: %d blocks observed", ErrIncompleteStream, a.next)
	}
	if a.results == nil {
		a.results = make(Digests, len(a.algos))
		for i, algo := range a.algos {
			a.results[algo] = hex.EncodeToString(a.hashes[i].Sum(nil))
		}
	}
	return a.results, nil
}

// hasher is the pipeline stage that feeds written blocks to the
// accumulator and records per-block fingerprints for verification.
type hasher struct {
	in           <-chan Block
	acc          *Accumulator
	pool         *bufferPool
	fingerprints []uint64 // nil unless verifying
	record       bool
}

func (h *hasher) run(_ context.Context) error {
	var err error
	for blk := range h.in {
		if err == nil {
			err = h.acc.Observe(blk)
			if h.record {
				h.fingerprints = append(h.fingerprints, xxhash.Sum64(blk.Data))
			}
		}
		h.pool.Release(blk.Data)
	}
	return err
}

// HashFile computes digests of the whole file at path.
func HashFile(ctx context.Context, path string, algos HashAlgo) (Digests, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d, err := HashReader(ctx, f, algos)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return d, nil
}

// HashReader computes digests of everything r yields.
func HashReader(ctx context.Context, r io.Reader, algos HashAlgo) (Digests, error) {
	acc := NewAccumulator(algos)
	buf := make([]byte, 256*1024)
	for seq := int64(0); ; seq++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := io.ReadFull(r, buf)
		last := err == io.EOF || err == io.ErrUnexpectedEOF
		if err != nil && !last {
			return nil, err
		}
		if n == 0 {
			acc.End()
			if seq > 0 {
				// Previous block was exactly full; close the stream with an empty one.
				acc.Observe(Block{Seq: seq, Last: true}) //nolint:errcheck // seq is in order
			}
			break
		}
		if oerr := acc.Observe(Block{Seq: seq, Data: buf[:n], Last: last}); oerr != nil {
			return nil, oerr
		}
		if last {
			break
		}
	}
	return acc.Finalize()
}
