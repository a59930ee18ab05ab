package engine

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func writeTempFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// faultySource is a seekable in-memory source whose blocks can be made to
// fail permanently or transiently.
type faultySource struct {
	*bytes.Reader
	bs int64

	mu        sync.Mutex
	bad       map[int64]bool
	transient map[int64]int
}

func newFaultySource(data []byte, bs int) *faultySource {
	return &faultySource{
		Reader:    bytes.NewReader(data),
		bs:        int64(bs),
		bad:       map[int64]bool{},
		transient: map[int64]int{},
	}
}

func (f *faultySource) ReadAt(p []byte, off int64) (int, error) {
	blk := off / f.bs
	f.mu.Lock()
	if n := f.transient[blk]; n > 0 {
		f.transient[blk] = n - 1
		f.mu.Unlock()
		return 0, &os.PathError{Op: "read", Path: "faulty", Err: syscall.EINTR}
	}
	bad := f.bad[blk]
	f.mu.Unlock()
	if bad {
		return 0, &os.PathError{Op: "read", Path: "faulty", Err: syscall.EIO}
	}
	return f.Reader.ReadAt(p, off)
}

// memFile is an in-memory positional destination.
type memFile struct {
	mu       sync.Mutex
	data     []byte
	pos      int64
	maxWrite int           // caps bytes accepted per call, 0 for no cap
	failAt   int64         // writes covering this offset fail, -1 for never
	delay    time.Duration // per-write latency
	corrupt  int64         // ReadAt flips the byte at this offset, -1 for never
}

func newMemFile() *memFile { return &memFile{failAt: -1, corrupt: -1} }

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt >= 0 && off <= m.failAt && m.failAt < off+int64(len(p)) {
		return 0, &os.PathError{Op: "write", Path: "mem", Err: syscall.EIO}
	}
	n := len(p)
	if m.maxWrite > 0 && n > m.maxWrite {
		n = m.maxWrite
	}
	if end := off + int64(n); end > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-int64(len(m.data)))...)
	}
	copy(m.data[off:], p[:n])
	return n, nil
}

func (m *memFile) Write(p []byte) (int, error) {
	n, err := m.WriteAt(p, m.pos)
	m.pos += int64(n)
	return n, err
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if m.corrupt >= off && m.corrupt < off+int64(n) {
		p[m.corrupt-off] ^= 0xff
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.data)) + offset
	}
	return m.pos, nil
}

func (m *memFile) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.data)
}

// streamOnly hides everything but Read or Write, like a pipe.
type streamOnly struct {
	io.Reader
}

type streamSinkOnly struct {
	io.Writer
}

// zeroStream is an endless stream of zeroes.
type zeroStream struct{}

func (zeroStream) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// flakyWriter fails its first n writes with EAGAIN.
type flakyWriter struct {
	bytes.Buffer
	failures int
}

func (f *flakyWriter) Write(p []byte) (int, error) {
	if f.failures > 0 {
		f.failures--
		return 0, syscall.EAGAIN
	}
	return f.Buffer.Write(p)
}

// countingSource counts reads that returned data.
type countingSource struct {
	r     *bytes.Reader
	reads atomic.Int64
}

func (s *countingSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		s.reads.Add(1)
	}
	return n, err
}

func (s *countingSource) ReadAt(p []byte, off int64) (int, error) {
	n, err := s.r.ReadAt(p, off)
	if n > 0 {
		s.reads.Add(1)
	}
	return n, err
}

func (s *countingSource) Seek(offset int64, whence int) (int64, error) {
	return s.r.Seek(offset, whence)
}

// trackingDest records, at the start of every write, how many source reads
// have completed without their write completing.
type trackingDest struct {
	*memFile
	reads   *atomic.Int64
	written atomic.Int64
	worst   atomic.Int64
}

func (d *trackingDest) WriteAt(p []byte, off int64) (int, error) {
	gap := d.reads.Load() - d.written.Load()
	for {
		cur := d.worst.Load()
		if gap <= cur || d.worst.CompareAndSwap(cur, gap) {
			break
		}
	}
	n, err := d.memFile.WriteAt(p, off)
	d.written.Add(1)
	return n, err
}

// cancellingDest cancels the job from inside write number cancelAt and
// counts the writes that start afterwards.
type cancellingDest struct {
	*memFile
	cancelAt int64
	cancel   context.CancelFunc
	started  atomic.Int64
	after    atomic.Int64
}

func (d *cancellingDest) WriteAt(p []byte, off int64) (int, error) {
	switch n := d.started.Add(1); {
	case n == d.cancelAt:
		d.cancel()
	case n > d.cancelAt:
		d.after.Add(1)
	}
	return d.memFile.WriteAt(p, off)
}
