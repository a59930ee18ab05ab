package platform

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignedBlock(t *testing.T) {
	for _, align := range []int{0, 1, 512, 4096} {
		buf := AlignedBlock(64*1024, align)
		assert.Len(t, buf, 64*1024)
		assert.Equal(t, 64*1024, cap(buf), "cap must not leak past the block")
		assert.True(t, IsAligned(buf, align), "align %d", align)
	}
}

func TestSizeAndSeekable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, make([]byte, 12345), 0644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Seek(100, 0)
	require.NoError(t, err)

	assert.True(t, Seekable(f))
	size, ok := Size(f)
	require.True(t, ok)
	assert.Equal(t, int64(12345), size)

	// Size must not move the offset.
	pos, err := f.Seek(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), pos)
	assert.True(t, IsRegular(f))
}

func TestPipeNotSeekable(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.False(t, Seekable(r))
	_, ok := Size(r)
	assert.False(t, ok)
	assert.False(t, IsRegular(r))
}

func TestDirectIOAlignment(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "f"))
	require.NoError(t, err)
	defer f.Close()

	align := DirectIOAlignment(f)
	assert.GreaterOrEqual(t, align, 512)
	assert.Zero(t, align&(align-1), "alignment %d must be a power of two", align)
}

func TestEnableDisableDirectIO(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "f"))
	require.NoError(t, err)
	defer f.Close()

	if err := EnableDirectIO(f); err != nil {
		t.Skipf("direct I/O unavailable here: %v", err)
	}
	require.NoError(t, DisableDirectIO(f))
}

func TestFdatasync(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "f"))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("data"))
	require.NoError(t, err)
	assert.NoError(t, Fdatasync(f))
}

func TestPreallocateKeepsSize(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "f"))
	require.NoError(t, err)
	defer f.Close()

	Preallocate(f, 1<<20)
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestIOURingDetection(t *testing.T) {
	// Just verify the function doesn't panic.
	supported := KernelSupportsIOURing()
	t.Logf("io_uring supported: %v", supported)
}

func TestRingFileRoundTrip(t *testing.T) {
	rg, err := NewRing(8)
	if rg == nil {
		t.Skipf("io_uring not available on this kernel (err=%v)", err)
	}
	require.NoError(t, err)
	defer rg.Close()

	dir := t.TempDir()
	data := make([]byte, 256*1024)
	_, err = rand.Read(data)
	require.NoError(t, err)

	f, err := os.OpenFile(filepath.Join(dir, "f"), os.O_RDWR|os.O_CREATE, 0644)
	require.NoError(t, err)
	defer f.Close()

	rf := rg.Bind(f)
	n, err := rf.WriteAt(data, 4096)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	got := make([]byte, len(data))
	n, err = rf.ReadAt(got, 4096)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.True(t, bytes.Equal(data, got))

	// Reading past the end reports EOF with the partial count.
	tail := make([]byte, 8192)
	n, err = rf.ReadAt(tail, int64(4096+len(data)-100))
	assert.Equal(t, 100, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestIOMethodString(t *testing.T) {
	assert.Equal(t, "read_write", ReadWrite.String())
	assert.Equal(t, "stream", Stream.String())
	assert.Equal(t, "io_uring", IOURing.String())
	assert.Equal(t, "unknown", IOMethod(99).String())
}

func TestDropCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cached")
	require.NoError(t, os.WriteFile(path, []byte("cached data"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, DropCache(f))
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "cached data", string(got))
}
