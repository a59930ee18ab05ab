package engine

import (
	"bytes"
	"context"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionalSinkLoopsShortWrites(t *testing.T) {
	t.Parallel()
	dst := newMemFile()
	dst.maxWrite = 100
	s := &positionalSink{w: dst, base: 10, bs: 1000}

	data := randomBytes(t, 1000)
	require.NoError(t, s.writeBlock(context.Background(), data, 2))

	got := dst.Bytes()
	require.Len(t, got, 3010)
	assert.Equal(t, data, got[2010:])
}

func TestPositionalSinkFatal(t *testing.T) {
	t.Parallel()
	dst := newMemFile()
	dst.failAt = 0
	s := &positionalSink{w: dst, bs: 512, retry: retrier{budget: 3}}

	err := s.writeBlock(context.Background(), make([]byte, 512), 0)
	require.ErrorIs(t, err, syscall.EIO)
}

func TestStreamSinkRetriesTransient(t *testing.T) {
	t.Parallel()
	var retries int
	w := &flakyWriter{failures: 2}
	s := &streamSink{w: w, retry: retrier{budget: 5, onRetry: func(error) { retries++ }}}

	require.NoError(t, s.writeBlock(context.Background(), []byte("payload"), 0))
	assert.Equal(t, "payload", w.String())
	assert.Equal(t, 2, retries)
}

func TestStreamSinkRetryBudgetExhausted(t *testing.T) {
	t.Parallel()
	w := &flakyWriter{failures: 10}
	s := &streamSink{w: w, retry: retrier{budget: 2}}

	err := s.writeBlock(context.Background(), []byte("payload"), 0)
	require.ErrorIs(t, err, syscall.EAGAIN)
}

func TestStreamSourceFillsBlocks(t *testing.T) {
	t.Parallel()
	data := randomBytes(t, 2500)
	src := &streamSource{r: streamOnly{bytes.NewReader(data)}}
	buf := make([]byte, 1000)

	n, err := src.readBlock(context.Background(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	n, err = src.readBlock(context.Background(), buf, 1)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	n, err = src.readBlock(context.Background(), buf, 2)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 500, n)
	assert.Equal(t, data[2000:], buf[:500])
}

func TestRetrierIgnoresPermanentErrors(t *testing.T) {
	t.Parallel()
	r := retrier{budget: 5}
	err := r.wait(context.Background(), 1, syscall.EIO)
	require.ErrorIs(t, err, syscall.EIO)
	require.NoError(t, r.wait(context.Background(), 1, syscall.EINTR))
	require.ErrorIs(t, r.wait(context.Background(), 6, syscall.EINTR), syscall.EINTR)
}

func TestNewBWLimiter(t *testing.T) {
	t.Parallel()

	t.Run("burst capped to rate when rate < 1MB", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(1024)
		assert.Equal(t, 1024, lim.Burst())
	})

	t.Run("burst is 1MB when rate >= 1MB", func(t *testing.T) {
		t.Parallel()
		lim := NewBWLimiter(10 * 1024 * 1024)
		assert.Equal(t, 1<<20, lim.Burst())
	})
}

func TestLimitedSink(t *testing.T) {
	t.Parallel()

	t.Run("writes all data", func(t *testing.T) {
		t.Parallel()
		dst := newMemFile()
		s := &limitedSink{next: &positionalSink{w: dst, bs: 4096}, limiter: NewBWLimiter(1 << 20)}
		data := bytes.Repeat([]byte("x"), 4096)
		require.NoError(t, s.writeBlock(context.Background(), data, 0))
		assert.Equal(t, data, dst.Bytes())
	})

	t.Run("enforces rate limit", func(t *testing.T) {
		t.Parallel()
		// 10 KB at 5 KB/s should take ~1s after the initial burst.
		dst := newMemFile()
		s := &limitedSink{next: &positionalSink{w: dst, bs: 10 * 1024}, limiter: NewBWLimiter(5 * 1024)}

		start := time.Now()
		require.NoError(t, s.writeBlock(context.Background(), make([]byte, 10*1024), 0))
		assert.Greater(t, time.Since(start), 500*time.Millisecond,
			"rate limiter should slow writes to ~5KB/s")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()
		s := &limitedSink{next: &positionalSink{w: newMemFile(), bs: 1 << 20}, limiter: NewBWLimiter(1024)}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.Error(t, s.writeBlock(ctx, make([]byte, 1<<20), 0))
	})
}
