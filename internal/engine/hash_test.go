package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func blake3Hex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestParseHashAlgo(t *testing.T) {
	tests := []struct {
		in      string
		want    HashAlgo
		wantErr bool
	}{
		{in: "", want: HashNone},
		{in: "none", want: HashNone},
		{in: "blake3", want: HashBLAKE3},
		{in: "SHA256", want: HashSHA256},
		{in: "both", want: HashBoth},
		{in: "md5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHashAlgo(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashAlgoAlgorithms(t *testing.T) {
	assert.Equal(t, []HashAlgo{HashBLAKE3, HashSHA256}, HashBoth.Algorithms())
	assert.Equal(t, []HashAlgo{HashSHA256}, HashSHA256.Algorithms())
	assert.Empty(t, HashNone.Algorithms())
	assert.Equal(t, "both", HashBoth.String())
	assert.False(t, HashBLAKE3.Has(HashNone))
}

func TestAccumulatorDigests(t *testing.T) {
	data := randomBytes(t, 3*1000+17)
	acc := NewAccumulator(HashBoth)
	for seq := int64(0); seq < 4; seq++ {
		end := min(int((seq+1)*1000), len(data))
		require.NoError(t, acc.Observe(Block{
			Seq:  seq,
			Data: data[seq*1000 : end],
			Last: seq == 3,
		}))
	}

	d, err := acc.Finalize()
	require.NoError(t, err)
	assert.Equal(t, blake3Hex(data), d[HashBLAKE3])
	assert.Equal(t, sha256Hex(data), d[HashSHA256])
	assert.Equal(t, "blake3="+blake3Hex(data)+" sha256="+sha256Hex(data), d.String())
}

func TestAccumulatorRejectsOutOfOrder(t *testing.T) {
	acc := NewAccumulator(HashBLAKE3)
	require.NoError(t, acc.Observe(Block{Seq: 0, Data: []byte("a")}))
	require.ErrorIs(t, acc.Observe(Block{Seq: 2, Data: []byte("c")}), ErrOutOfOrder)
	require.NoError(t, acc.Observe(Block{Seq: 1, Data: []byte("b"), Last: true}))
	require.ErrorIs(t, acc.Observe(Block{Seq: 2}), ErrOutOfOrder)
}

func TestAccumulatorIncomplete(t *testing.T) {
	acc := NewAccumulator(HashBLAKE3)
	require.NoError(t, acc.Observe(Block{Seq: 0, Data: []byte("partial")}))
	_, err := acc.Finalize()
	require.ErrorIs(t, err, ErrIncompleteStream)
}

func TestAccumulatorEmptyStream(t *testing.T) {
	acc := NewAccumulator(HashSHA256)
	_, err := acc.Finalize()
	require.ErrorIs(t, err, ErrIncompleteStream)

	acc.End()
	d, err := acc.Finalize()
	require.NoError(t, err)
	assert.Equal(t, sha256Hex(nil), d[HashSHA256])
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte("hello world")
	path := writeTempFile(t, dir, "test.txt", data)

	d, err := HashFile(context.Background(), path, HashBoth)
	require.NoError(t, err)
	assert.Equal(t, blake3Hex(data), d[HashBLAKE3])
	assert.Equal(t, sha256Hex(data), d[HashSHA256])
}

func TestHashReaderBufferMultiple(t *testing.T) {
	// Exactly two internal buffers: the stream ends on a block boundary.
	data := randomBytes(t, 2*256*1024)
	d, err := HashReader(context.Background(), bytes.NewReader(data), HashBLAKE3)
	require.NoError(t, err)
	assert.Equal(t, blake3Hex(data), d[HashBLAKE3])
}

func TestHashFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	d, err := HashFile(context.Background(), path, HashBLAKE3)
	require.NoError(t, err)
	assert.Equal(t, blake3Hex(nil), d[HashBLAKE3])
}

func TestHashFileNotExist(t *testing.T) {
	_, err := HashFile(context.Background(), "/nonexistent/file", HashBLAKE3)
	assert.Error(t, err)
}
