package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllZero(t *testing.T) {
	assert.True(t, allZero(nil))
	assert.True(t, allZero(make([]byte, 4099)))
	b := make([]byte, 4099)
	b[4098] = 1
	assert.False(t, allZero(b))
	b[4098] = 0
	b[3] = 1
	assert.False(t, allZero(b))
}

func TestMapHolesRegularFile(t *testing.T) {
	path := writeTempFile(t, t.TempDir(), "regular", randomBytes(t, 8192))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	hm, err := mapHoles(f, 8192)
	require.NoError(t, err)
	assert.Nil(t, hm, "a file without holes needs no map")
}

func TestMapHolesSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse")
	f, err := os.Create(path)
	require.NoError(t, err)

	// 1 MiB hole followed by 4 KiB of data.
	size := int64(1<<20 + 4096)
	require.NoError(t, f.Truncate(size))
	_, err = f.WriteAt(randomBytes(t, 4096), 1<<20)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	hm, err := mapHoles(f, size)
	require.NoError(t, err)
	if hm == nil {
		t.Skip("filesystem does not report holes")
	}
	assert.True(t, hm.isHole(0, 4096))
	assert.False(t, hm.isHole(1<<20, 4096))
	assert.False(t, hm.isHole(1<<20-2048, 4096), "range straddling data")
	assert.False(t, hm.isHole(size, 4096), "past end of file")

	pos, err := f.Seek(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos, "offset restored")
}

func TestMapHolesEmpty(t *testing.T) {
	path := writeTempFile(t, t.TempDir(), "empty", nil)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	hm, err := mapHoles(f, 0)
	require.NoError(t, err)
	assert.Nil(t, hm)
}
