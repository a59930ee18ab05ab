package engine

import (
	"errors"
	"io"
	"os"
	"sort"
	"syscall"

	"golang.org/x/sys/unix"
)

// extent is a contiguous data region of a file.
type extent struct {
	off, end int64
}

// holeMap records where a sparse source file actually has data, so the
// reader can produce zero blocks for holes without reading them.
type holeMap struct {
	data []extent
	size int64
}

// mapHoles walks SEEK_DATA/SEEK_HOLE over the first size bytes of f. It
// returns nil when the file has no holes or the filesystem cannot report
// them.
func mapHoles(f *os.File, size int64) (*holeMap, error) {
	if size == 0 {
		return nil, nil
	}

	cur, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	defer f.Seek(cur, io.SeekStart) //nolint:errcheck // restores the caller's offset

	fd := int(f.Fd()) //nolint:gosec // G115: fd conversion is safe for file descriptors
	hm := &holeMap{size: size}
	offset := int64(0)

	for offset < size {
		dataStart, err := unix.Seek(fd, offset, unix.SEEK_DATA)
		if err != nil {
			if errors.Is(err, syscall.ENXIO) {
				// Rest of file is a hole.
				break
			}
			if errors.Is(err, syscall.EINVAL) {
				return nil, nil
			}
			return nil, err
		}

		holeStart, err := unix.Seek(fd, dataStart, unix.SEEK_HOLE)
		if err != nil {
			switch {
			case errors.Is(err, syscall.ENXIO):
				holeStart = size
			case errors.Is(err, syscall.EINVAL):
				return nil, nil
			default:
				return nil, err
			}
		}
		holeStart = min(holeStart, size)

		hm.data = append(hm.data, extent{off: dataStart, end: holeStart})
		offset = holeStart
	}

	if len(hm.data) == 1 && hm.data[0].off == 0 && hm.data[0].end == size {
		return nil, nil
	}
	return hm, nil
}

// isHole reports whether [off, off+n) contains no data.
func (h *holeMap) isHole(off, n int64) bool {
	if off+n > h.size {
		return false
	}
	i := sort.Search(len(h.data), func(i int) bool { return h.data[i].end > off })
	return i == len(h.data) || h.data[i].off >= off+n
}
