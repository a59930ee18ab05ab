package platform

import (
	"errors"
	"io"
	"os"
	"unsafe"
)

// IOMethod identifies which positional I/O backend moved the bytes.
type IOMethod int

const (
	ReadWrite IOMethod = iota // pread(2)/pwrite(2) through *os.File
	Stream                    // sequential read(2)/write(2), e.g. pipes
	IOURing                   // Linux io_uring
)

func (m IOMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case Stream:
		return "stream"
	case IOURing:
		return "io_uring"
	default:
		return "unknown"
	}
}

// ErrDirectIOUnsupported is returned when the platform has no way to bypass
// the page cache for a descriptor.
var ErrDirectIOUnsupported = errors.New("direct I/O not supported on this platform")

const (
	// DefaultAlignment is used when the device cannot report its own.
	DefaultAlignment = 4096
	minAlignment     = 512
)

// AlignedBlock returns a zeroed slice of exactly size bytes whose first byte
// sits on an align-byte boundary. align must be a power of two.
func AlignedBlock(size, align int) []byte {
	if align <= 1 {
		return make([]byte, size)
	}
	raw := make([]byte, size+align)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&raw[0])) & uintptr(align-1)); rem != 0 {
		off = align - rem
	}
	return raw[off : off+size : off+size]
}

// IsAligned reports whether b starts on an align-byte boundary.
func IsAligned(b []byte, align int) bool {
	if len(b) == 0 || align <= 1 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))&uintptr(align-1) == 0
}

// Seekable reports whether s supports random access. Pipes, sockets and
// terminals fail the seek with ESPIPE.
func Seekable(s io.Seeker) bool {
	_, err := s.Seek(0, io.SeekCurrent)
	return err == nil
}

// Size returns the byte length of a seekable handle, restoring the current
// offset afterwards. Block devices report their capacity via SEEK_END.
func Size(s io.Seeker) (int64, bool) {
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return 0, false
	}
	return end, true
}

// IsRegular reports whether f is a regular file (as opposed to a device,
// pipe or terminal). Truncation only makes sense for regular files.
func IsRegular(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
