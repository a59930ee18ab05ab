//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// Fdatasync flushes file data (but not unrelated metadata such as mtime)
// to stable storage.
//
//nolint:gosec // G115: fd values are small non-negative integers
func Fdatasync(f *os.File) error {
	for {
		err := unix.Fdatasync(int(f.Fd()))
		if err != unix.EINTR {
			return err
		}
	}
}
