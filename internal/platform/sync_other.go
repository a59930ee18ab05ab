//go:build !linux

package platform

import "os"

// Fdatasync falls back to a full fsync where fdatasync(2) is unavailable.
func Fdatasync(f *os.File) error {
	return f.Sync()
}
