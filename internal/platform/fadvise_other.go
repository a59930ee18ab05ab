//go:build !linux

package platform

import "os"

// DropCache is a no-op where posix_fadvise is unavailable.
func DropCache(_ *os.File) error { return nil }
