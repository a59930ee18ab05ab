//go:build !linux && !darwin

package platform

import "os"

func EnableDirectIO(_ *os.File) error { return ErrDirectIOUnsupported }

func DisableDirectIO(_ *os.File) error { return nil }

func DirectIOAlignment(_ *os.File) int { return DefaultAlignment }
