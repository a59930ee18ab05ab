//go:build !linux

package platform

import (
	"errors"
	"os"
)

// Ring is unavailable outside Linux; NewRing always returns (nil, nil).
type Ring struct{}

func NewRing(_ uint) (*Ring, error) { return nil, nil }

func (*Ring) Close() error { return nil }

func (rg *Ring) Bind(f *os.File) *RingFile { return &RingFile{} }

// RingFile is a stub that always fails.
type RingFile struct{}

var errNoRing = errors.New("io_uring not available")

func (*RingFile) ReadAt(_ []byte, _ int64) (int, error)  { return 0, errNoRing }
func (*RingFile) WriteAt(_ []byte, _ int64) (int, error) { return 0, errNoRing }

// KernelSupportsIOURing always returns false on non-Linux platforms.
func KernelSupportsIOURing() bool { return false }
