//go:build linux

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// EnableDirectIO sets O_DIRECT on an already-open descriptor so reads and
// writes bypass the page cache.
//
//nolint:gosec // G115: fd values are small non-negative integers
func EnableDirectIO(f *os.File) error {
	return setFlag(f, unix.O_DIRECT, true)
}

// DisableDirectIO clears O_DIRECT. Used before the final unaligned write of
// a copy, which the kernel would otherwise reject with EINVAL.
func DisableDirectIO(f *os.File) error {
	return setFlag(f, unix.O_DIRECT, false)
}

//nolint:gosec // G115: fd values are small non-negative integers
func setFlag(f *os.File, flag int, on bool) error {
	fd := int(f.Fd())
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return fmt.Errorf("fcntl F_GETFL %s: %w", f.Name(), err)
	}
	if on {
		flags |= flag
	} else {
		flags &^= flag
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags); err != nil {
		return fmt.Errorf("fcntl F_SETFL %s: %w", f.Name(), err)
	}
	return nil
}

// DirectIOAlignment returns the offset/length alignment O_DIRECT requires
// for f. Block devices report their logical sector size; files on
// filesystems that support STATX_DIOALIGN report it directly.
//
//nolint:gosec // G115: fd values are small non-negative integers
func DirectIOAlignment(f *os.File) int {
	fd := int(f.Fd())

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err == nil && st.Mode&unix.S_IFMT == unix.S_IFBLK {
		if sz, err := unix.IoctlGetInt(fd, unix.BLKSSZGET); err == nil && sz > 0 {
			return max(sz, minAlignment)
		}
	}

	var stx unix.Statx_t
	err := unix.Statx(fd, "", unix.AT_EMPTY_PATH, unix.STATX_DIOALIGN, &stx)
	if err == nil && stx.Mask&unix.STATX_DIOALIGN != 0 && stx.Dio_offset_align > 0 {
		return max(int(stx.Dio_offset_align), int(stx.Dio_mem_align), minAlignment)
	}
	return DefaultAlignment
}
