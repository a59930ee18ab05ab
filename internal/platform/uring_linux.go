//go:build linux

package platform

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// io_uring constants.
const (
	ioringOpRead  = 22
	ioringOpWrite = 23

	ioringEnterGetevents = 1 << 0
)

// io_uring_sqe: submission queue entry (64 bytes).
type ioUringSQE struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	len         uint32
	opcodeFlags uint32
	userData    uint64
	bufIG       uint16
	personality uint16
	spliceFdIn  int32
	_pad2       [2]uint64
}

// io_uring_cqe: completion queue entry (16 bytes).
type ioUringCQE struct {
	userData uint64
	res      int32
	flags    uint32
}

// io_uring_params: setup parameters.
type ioUringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        ioUringSQRingOffsets
	cqOff        ioUringCQRingOffsets
}

type ioUringSQRingOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	userAddr    uint64
}

type ioUringCQRingOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	overflow    uint32
	cqes        uint32
	flags       uint32
	resv1       uint32
	userAddr    uint64
}

const (
	sqeSize = 64
	cqeSize = 16
)

// ring wraps the memory-mapped io_uring state.
type ring struct {
	fd int

	sqHead    *uint32
	sqTail    *uint32
	sqMask    *uint32
	sqArray   unsafe.Pointer
	sqes      unsafe.Pointer
	sqRingMem []byte

	cqHead    *uint32
	cqTail    *uint32
	cqMask    *uint32
	cqes      unsafe.Pointer
	cqRingMem []byte

	sqesMem []byte
}

// Ring is a single-submitter io_uring instance. It is not safe for
// concurrent use: each pipeline stage that wants io_uring owns its own Ring.
type Ring struct {
	r *ring
}

// NewRing creates a ring with the given queue depth. Returns (nil, nil) if
// the kernel does not support io_uring (< 5.6).
func NewRing(queueDepth uint) (*Ring, error) {
	if !kernelSupportsIOURing() {
		return nil, nil
	}
	r, err := setupRing(uint32(queueDepth)) //nolint:gosec // G115: depth is small
	if err != nil {
		return nil, err
	}
	return &Ring{r: r}, nil
}

// Close releases the ring.
func (rg *Ring) Close() error {
	if rg == nil || rg.r == nil {
		return nil
	}
	err := rg.r.close()
	rg.r = nil
	return err
}

// Bind returns positional I/O on f routed through the ring.
func (rg *Ring) Bind(f *os.File) *RingFile {
	return &RingFile{ring: rg, f: f}
}

// RingFile implements io.ReaderAt and io.WriterAt on top of a Ring.
type RingFile struct {
	ring *Ring
	f    *os.File
}

// ReadAt fills p from off, looping over short completions. It returns
// io.EOF when the file ends before p is full.
func (rf *RingFile) ReadAt(p []byte, off int64) (int, error) {
	var total int
	for total < len(p) {
		n, err := rf.submit(ioringOpRead, p[total:], off+int64(total))
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.EOF
		}
		total += n
	}
	return total, nil
}

// WriteAt writes all of p at off, looping over short completions.
func (rf *RingFile) WriteAt(p []byte, off int64) (int, error) {
	var total int
	for total < len(p) {
		n, err := rf.submit(ioringOpWrite, p[total:], off+int64(total))
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
		total += n
	}
	return total, nil
}

//nolint:gosec // G115: fd values are small non-negative integers
func (rf *RingFile) submit(op uint8, buf []byte, off int64) (int, error) {
	if rf.ring == nil || rf.ring.r == nil {
		return 0, os.ErrClosed
	}
	for {
		n, err := rf.ring.r.submitAndWait(op, int32(rf.f.Fd()), buf, uint64(off))
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		return n, err
	}
}

// setupRing creates and maps an io_uring instance.
func setupRing(entries uint32) (*ring, error) {
	var params ioUringParams
	fd, _, errno := syscall.Syscall(
		unix.SYS_IO_URING_SETUP,
		uintptr(entries),
		uintptr(unsafe.Pointer(&params)),
		0,
	)
	if errno != 0 {
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}

	r := &ring{fd: int(fd)}
	if err := r.mmap(&params); err != nil {
		_ = syscall.Close(r.fd)
		return nil, err
	}
	return r, nil
}

func (r *ring) mmap(params *ioUringParams) error {
	sqRingSize := uintptr(params.sqOff.array) + uintptr(params.sqEntries)*4
	sqMem, err := syscall.Mmap(r.fd, 0, int(sqRingSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		return fmt.Errorf("mmap sq ring: %w", err)
	}
	r.sqRingMem = sqMem

	base := unsafe.Pointer(&sqMem[0])
	r.sqHead = (*uint32)(unsafe.Add(base, params.sqOff.head))
	r.sqTail = (*uint32)(unsafe.Add(base, params.sqOff.tail))
	r.sqMask = (*uint32)(unsafe.Add(base, params.sqOff.ringMask))
	r.sqArray = unsafe.Add(base, params.sqOff.array)

	sqesMem, err := syscall.Mmap(r.fd, 0x10000000, int(uintptr(params.sqEntries)*sqeSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		_ = syscall.Munmap(r.sqRingMem)
		return fmt.Errorf("mmap sqes: %w", err)
	}
	r.sqesMem = sqesMem
	r.sqes = unsafe.Pointer(&sqesMem[0])

	cqRingSize := uintptr(params.cqOff.cqes) + uintptr(params.cqEntries)*cqeSize
	cqMem, err := syscall.Mmap(r.fd, 0x8000000, int(cqRingSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		_ = syscall.Munmap(r.sqesMem)
		_ = syscall.Munmap(r.sqRingMem)
		return fmt.Errorf("mmap cq ring: %w", err)
	}
	r.cqRingMem = cqMem

	cqBase := unsafe.Pointer(&cqMem[0])
	r.cqHead = (*uint32)(unsafe.Add(cqBase, params.cqOff.head))
	r.cqTail = (*uint32)(unsafe.Add(cqBase, params.cqOff.tail))
	r.cqMask = (*uint32)(unsafe.Add(cqBase, params.cqOff.ringMask))
	r.cqes = unsafe.Add(cqBase, params.cqOff.cqes)

	return nil
}

func (r *ring) close() error {
	var firstErr error
	for _, mem := range [][]byte{r.cqRingMem, r.sqesMem, r.sqRingMem} {
		if mem == nil {
			continue
		}
		if err := syscall.Munmap(mem); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := syscall.Close(r.fd); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// submitAndWait submits a single SQE and waits for its CQE.
func (r *ring) submitAndWait(op uint8, fd int32, buf []byte, offset uint64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	tail := *r.sqTail
	idx := tail & *r.sqMask

	sqe := (*ioUringSQE)(unsafe.Add(r.sqes, uintptr(idx)*sqeSize))
	*sqe = ioUringSQE{}
	sqe.opcode = op
	sqe.fd = fd
	sqe.off = offset
	sqe.addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	sqe.len = uint32(len(buf)) //nolint:gosec // G115: block sizes fit in uint32
	sqe.userData = uint64(tail)

	sqArr := (*uint32)(unsafe.Add(r.sqArray, uintptr(idx)*4))
	*sqArr = idx

	*r.sqTail = tail + 1

	_, _, errno := syscall.Syscall6(
		unix.SYS_IO_URING_ENTER,
		uintptr(r.fd),
		1, // to_submit
		1, // min_complete
		uintptr(ioringEnterGetevents),
		0, 0,
	)
	if errno != 0 {
		return 0, fmt.Errorf("io_uring_enter: %w", errno)
	}

	cqHead := *r.cqHead
	cqIdx := cqHead & *r.cqMask
	cqe := (*ioUringCQE)(unsafe.Add(r.cqes, uintptr(cqIdx)*cqeSize))

	res := cqe.res
	*r.cqHead = cqHead + 1

	if res < 0 {
		return 0, syscall.Errno(-res)
	}
	return int(res), nil
}

// kernelSupportsIOURing checks if the kernel version is >= 5.6.
func kernelSupportsIOURing() bool {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return false
	}

	release := unix.ByteSliceToString(uname.Release[:])
	parts := strings.SplitN(release, ".", 3)
	if len(parts) < 2 {
		return false
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}

	minorStr := parts[1]
	if idx := strings.IndexFunc(minorStr, func(r rune) bool { return r < '0' || r > '9' }); idx > 0 {
		minorStr = minorStr[:idx]
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return false
	}

	return major > 5 || (major == 5 && minor >= 6)
}

// KernelSupportsIOURing is exported for the CLI's capability check.
func KernelSupportsIOURing() bool {
	return kernelSupportsIOURing()
}
