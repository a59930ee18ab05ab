package engine

// Block is one unit of transfer. Sequence numbers start at 0 and have no
// gaps. A block belongs to exactly one stage at a time and is never
// modified after it has been handed downstream.
type Block struct {
	Seq     int64
	Data    []byte
	Last    bool
	Padded  int  // zero bytes appended by conv=sync
	Faulted bool // substituted for an unreadable block
}

// partial reports a block shorter than the block size.
func (b Block) partial(bs int) bool { return len(b.Data)-b.Padded < bs }

// allZero reports whether every byte of p is zero.
func allZero(p []byte) bool {
	for len(p) >= 8 {
		if p[0]|p[1]|p[2]|p[3]|p[4]|p[5]|p[6]|p[7] != 0 {
			return false
		}
		p = p[8:]
	}
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
