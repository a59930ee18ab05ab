package engine

import "context"

// pipeline is a bounded, ordered queue between the reader and the writer.
// The reader reserves a slot before it reads a block and the writer gives
// it back with Done once the block is persisted, so blocks read but not yet
// written never exceed the depth.
type pipeline struct {
	blocks chan Block
	slots  chan struct{}
}

func newPipeline(depth int) *pipeline {
	return &pipeline{
		blocks: make(chan Block, depth),
		slots:  make(chan struct{}, depth),
	}
}

// Reserve blocks until a slot is free or ctx is done.
func (p *pipeline) Reserve(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push queues b against a slot already taken with Reserve. It never blocks.
func (p *pipeline) Push(b Block) { p.blocks <- b }

// Recv returns the next block. ok is false once the sender has closed the
// pipeline and every queued block has been received. A done ctx wins over
// queued blocks.
func (p *pipeline) Recv(ctx context.Context) (b Block, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return Block{}, false, err
	}
	select {
	case b, ok = <-p.blocks:
		return b, ok, nil
	case <-ctx.Done():
		return Block{}, false, ctx.Err()
	}
}

// Done releases one slot: the writer calls it when a received block is
// finished, the reader when a reserved slot goes unused.
func (p *pipeline) Done() { <-p.slots }

// Close is called by the sender when no more blocks will be sent.
func (p *pipeline) Close() { close(p.blocks) }

// InFlight returns the number of slots reserved and not yet Done.
func (p *pipeline) InFlight() int { return len(p.slots) }
