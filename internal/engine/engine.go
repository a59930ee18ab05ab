package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/rdd/internal/event"
	"github.com/bamsammich/rdd/internal/platform"
	"github.com/bamsammich/rdd/internal/stats"
)

const ringDepth = 64

// Run executes job, blocking until it reaches a terminal state. The
// returned Result always carries a terminal Status.
func Run(ctx context.Context, job Job) Result {
	start := time.Now()
	res := Result{JobID: uuid.NewString()}
	if err := job.normalize(); err != nil {
		res.Status = StateFailed
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}

	o := &orchestrator{
		job:      job,
		log:      job.Logger.With("job", res.JobID),
		stats:    job.Stats,
		start:    start,
		lastTick: start,
	}
	return o.run(ctx, res)
}

type orchestrator struct {
	job   Job
	log   *slog.Logger
	stats *stats.Collector
	state atomic.Int32
	start time.Time

	// Touched only by the orchestrator goroutine.
	lastBytes int64
	lastTick  time.Time
}

// plan is everything resolved while Initializing.
type plan struct {
	pool      *bufferPool
	pipe      *pipeline
	reader    *reader
	writer    *writer
	hasher    *hasher
	dstReader io.ReaderAt
	dstBase   int64
	dstFile   *os.File
	srcMethod platform.IOMethod
	dstMethod platform.IOMethod
	closers   []func() error
}

func (p *plan) close() {
	for _, c := range p.closers {
		c() //nolint:errcheck // teardown
	}
}

func (o *orchestrator) State() State { return State(o.state.Load()) }

func (o *orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.log.Debug("state", "state", s.String())
}

func (o *orchestrator) run(ctx context.Context, res Result) Result {
	o.setState(StateInitializing)
	p, err := o.plan()
	defer p.close()
	if err != nil {
		return o.finish(res, StateFailed, err)
	}

	o.setState(StateCopying)
	snap := o.stats.Snapshot()
	emitEvent(o.job.Events, event.Event{Type: event.CopyStarted, Total: snap.BytesTotal})
	o.log.Info("copy started",
		"bs", o.job.BlockSize,
		"skip", o.job.Skip,
		"seek", o.job.Seek,
		"count", o.job.Count,
		"conv", o.job.Conv.String(),
		"hash", o.job.Hash.String(),
		"queue", o.job.QueueDepth,
		"source_io", p.srcMethod.String(),
		"destination_io", p.dstMethod.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.reader.run(gctx) })
	g.Go(func() error { return p.writer.run(gctx) })
	if p.hasher != nil {
		g.Go(func() error { return p.hasher.run(gctx) })
	}
	err = o.wait(g)
	res.Errors = p.reader.errs

	if err != nil {
		if ctx.Err() != nil {
			o.log.Debug("copy interrupted", "cause", err)
			return o.finish(res, StateCancelled, ErrCancelled)
		}
		return o.finish(res, StateFailed, err)
	}

	if p.hasher != nil {
		if o.stats.Snapshot().BlocksRead == 0 {
			p.hasher.acc.End()
		}
		if res.Digests, err = p.hasher.acc.Finalize(); err != nil {
			return o.finish(res, StateFailed, err)
		}
	}

	if o.job.Verify {
		if err := o.verify(ctx, p, &res); err != nil {
			if ctx.Err() != nil {
				return o.finish(res, StateCancelled, ErrCancelled)
			}
			return o.finish(res, StateFailed, err)
		}
	}

	if len(res.Errors) > 0 {
		return o.finish(res, StateCompletedWithErrors, nil)
	}
	return o.finish(res, StateCompleted, nil)
}

// wait reports progress every interval until the workers are done.
func (o *orchestrator) wait(g *errgroup.Group) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	ticker := time.NewTicker(o.job.ProgressInterval)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ticker.C:
			o.report()
		}
	}
}

func (o *orchestrator) report() {
	snap := o.stats.Snapshot()
	now := time.Now()
	var throughput float64
	if dt := now.Sub(o.lastTick).Seconds(); dt > 0 {
		throughput = float64(snap.BytesWritten-o.lastBytes) / dt
	}
	o.lastBytes, o.lastTick = snap.BytesWritten, now

	if o.job.Progress != nil {
		o.job.Progress(ProgressSnapshot{
			State:         o.State(),
			BytesCopied:   snap.BytesWritten,
			BytesTotal:    snap.BytesTotal,
			Elapsed:       snap.Elapsed,
			Throughput:    throughput,
			BlocksRead:    snap.BlocksRead,
			BlocksWritten: snap.BlocksWritten,
			Errors:        snap.ReadErrors,
		})
	}
	emitEvent(o.job.Events, event.Event{
		Type:  event.Progress,
		Bytes: snap.BytesWritten,
		Total: snap.BytesTotal,
	})
}

func (o *orchestrator) verify(ctx context.Context, p *plan, res *Result) error {
	o.setState(StateVerifying)
	emitEvent(o.job.Events, event.Event{Type: event.VerifyStarted})
	if p.dstFile != nil {
		if err := platform.DropCache(p.dstFile); err != nil {
			o.log.Debug("could not drop destination cache", "error", err)
		}
	}

	v := &verifier{
		src: &positionalSource{
			r:     p.dstReader,
			base:  p.dstBase,
			bs:    int64(o.job.BlockSize),
			retry: o.retrier(),
		},
		length:       o.stats.BytesWritten(),
		bs:           o.job.BlockSize,
		algos:        o.job.Hash,
		pool:         p.pool,
		fingerprints: p.hasher.fingerprints,
		stats:        o.stats,
	}
	vr, err := v.run(ctx)
	if err != nil {
		return err
	}
	res.VerifiedDigests = vr.digests

	if err := compareDigests(res.Digests, vr.digests, vr.firstBad); err != nil {
		emitEvent(o.job.Events, event.Event{
			Type:   event.VerifyFailed,
			Seq:    vr.firstBad,
			Offset: p.dstBase + max(vr.firstBad, 0)*int64(o.job.BlockSize),
			Error:  err,
		})
		return err
	}
	emitEvent(o.job.Events, event.Event{Type: event.VerifyOK, Message: vr.digests.String()})
	o.log.Info("destination verified", "digests", vr.digests.String())
	return nil
}

func (o *orchestrator) finish(res Result, state State, err error) Result {
	o.setState(state)
	snap := o.stats.Snapshot()
	res.Status = state
	res.Err = err
	res.BytesCopied = snap.BytesWritten
	res.Elapsed = time.Since(o.start)
	res.Stats = snap
	res.PaddedBytes = snap.BytesPadded
	res.RecordsIn = Records{Full: snap.BlocksRead - snap.PartialIn, Partial: snap.PartialIn}
	res.RecordsOut = Records{Full: snap.BlocksWritten - snap.PartialOut, Partial: snap.PartialOut}

	o.report()
	emitEvent(o.job.Events, event.Event{
		Type:    event.CopyFinished,
		Bytes:   snap.BytesWritten,
		Total:   snap.BytesTotal,
		Message: state.String(),
		Error:   err,
	})

	attrs := []any{
		"state", state.String(),
		"bytes", snap.BytesWritten,
		"elapsed", res.Elapsed.Round(time.Millisecond),
		"read_errors", len(res.Errors),
	}
	if err != nil {
		o.log.Error("copy finished", append(attrs, "error", err)...)
	} else {
		o.log.Info("copy finished", attrs...)
	}
	return res
}

func (o *orchestrator) retrier() retrier {
	return retrier{
		budget: o.job.Retries,
		onRetry: func(err error) {
			o.stats.AddRetry()
			o.log.Debug("retrying transient I/O error", "error", err)
			emitEvent(o.job.Events, event.Event{Type: event.Retry, Error: err})
		},
	}
}

// plan resolves the job against its handles: direct I/O, offsets, sizes,
// backends and buffers. It never returns a nil plan.
func (o *orchestrator) plan() (*plan, error) {
	j := &o.job
	bs := int64(j.BlockSize)
	p := &plan{srcMethod: platform.Stream, dstMethod: platform.Stream}

	srcFile, _ := j.Source.(*os.File)
	dstFile, _ := j.Destination.(*os.File)
	p.dstFile = dstFile

	align, srcDirect, dstDirect := 0, false, false
	if j.Direct {
		var err error
		if srcDirect, err = o.enableDirect(srcFile, &align); err != nil {
			return p, err
		}
		if dstDirect, err = o.enableDirect(dstFile, &align); err != nil {
			return p, err
		}
		if align == 0 {
			o.log.Warn("direct I/O requested but neither end is a file or block device")
		} else if j.BlockSize%align != 0 {
			return p, &AlignmentError{BlockSize: j.BlockSize, Alignment: align}
		}
	}

	r := &reader{
		bs:     j.BlockSize,
		count:  j.Count,
		conv:   j.Conv,
		size:   -1,
		stats:  o.stats,
		events: j.Events,
		log:    o.log,
	}
	if rs, ok := j.Source.(io.ReadSeeker); ok && platform.Seekable(rs) {
		ra, ok := j.Source.(io.ReaderAt)
		if !ok {
			return p, fmt.Errorf("%w: seekable source does not support positional reads", ErrInvalidJob)
		}
		cur, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return p, &IOError{Op: "skip", Seq: -1, Err: err}
		}
		r.base = cur + j.Skip*bs
		if end, ok := sourceSize(srcFile, rs); ok {
			r.size = max(end-r.base, 0)
			if j.Conv.Has(ConvSparse) && srcFile != nil && platform.IsRegular(srcFile) {
				hm, err := mapHoles(srcFile, end)
				if err != nil {
					o.log.Debug("hole detection failed", "error", err)
				}
				r.holes = hm
			}
		}
		p.srcMethod = platform.ReadWrite
		if srcFile != nil && j.UseIOURing {
			if rf := o.bindRing(p, srcFile); rf != nil {
				ra = rf
				p.srcMethod = platform.IOURing
			}
		}
		r.src = &positionalSource{r: ra, base: r.base, bs: bs, retry: o.retrier()}
	} else {
		if j.Skip > 0 {
			return p, &IOError{Op: "skip", Seq: -1, Err: errors.New("source is not seekable")}
		}
		r.src = &streamSource{r: j.Source, retry: o.retrier()}
	}

	expected := int64(-1)
	if r.size >= 0 {
		expected = r.size
		if j.Count > 0 {
			expected = min(expected, j.Count*bs)
		}
		if j.Conv.Has(ConvSync) && expected%bs != 0 {
			expected += bs - expected%bs
		}
		o.stats.SetTotal(expected)
	}

	w := &writer{
		file:     dstFile,
		expected: expected,
		bs:       j.BlockSize,
		conv:     j.Conv,
		direct:   dstDirect,
		align:    align,
		stats:    o.stats,
		log:      o.log,
	}
	var sk sink
	if ws, ok := j.Destination.(io.WriteSeeker); ok && platform.Seekable(ws) {
		wa, ok := j.Destination.(io.WriterAt)
		if !ok {
			return p, fmt.Errorf("%w: seekable destination does not support positional writes", ErrInvalidJob)
		}
		cur, err := ws.Seek(0, io.SeekCurrent)
		if err != nil {
			return p, &IOError{Op: "seek", Seq: -1, Err: err}
		}
		w.base = cur + j.Seek*bs
		w.truncate = dstFile != nil && platform.IsRegular(dstFile) && !j.Conv.Has(ConvNoTrunc)
		p.dstBase = w.base
		p.dstReader, _ = j.Destination.(io.ReaderAt)
		p.dstMethod = platform.ReadWrite
		if dstFile != nil && j.UseIOURing {
			if rf := o.bindRing(p, dstFile); rf != nil {
				wa = rf
				p.dstMethod = platform.IOURing
			}
		}
		sk = &positionalSink{w: wa, base: w.base, bs: bs, retry: o.retrier()}
	} else {
		if j.Seek > 0 {
			return p, &IOError{Op: "seek", Seq: -1, Err: errors.New("destination is not seekable")}
		}
		sk = &streamSink{w: j.Destination, retry: o.retrier()}
	}
	if j.BWLimit > 0 {
		sk = &limitedSink{next: sk, limiter: NewBWLimiter(j.BWLimit)}
	}
	w.sink = sk

	if j.Verify && p.dstReader == nil {
		return p, fmt.Errorf("%w: verify needs a seekable, readable destination", ErrInvalidJob)
	}

	// Slots cover every buffer from read to written; the writer holds one
	// more while handing it on, and hashing adds its queue of K and the
	// block being hashed.
	capacity := j.QueueDepth + 1
	if j.Hash != HashNone {
		capacity = 2*j.QueueDepth + 2
	}
	if !srcDirect && !dstDirect {
		align = 0
	}
	p.pool = newBufferPool(j.BlockSize, align, capacity)
	p.pipe = newPipeline(j.QueueDepth)

	r.pool, r.pipe = p.pool, p.pipe
	w.pool, w.pipe = p.pool, p.pipe
	if j.Hash != HashNone {
		hashQ := make(chan Block, j.QueueDepth)
		w.hashQ = hashQ
		p.hasher = &hasher{
			in:     hashQ,
			acc:    NewAccumulator(j.Hash),
			pool:   p.pool,
			record: j.Verify,
		}
	}
	p.reader, p.writer = r, w
	return p, nil
}

// enableDirect turns on direct I/O for f when it is a regular file or a
// block device, raising *align to its requirement.
func (o *orchestrator) enableDirect(f *os.File, align *int) (bool, error) {
	if f == nil {
		return false, nil
	}
	info, err := f.Stat()
	if err != nil {
		return false, &IOError{Op: "stat", Seq: -1, Err: err}
	}
	mode := info.Mode()
	blockDev := mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0
	if !mode.IsRegular() && !blockDev {
		o.log.Debug("direct I/O skipped", "file", f.Name(), "mode", mode.String())
		return false, nil
	}
	if err := platform.EnableDirectIO(f); err != nil {
		return false, &IOError{Op: "direct", Seq: -1, Err: fmt.Errorf("%s: %w", f.Name(), err)}
	}
	*align = max(*align, platform.DirectIOAlignment(f))
	return true, nil
}

// bindRing returns an io_uring backed handle for f, or nil when the kernel
// cannot provide one.
func (o *orchestrator) bindRing(p *plan, f *os.File) *platform.RingFile {
	rg, err := platform.NewRing(ringDepth)
	if err != nil {
		o.log.Warn("io_uring setup failed, using pread/pwrite", "error", err)
		return nil
	}
	if rg == nil {
		o.log.Debug("io_uring not supported by this kernel")
		return nil
	}
	p.closers = append(p.closers, rg.Close)
	return rg.Bind(f)
}

// sourceSize returns the total byte length of the source when it can be
// known. Character devices such as /dev/zero seek fine but report 0.
func sourceSize(f *os.File, s io.Seeker) (int64, bool) {
	if f == nil {
		return platform.Size(s)
	}
	info, err := f.Stat()
	if err != nil {
		return 0, false
	}
	mode := info.Mode()
	switch {
	case mode.IsRegular():
		return info.Size(), true
	case mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0:
		return platform.Size(s)
	default:
		return 0, false
	}
}
