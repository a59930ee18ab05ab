package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/rdd/internal/config"
	"github.com/bamsammich/rdd/internal/engine"
	"github.com/bamsammich/rdd/internal/event"
	"github.com/bamsammich/rdd/internal/platform"
	"github.com/bamsammich/rdd/internal/stats"
	"github.com/bamsammich/rdd/internal/ui"
)

const stdio = "-"

type copyOptions struct {
	input, output    string
	blockSize        string
	skip, seek       string
	count            string
	conv             string
	hash             string
	direct           bool
	verify           bool
	queue            int
	retries          int
	bwLimit          string
	progressInterval time.Duration
	useIOURing       bool
	progress         bool
	noProgress       bool
	noXfer           bool
	quiet            bool
	verbose          bool
	logFile          string
	metricsFile      string
}

func newCopyCmd() *cobra.Command {
	o := &copyOptions{}

	cmd := &cobra.Command{
		Use:   "copy [flags] [key=value]...",
		Short: "Copy blocks from one file or device to another",
		Long: `Copy --count blocks of --bs bytes from --if to --of, skipping --skip blocks
of input and --seek blocks of output. dd-style operands (if=, of=, bs=,
count=, skip=, seek=, conv=, iflag=direct, oflag=direct, status=) are
accepted as arguments.

Exit status: 0 success, 1 failure, 2 usage error, 3 finished with
unreadable blocks replaced by zeroes (conv=noerror), 4 verification
mismatch, 130 interrupted.`,
		Example: `  rdd copy --if disk.img --of /dev/sdb --bs 4M --direct --verify
  rdd copy if=/dev/sda of=backup.img bs=1M conv=noerror,sync --hash both
  cat image.iso | rdd copy --of /dev/sdc --bs 1M --conv fsync`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cmd, args, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.input, "if", stdio, "read from FILE instead of stdin")
	f.StringVar(&o.output, "of", stdio, "write to FILE instead of stdout")
	f.StringVar(&o.blockSize, "bs", "512", "block size for both reads and writes (e.g. 4K, 1M); ibs= and obs= operands must agree")
	f.StringVar(&o.skip, "skip", "0", "skip N input blocks")
	f.StringVar(&o.seek, "seek", "0", "skip N output blocks")
	f.StringVar(&o.count, "count", "0", "copy only N input blocks (0 copies everything)")
	f.StringVar(&o.conv, "conv", "", "conversions: sync,noerror,notrunc,fsync,fdatasync,sparse")
	f.StringVar(&o.hash, "hash", "none", "digest the copied stream: blake3, sha256, both or none")
	f.BoolVar(&o.direct, "direct", false, "bypass the page cache (O_DIRECT)")
	f.BoolVar(&o.verify, "verify", false, "re-read the destination and compare digests (implies --hash blake3)")
	f.IntVar(&o.queue, "queue", engine.DefaultQueueDepth, "blocks in flight between reader and writer")
	f.IntVar(&o.queue, "threads", engine.DefaultQueueDepth, "alias for --queue")
	f.IntVar(&o.retries, "retries", engine.DefaultRetries, "retries for interrupted I/O per block (-1 disables)")
	f.StringVar(&o.bwLimit, "bwlimit", "", "bandwidth limit in bytes/sec (e.g. 100M)")
	f.DurationVar(&o.progressInterval, "progress-interval", engine.DefaultProgressInterval, "how often progress is reported")
	f.BoolVar(&o.useIOURing, "iouring", false, "use io_uring for file I/O (Linux only)")
	f.BoolVar(&o.progress, "progress", false, "print progress lines even when stderr is not a terminal")
	f.BoolVar(&o.noProgress, "no-progress", false, "disable progress display")
	f.BoolVar(&o.noXfer, "noxfer", false, "leave the transfer statistics line out of the summary")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "suppress all output except errors")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	f.StringVar(&o.logFile, "log", "", "write structured JSON log to FILE")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to FILE when done")

	if err := f.MarkHidden("threads"); err != nil {
		panic(fmt.Sprintf("hide flag: %v", err))
	}
	return cmd
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: CLI entry point wires every flag
func runCopy(cmd *cobra.Command, args []string, o *copyOptions) error {
	if err := applyOperands(cmd.Flags(), args); err != nil {
		return err
	}

	// Load optional config file.
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	applyConfigDefaults(cmd, cfg.Defaults, o)
	ui.ApplyTheme(cfg.Theme)

	job, err := o.job()
	if err != nil {
		return err
	}

	isTTY := ui.IsTTY(os.Stderr)
	noProgress := o.noProgress || (!isTTY && !o.progress)
	useHUD := isTTY && !noProgress && !o.quiet

	closeLog, err := setupLogging(logLevel(o.verbose, o.quiet, useHUD), o.logFile)
	defer closeLog()
	if err != nil {
		return err
	}

	if o.useIOURing && !platform.KernelSupportsIOURing() {
		slog.Warn("io_uring not available, using pread/pwrite")
	}

	src, err := openInput(o.input)
	if err != nil {
		return failed(err)
	}
	defer src.Close()
	dst, err := openOutput(o.output, job.Verify)
	if err != nil {
		return failed(err)
	}
	defer dst.Close()
	job.Source, job.Destination = src, dst

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	job.Stats = collector
	job.Logger = slog.Default()

	events := make(chan event.Event, 256)
	job.Events = events

	// When --log is set, tee events through a logging goroutine
	// that writes structured records before forwarding to the presenter.
	presenterEvents := (<-chan event.Event)(events)
	if o.logFile != "" {
		presenterEvents = teeEvents(events)
	}

	presenter := ui.NewPresenter(ui.Config{
		ErrWriter:  os.Stderr,
		Stats:      collector,
		Width:      ui.TermWidth(os.Stderr),
		IsTTY:      isTTY,
		Quiet:      o.quiet,
		NoProgress: noProgress,
		NoXfer:     o.noXfer,
	})

	slog.Debug("starting copy",
		"if", o.input,
		"of", o.output,
		"bs", job.BlockSize,
		"conv", job.Conv.String(),
		"hash", job.Hash.String(),
		"direct", job.Direct,
		"iouring", job.UseIOURing,
	)

	var presenterErr error
	var presenterWg sync.WaitGroup
	presenterWg.Add(1)
	go func() {
		defer presenterWg.Done()
		presenterErr = presenter.Run(presenterEvents)
	}()

	res := engine.Run(ctx, job)
	stop()
	close(events)
	presenterWg.Wait()
	if presenterErr != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
	}

	if o.metricsFile != "" {
		if err := stats.WriteTextfile(o.metricsFile, collector); err != nil {
			slog.Warn("failed to write metrics file", "path", o.metricsFile, "error", err)
		}
	}

	if !o.quiet {
		if summary := presenter.Summary(res); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}

	code := exitCodeFor(res)
	if res.Err != nil && code != exitCancelled {
		slog.Error("copy failed", "job", res.JobID, "error", res.Err)
	}
	if code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

// job resolves the string flags into an engine.Job without handles.
func (o *copyOptions) job() (engine.Job, error) {
	bs, err := config.ParseSize(o.blockSize)
	if err != nil {
		return engine.Job{}, fmt.Errorf("invalid --bs: %w", err)
	}
	if bs <= 0 || bs > maxBlockSize {
		return engine.Job{}, fmt.Errorf("invalid --bs: must be between 1 and %s", stats.FormatBytes(maxBlockSize))
	}
	skip, err := parseBlocks("skip", o.skip)
	if err != nil {
		return engine.Job{}, err
	}
	seek, err := parseBlocks("seek", o.seek)
	if err != nil {
		return engine.Job{}, err
	}
	count, err := parseBlocks("count", o.count)
	if err != nil {
		return engine.Job{}, err
	}
	conv, err := engine.ParseConv(o.conv)
	if err != nil {
		return engine.Job{}, fmt.Errorf("invalid --conv: %w", err)
	}
	algos, err := engine.ParseHashAlgo(o.hash)
	if err != nil {
		return engine.Job{}, fmt.Errorf("invalid --hash: %w", err)
	}
	if o.queue < engine.MinQueueDepth {
		return engine.Job{}, fmt.Errorf("invalid --queue: must be at least %d, got %d", engine.MinQueueDepth, o.queue)
	}

	var bwLimit int64
	if o.bwLimit != "" {
		if bwLimit, err = config.ParseSize(o.bwLimit); err != nil {
			return engine.Job{}, fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}

	retries := o.retries
	if retries == 0 {
		retries = -1 // zero on the command line means no retries
	}

	return engine.Job{
		BlockSize:        int(bs),
		Skip:             skip,
		Seek:             seek,
		Count:            count,
		Direct:           o.direct,
		Conv:             conv,
		Hash:             algos,
		Verify:           o.verify,
		QueueDepth:       o.queue,
		Retries:          retries,
		BWLimit:          bwLimit,
		ProgressInterval: o.progressInterval,
		UseIOURing:       o.useIOURing,
	}, nil
}

const maxBlockSize = 1 << 30

func parseBlocks(name, s string) (int64, error) {
	n, err := config.ParseCount(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", name, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid --%s: must not be negative", name)
	}
	return n, nil
}

func openInput(path string) (*os.File, error) {
	if path == stdio {
		return os.Stdin, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// openOutput never truncates: the engine decides what to cut once it knows
// seek and notrunc. Verification needs the destination readable.
func openOutput(path string, verify bool) (*os.File, error) {
	if path == stdio {
		return os.Stdout, nil
	}
	flags := os.O_WRONLY | os.O_CREATE
	if verify {
		flags = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return f, nil
}

// teeEvents logs every event at Info before forwarding it. The returned
// channel closes when events does.
func teeEvents(events <-chan event.Event) <-chan event.Event {
	teed := make(chan event.Event, cap(events))
	go func() {
		defer close(teed)
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.Int64("seq", ev.Seq),
				slog.Int64("offset", ev.Offset),
				slog.Int64("bytes", ev.Bytes),
			}
			if ev.Message != "" {
				attrs = append(attrs, slog.String("message", ev.Message))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelInfo, "rdd.event", attrs...)
			teed <- ev
		}
	}()
	return teed
}

// failed logs err and maps it to the generic failure status.
func failed(err error) error {
	slog.Error("copy failed", "error", err)
	return &exitError{code: exitFailed}
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
//
//nolint:gocyclo // one branch per config key
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, o *copyOptions) {
	changed := cmd.Flags().Changed
	if !changed("bs") && defaults.BlockSize != nil {
		o.blockSize = *defaults.BlockSize
	}
	if !changed("hash") && defaults.Hash != nil {
		o.hash = *defaults.Hash
	}
	if !changed("conv") && defaults.Conv != nil {
		o.conv = *defaults.Conv
	}
	if !changed("direct") && defaults.Direct != nil {
		o.direct = *defaults.Direct
	}
	if !changed("verify") && defaults.Verify != nil {
		o.verify = *defaults.Verify
	}
	if !changed("queue") && !changed("threads") && defaults.Queue != nil {
		o.queue = *defaults.Queue
	}
	if !changed("retries") && defaults.Retries != nil {
		o.retries = *defaults.Retries
	}
	if !changed("bwlimit") && defaults.BWLimit != nil {
		o.bwLimit = *defaults.BWLimit
	}
	if !changed("progress-interval") && defaults.ProgressInterval != nil {
		d, err := time.ParseDuration(*defaults.ProgressInterval)
		if err != nil {
			slog.Warn("ignoring config progress_interval", "value", *defaults.ProgressInterval, "error", err)
		} else {
			o.progressInterval = d
		}
	}
	if !changed("iouring") && defaults.IOURing != nil {
		o.useIOURing = *defaults.IOURing
	}
}
