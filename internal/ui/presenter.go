package ui

import (
	"io"

	"github.com/bamsammich/rdd/internal/engine"
	"github.com/bamsammich/rdd/internal/stats"
)

// Presenter consumes engine events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary renders the final report for res.
	Summary(res engine.Result) string
}

// Config configures a Presenter. All output goes to ErrWriter: stdout may
// be the destination of the copy.
type Config struct {
	ErrWriter  io.Writer
	Stats      stats.ReadTicker
	Width      int // terminal columns, 0 when unknown
	IsTTY      bool
	Quiet      bool
	NoProgress bool
	NoXfer     bool // omit the transfer line from the summary
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		return &plainPresenter{
			w:        cfg.ErrWriter,
			progress: !cfg.NoProgress,
			noXfer:   cfg.NoXfer,
			interval: plainInterval,
		}
	}
	return &hudPresenter{
		w:      cfg.ErrWriter,
		stats:  cfg.Stats,
		width:  cfg.Width,
		noXfer: cfg.NoXfer,
	}
}
