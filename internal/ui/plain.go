package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/rdd/internal/engine"
)

const plainInterval = 5 * time.Second

// plainPresenter writes periodic progress lines and warnings to stderr when
// it is not a terminal (or the HUD was turned off).
type plainPresenter struct {
	w        io.Writer
	progress bool
	noXfer   bool
	interval time.Duration

	last      Event // latest Progress event
	fresh     bool  // last has not been printed yet
	printedAt time.Time
	printedN  int64
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case CopyStarted:
		p.printedAt = ev.Timestamp
	case Progress:
		p.last = ev
		p.fresh = true
	case ReadError:
		fmt.Fprintf(p.w, "warning: %v\n", ev.Error)
	case VerifyStarted:
		fmt.Fprintln(p.w, "verifying...")
	case VerifyFailed:
		fmt.Fprintf(p.w, "MISMATCH: %v\n", ev.Error)
	case VerifyOK, Retry, CopyFinished:
		// silent in plain mode
	}
}

func (p *plainPresenter) printProgress() {
	if !p.progress || !p.fresh {
		return
	}
	p.fresh = false
	ev := p.last

	var rate float64
	if !p.printedAt.IsZero() {
		if dt := ev.Timestamp.Sub(p.printedAt).Seconds(); dt > 0 {
			rate = float64(ev.Bytes-p.printedN) / dt
		}
	}
	p.printedAt, p.printedN = ev.Timestamp, ev.Bytes

	if ev.Total > 0 {
		pct := float64(ev.Bytes) / float64(ev.Total) * 100
		var eta time.Duration
		if rate > 0 && ev.Total > ev.Bytes {
			eta = time.Duration(float64(ev.Total-ev.Bytes) / rate * float64(time.Second))
		}
		fmt.Fprintf(p.w, "progress: %.0f%% %s/%s %s eta %s\n",
			pct,
			FormatBytes(ev.Bytes), FormatBytes(ev.Total),
			FormatRate(rate),
			FormatETA(eta),
		)
		return
	}
	fmt.Fprintf(p.w, "progress: %s copied %s\n", FormatBytes(ev.Bytes), FormatRate(rate))
}

func (p *plainPresenter) Summary(res engine.Result) string {
	return summarize(res, p.noXfer)
}
