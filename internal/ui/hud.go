package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/rdd/internal/engine"
	"github.com/bamsammich/rdd/internal/stats"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
)

// hudPresenter draws a 2-line HUD on the terminal that redraws in place.
// Warnings scroll above it.
type hudPresenter struct {
	w      io.Writer
	stats  stats.ReadTicker
	width  int
	noXfer bool

	hudDrawn    bool
	lastHUDDraw time.Time
	verifying   bool
}

const (
	hudLines       = 2
	sparklineWidth = 20
	minBarWidth    = 10
	maxBarWidth    = 40
	hudMinInterval = 50 * time.Millisecond // don't redraw faster than this
)

func (p *hudPresenter) Run(events <-chan Event) error {
	// Fire first tick quickly to seed the ring buffer with initial speed data,
	// then switch to 1s interval.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	redrawTicker := time.NewTicker(100 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			p.maybeDrawHUD()

		case <-redrawTicker.C:
			p.drawHUD()

		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(1 * time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case ReadError:
		p.println("✗  %s", styleWarn.Render(fmt.Sprint(ev.Error)))
	case Retry:
		p.println("%s↻  retrying: %v%s", ansiDim, ev.Error, ansiReset)
	case VerifyStarted:
		p.verifying = true
		p.println("%sverifying destination...%s", ansiDim, ansiReset)
	case VerifyOK:
		p.verifying = false
		p.println("✓  %s", styleOK.Render("verified"))
	case VerifyFailed:
		p.verifying = false
		p.println("✗  %s  %v", styleFailed.Render("CHECKSUM MISMATCH"), ev.Error)
	case CopyStarted, Progress, CopyFinished:
		// counters come from the collector
	}
}

// println prints a scrolling line above the HUD.
func (p *hudPresenter) println(format string, args ...any) {
	p.clearHUD()
	fmt.Fprintf(p.w, format+"\n", args...)
	p.drawHUD()
}

func (p *hudPresenter) maybeDrawHUD() {
	if time.Since(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

func (p *hudPresenter) barWidth() int {
	if p.width <= 0 {
		return 20
	}
	return max(minBarWidth, min(maxBarWidth, p.width-50))
}

func (p *hudPresenter) drawHUD() {
	snap := p.stats.Snapshot()
	p.clearHUD()

	done := snap.BytesWritten
	speed := p.stats.RollingSpeed(10)
	spark := Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth)

	// Line 1: throughput sparkline + speed + byte totals.
	total := "?"
	if snap.BytesTotal > 0 {
		total = FormatBytes(snap.BytesTotal)
	}
	fmt.Fprintf(p.w, "       %s   %s   %s / %s\n",
		spark, FormatRate(speed), FormatBytes(done), total)

	// Line 2: progress bar + blocks + errors + eta.
	bw := p.barWidth()
	switch {
	case p.verifying:
		pct := float64(snap.BlocksVerified) / float64(max(snap.BlocksWritten, 1))
		fmt.Fprintf(p.w, " %3.0f%%  %s   verified %s / %s blocks\n",
			pct*100, styleBarFill.Render(ProgressBar(pct, bw)),
			FormatCount(snap.BlocksVerified), FormatCount(snap.BlocksWritten))
	case snap.BytesTotal > 0:
		pct := float64(done) / float64(snap.BytesTotal)
		fmt.Fprintf(p.w, " %3.0f%%  %s   %s blocks   %d errors   eta %s\n",
			pct*100, styleBarFill.Render(ProgressBar(pct, bw)),
			FormatCount(snap.BlocksWritten), snap.ReadErrors,
			FormatETA(p.stats.ETA()))
	default:
		fmt.Fprintf(p.w, "   --  %s   %s blocks   %d errors   %s\n",
			ProgressBar(0, bw),
			FormatCount(snap.BlocksWritten), snap.ReadErrors,
			FormatDuration(snap.Elapsed))
	}

	p.hudDrawn = true
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	// Move cursor up N lines and clear to end of screen.
	fmt.Fprintf(p.w, "\033[%dA\033[J", hudLines)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary(res engine.Result) string {
	return summarize(res, p.noXfer)
}
