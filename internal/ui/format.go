package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bamsammich/rdd/internal/engine"
	"github.com/bamsammich/rdd/internal/stats"
)

// FormatRate formats a throughput the way dd reports it: decimal units,
// one decimal place below 100.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 || math.IsInf(bytesPerSec, 0) || math.IsNaN(bytesPerSec) {
		return "0 B/s"
	}
	if bytesPerSec < 1000 {
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
	const prefixes = "kMGTPE"
	v, i := bytesPerSec/1000, 0
	for v >= 999.5 && i < len(prefixes)-1 {
		v /= 1000
		i++
	}
	if v < 99.95 {
		return fmt.Sprintf("%.1f %cB/s", v, prefixes[i])
	}
	return fmt.Sprintf("%.0f %cB/s", v, prefixes[i])
}

// FormatRecords renders a record count as dd does, full+partial.
func FormatRecords(r engine.Records) string {
	return strconv.FormatInt(r.Full, 10) + "+" + strconv.FormatInt(r.Partial, 10)
}

// FormatETA is FormatDuration, or "--" while no estimate exists.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return FormatDuration(d)
}

// FormatCount groups the digits of a block count in threes.
func FormatCount(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}
	for i := len(digits) - 3; i > 0; i -= 3 {
		digits = digits[:i] + "," + digits[i:]
	}
	return sign + digits
}

var barEighths = []rune(" ▏▎▍▌▋▊▉")

// ProgressBar renders frac of width cells, resolving the boundary cell to
// an eighth. Unfilled cells are dots.
func ProgressBar(frac float64, width int) string {
	if width <= 0 {
		return ""
	}
	frac = max(0, min(frac, 1))

	eighths := int(frac * float64(width*8))
	full, part := eighths/8, eighths%8

	var b strings.Builder
	b.WriteString(strings.Repeat("█", full))
	rest := width - full
	if part > 0 {
		b.WriteRune(barEighths[part])
		rest--
	}
	b.WriteString(strings.Repeat("·", rest))
	return b.String()
}

// FormatBytes wraps stats.FormatBytes for UI use.
func FormatBytes(b int64) string {
	return stats.FormatBytes(b)
}

// FormatDuration formats elapsed time concisely. Durations under ten
// seconds keep one decimal.
func FormatDuration(d time.Duration) string {
	if d > 0 && d < 10*time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Round(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
