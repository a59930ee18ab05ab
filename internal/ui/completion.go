package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bamsammich/rdd/internal/engine"
)

const maxListedErrors = 10

// CompletionSummary builds the end-of-run report. The first three lines
// follow dd:
//
//	12+1 records in
//	12+1 records out
//	50331648 bytes (48.0 MiB) copied, 0.41 s, 117 MB/s
//
// followed by digests, verification, recovered read errors and a final
// done line.
func CompletionSummary(res engine.Result) string {
	return summarize(res, false)
}

// summarize renders the report; noXfer drops the transfer line, as dd's
// status=noxfer does.
func summarize(res engine.Result, noXfer bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s records in\n", FormatRecords(res.RecordsIn))
	fmt.Fprintf(&b, "%s records out\n", FormatRecords(res.RecordsOut))

	if !noXfer {
		secs := res.Elapsed.Seconds()
		var rate float64
		if secs > 0 {
			rate = float64(res.BytesCopied) / secs
		}
		fmt.Fprintf(&b, "%d bytes (%s) copied, %.3g s, %s\n",
			res.BytesCopied, FormatBytes(res.BytesCopied), secs, FormatRate(rate))
	}

	if res.PaddedBytes > 0 {
		fmt.Fprintf(&b, "%s %s\n", styleLabel.Render("padded"), FormatBytes(res.PaddedBytes))
	}
	if res.Stats.BlocksSparse > 0 {
		fmt.Fprintf(&b, "%s %s blocks\n", styleLabel.Render("sparse"), FormatCount(res.Stats.BlocksSparse))
	}
	if res.Stats.Retries > 0 {
		fmt.Fprintf(&b, "%s %s\n", styleLabel.Render("retries"), FormatCount(res.Stats.Retries))
	}

	for _, algo := range engine.HashBoth.Algorithms() {
		sum, ok := res.Digests[algo]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%-7s %s\n", algo.String(), styleDigest.Render(sum))
	}

	var mismatch *engine.HashMismatchError
	switch {
	case errors.As(res.Err, &mismatch):
		fmt.Fprintf(&b, "%s %s\n", styleFailed.Render("verify ✗"), mismatch.Error())
	case len(res.VerifiedDigests) > 0 && res.OK():
		fmt.Fprintf(&b, "%s destination matches source\n", styleOK.Render("verify ✓"))
	}

	if n := len(res.Errors); n > 0 {
		fmt.Fprintf(&b, "%s\n", styleWarn.Render(fmt.Sprintf("%d unreadable blocks replaced with zeroes:", n)))
		for _, be := range res.Errors[:min(n, maxListedErrors)] {
			fmt.Fprintf(&b, "  %s\n", be.Error())
		}
		if n > maxListedErrors {
			fmt.Fprintf(&b, "  ... and %d more\n", n-maxListedErrors)
		}
	}

	b.WriteString(doneLine(res))
	return b.String()
}

func doneLine(res engine.Result) string {
	elapsed := styleLabel.Render("time ") + styleValue.Render(FormatDuration(res.Elapsed))
	switch res.Status {
	case engine.StateCompleted:
		return fmt.Sprintf("%s  %s", styleOK.Render("done ✓"), elapsed)
	case engine.StateCompletedWithErrors:
		return fmt.Sprintf("%s  %s  %s", styleWarn.Render("done ✓"),
			styleWarn.Render(fmt.Sprintf("errors %d", len(res.Errors))), elapsed)
	case engine.StateCancelled:
		return fmt.Sprintf("%s  %s", styleFailed.Render("cancelled ✗"), elapsed)
	default:
		msg := res.Status.String()
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return fmt.Sprintf("%s  %s  %s", styleFailed.Render("failed ✗"), msg, elapsed)
	}
}
