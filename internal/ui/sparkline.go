package ui

import "strings"

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the last width samples of data as block characters,
// scaled to the largest sample shown. Short input is padded on the left
// with the lowest block.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	peak := 0.0
	for _, v := range data {
		peak = max(peak, v)
	}

	var b strings.Builder
	for i := 0; i < width-len(data); i++ {
		b.WriteRune(sparkBlocks[0])
	}
	top := len(sparkBlocks) - 1
	for _, v := range data {
		idx := 0
		if peak > 0 && v > 0 {
			idx = min(int(v/peak*float64(top)), top)
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
