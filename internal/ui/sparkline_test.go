package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparkline(t *testing.T) {
	const mib = 1 << 20
	tests := []struct {
		name  string
		data  []float64
		width int
		want  string
	}{
		{"no width", []float64{mib}, 0, ""},
		{"no samples", nil, 4, "▁▁▁▁"},
		{"stalled copy", []float64{0, 0, 0}, 3, "▁▁▁"},
		{"steady rate", []float64{50 * mib, 50 * mib, 50 * mib}, 3, "███"},
		{"first second", []float64{80 * mib}, 4, "▁▁▁█"},
		{"ramp", []float64{0, 1, 2, 3, 4, 5, 6, 7}, 8, "▁▂▃▄▅▆▇█"},
		{"keeps newest samples", []float64{100, 0, 7, 7}, 2, "██"},
		{"device stall mid copy", []float64{70, 70, 0, 70}, 4, "██▁█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sparkline(tt.data, tt.width)
			assert.Equal(t, tt.want, got)
			assert.Len(t, []rune(got), tt.width)
		})
	}
}
