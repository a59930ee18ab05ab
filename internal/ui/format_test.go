package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/rdd/internal/engine"
)

func TestFormatRate(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0 B/s"},
		{-1, "0 B/s"},
		{512, "512 B/s"},
		{1000, "1.0 kB/s"},
		{15_000, "15.0 kB/s"},
		{1_500_000, "1.5 MB/s"},
		{117_000_000, "117 MB/s"},
		{999_700, "1.0 MB/s"},
		{2_500_000_000, "2.5 GB/s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRate(tt.input))
		})
	}
}

func TestFormatRecords(t *testing.T) {
	assert.Equal(t, "0+0", FormatRecords(engine.Records{}))
	assert.Equal(t, "12+1", FormatRecords(engine.Records{Full: 12, Partial: 1}))
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  string
	}{
		{0, "--"},
		{-time.Second, "--"},
		{2 * time.Second, "2.0s"},
		{45 * time.Second, "45s"},
		{125 * time.Second, "2m05s"},
		{2*time.Hour + 5*time.Second, "2h00m05s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatETA(tt.input))
		})
	}
}

func TestFormatCount(t *testing.T) {
	tests := map[int64]string{
		0:          "0",
		7:          "7",
		512:        "512",
		4096:       "4,096",
		262_144:    "262,144",
		1_048_576:  "1,048,576",
		-2_000_000: "-2,000,000",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCount(in), "FormatCount(%d)", in)
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "", ProgressBar(0.5, 0))
	assert.Equal(t, "········", ProgressBar(0, 8))
	assert.Equal(t, "████····", ProgressBar(0.5, 8))
	assert.Equal(t, "████████", ProgressBar(1, 8))
	assert.Equal(t, "████████", ProgressBar(2, 8))
	assert.Equal(t, "········", ProgressBar(-1, 8))

	// 0.3 of 4 cells is 1.2 cells: one full cell and one eighth.
	assert.Equal(t, "█▏··", ProgressBar(0.3, 4))
	for _, frac := range []float64{0.1, 0.33, 0.77, 0.99} {
		assert.Len(t, []rune(ProgressBar(frac, 20)), 20)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "0.4s", FormatDuration(400*time.Millisecond))
	assert.Equal(t, "12s", FormatDuration(12*time.Second))
	assert.Equal(t, "3m17s", FormatDuration(3*time.Minute+17*time.Second))
	assert.Equal(t, "1h02m03s", FormatDuration(time.Hour+2*time.Minute+3*time.Second))
}
