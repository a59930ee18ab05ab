package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/rdd/internal/engine"
	"github.com/bamsammich/rdd/internal/stats"
)

func TestNewPresenter(t *testing.T) {
	collector := stats.NewCollector()
	var buf bytes.Buffer

	tests := []struct {
		name string
		cfg  Config
		want any
	}{
		{"quiet", Config{Quiet: true, IsTTY: true}, &quietPresenter{}},
		{"pipe", Config{ErrWriter: &buf, Stats: collector}, &plainPresenter{}},
		{"no progress", Config{ErrWriter: &buf, Stats: collector, IsTTY: true, NoProgress: true}, &plainPresenter{}},
		{"tty", Config{ErrWriter: &buf, Stats: collector, IsTTY: true}, &hudPresenter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.IsType(t, tt.want, NewPresenter(tt.cfg))
		})
	}
}

func TestQuietPresenter(t *testing.T) {
	p := NewPresenter(Config{Quiet: true})
	events := make(chan Event, 2)
	events <- Event{Type: ReadError, Error: assert.AnError}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Empty(t, p.Summary(engine.Result{Status: engine.StateFailed}))
}
