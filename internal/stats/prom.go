package stats

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	descBytesRead = prometheus.NewDesc("rdd_read_bytes_total",
		"Source bytes read, including zero blocks substituted for read faults.", nil, nil)
	descBytesWritten = prometheus.NewDesc("rdd_written_bytes_total",
		"Bytes persisted to the destination.", nil, nil)
	descBytesPadded = prometheus.NewDesc("rdd_padded_bytes_total",
		"Zero bytes added by conv=sync.", nil, nil)
	descBytesExpected = prometheus.NewDesc("rdd_expected_bytes",
		"Expected copy size in bytes, 0 when unknown.", nil, nil)
	descBlocks = prometheus.NewDesc("rdd_blocks_total",
		"Blocks handled by each pipeline stage.", []string{"stage"}, nil)
	descReadErrors = prometheus.NewDesc("rdd_read_errors_total",
		"Recoverable read faults recorded under conv=noerror.", nil, nil)
	descRetries = prometheus.NewDesc("rdd_io_retries_total",
		"Transient I/O errors absorbed by retry.", nil, nil)
	descElapsed = prometheus.NewDesc("rdd_elapsed_seconds",
		"Wall time since the copy started.", nil, nil)
)

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descBytesRead
	ch <- descBytesWritten
	ch <- descBytesPadded
	ch <- descBytesExpected
	ch <- descBlocks
	ch <- descReadErrors
	ch <- descRetries
	ch <- descElapsed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.Snapshot()
	ch <- prometheus.MustNewConstMetric(descBytesRead, prometheus.CounterValue, float64(s.BytesRead))
	ch <- prometheus.MustNewConstMetric(descBytesWritten, prometheus.CounterValue, float64(s.BytesWritten))
	ch <- prometheus.MustNewConstMetric(descBytesPadded, prometheus.CounterValue, float64(s.BytesPadded))
	ch <- prometheus.MustNewConstMetric(descBytesExpected, prometheus.GaugeValue, float64(s.BytesTotal))
	ch <- prometheus.MustNewConstMetric(descBlocks, prometheus.CounterValue, float64(s.BlocksRead), "read")
	ch <- prometheus.MustNewConstMetric(descBlocks, prometheus.CounterValue, float64(s.BlocksWritten), "written")
	ch <- prometheus.MustNewConstMetric(descBlocks, prometheus.CounterValue, float64(s.BlocksSparse), "sparse")
	ch <- prometheus.MustNewConstMetric(descBlocks, prometheus.CounterValue, float64(s.BlocksVerified), "verified")
	ch <- prometheus.MustNewConstMetric(descReadErrors, prometheus.CounterValue, float64(s.ReadErrors))
	ch <- prometheus.MustNewConstMetric(descRetries, prometheus.CounterValue, float64(s.Retries))
	ch <- prometheus.MustNewConstMetric(descElapsed, prometheus.GaugeValue, s.Elapsed.Seconds())
}

// WriteTextfile writes the collector's metrics to path in the Prometheus
// text format, for node_exporter's textfile collector.
func WriteTextfile(path string, c *Collector) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
