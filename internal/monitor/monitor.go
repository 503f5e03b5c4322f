// Package monitor exposes Prometheus metrics for the counting service.
package monitor

import (
	"context"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Failure kinds recorded by Fail.
const (
	FailInvalidImage = "invalid_image"
	FailNoDish       = "no_dish"
	FailBusy         = "busy"
	FailInternal     = "internal"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Requests   prometheus.Counter
	Cells      prometheus.Counter
	Failures   *prometheus.CounterVec
	Duration   prometheus.Histogram
	QueueDepth prometheus.Gauge

	memUsage prometheus.Gauge
	cpuUsage prometheus.Gauge
	proc     *process.Process
}

// New registers every collector. Process gauges stay at zero when the
// process cannot be inspected.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cellcount_requests_total",
			Help: "Total number of count requests received",
		}),
		Cells: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cellcount_cells_total",
			Help: "Total number of cells reported",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cellcount_failures_total",
			Help: "Failed count requests by kind",
		}, []string{"kind"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cellcount_detection_seconds",
			Help:    "Time spent locating the dish and detecting cells",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cellcount_queue_depth",
			Help: "Jobs waiting for a worker",
		}),
		memUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_usage_Megabytes",
			Help: "Memory usage in Megabytes",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpu_usage_percent",
			Help: "CPU usage in percent",
		}),
	}
	m.registry.MustRegister(m.Requests, m.Cells, m.Failures, m.Duration, m.QueueDepth, m.memUsage, m.cpuUsage)

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		m.proc = proc
	}
	return m
}

// Observe records one successful count.
func (m *Metrics) Observe(cells int, elapsed time.Duration) {
	m.Cells.Add(float64(cells))
	m.Duration.Observe(elapsed.Seconds())
}

// Fail records one failed request.
func (m *Metrics) Fail(kind string) {
	m.Failures.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Sample refreshes the process gauges.
func (m *Metrics) Sample() error {
	if m.proc == nil {
		return nil
	}
	mem, err := m.proc.MemoryInfo()
	if err != nil {
		return err
	}
	cpu, err := m.proc.CPUPercent()
	if err != nil {
		return err
	}
	m.memUsage.Set(float64(mem.RSS / 1024 / 1024))
	m.cpuUsage.Set(math.Round(cpu*100) / 100)
	return nil
}

// Run samples the process every interval until ctx is done.
func (m *Metrics) Run(ctx context.Context, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Sample(); err != nil {
				log.Debug("process sample failed", zap.Error(err))
			}
		}
	}
}
