// Package metrics exposes Prometheus counters for scans, frames and the process.
package metrics

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

// Scan outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics is a private registry with the readout collectors.
type Metrics struct {
	registry *prometheus.Registry

	Scans       *prometheus.CounterVec
	OCRDuration prometheus.Histogram
	FrameErrors prometheus.Counter
	ROICommits  prometheus.Counter
	memUsage    prometheus.Gauge
	cpuUsage    prometheus.Gauge

	proc *process.Process
	log  *zap.Logger
}

// New creates and registers all collectors.
func New(log *zap.Logger) *Metrics {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "readout_scans_total",
			Help: "Scans by outcome",
		}, []string{"outcome"}),
		OCRDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "readout_ocr_duration_seconds",
			Help:    "Time spent in Tesseract per scan",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		FrameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readout_frame_read_errors_total",
			Help: "Frames that failed to read",
		}),
		ROICommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "readout_roi_commits_total",
			Help: "Committed ROI selections",
		}),
		memUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "readout_memory_usage_megabytes",
			Help: "Resident memory in megabytes",
		}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "readout_cpu_usage_percent",
			Help: "CPU usage in percent",
		}),
		log: log,
	}
	m.registry.MustRegister(m.Scans, m.OCRDuration, m.FrameErrors, m.ROICommits, m.memUsage, m.cpuUsage)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOCR records one recognition latency.
func (m *Metrics) ObserveOCR(d time.Duration) {
	m.OCRDuration.Observe(d.Seconds())
}

// ScanOutcome counts one scan.
func (m *Metrics) ScanOutcome(outcome string) {
	m.Scans.WithLabelValues(outcome).Inc()
}

// SampleProcess updates the memory and CPU gauges once.
func (m *Metrics) SampleProcess() {
	if m.proc == nil {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			m.log.Debug("process metrics unavailable", zap.Error(err))
			return
		}
		m.proc = p
	}
	if mem, err := m.proc.MemoryInfo(); err == nil {
		m.memUsage.Set(float64(mem.RSS / 1024 / 1024))
	}
	if cpu, err := m.proc.CPUPercent(); err == nil {
		m.cpuUsage.Set(math.Round(cpu*100) / 100)
	}
}

// RunSampler samples process gauges every interval until ctx is done.
func (m *Metrics) RunSampler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.SampleProcess()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SampleProcess()
		}
	}
}
