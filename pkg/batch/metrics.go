package batch

import (
	"github.com/prometheus/client_golang/prometheus"

	"debundle/pkg/reconstruct"
)

const metricsNamespace = "debundle"

// Metrics holds the Prometheus collectors for batch runs. Each Metrics has
// its own registry so runs and tests never share counters.
type Metrics struct {
	Registry *prometheus.Registry

	filesTotal      *prometheus.CounterVec
	rewritesTotal   *prometheus.CounterVec
	diagnostics     prometheus.Counter
	fileDuration    prometheus.Histogram
	lastRunFiles    prometheus.Gauge
	lastRunFailures prometheus.Gauge
}

// NewMetrics creates and registers the batch collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "files_total",
				Help:      "Files processed by result",
			},
			[]string{"result"},
		),
		rewritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconstructions_total",
				Help:      "Constructs rewritten by kind",
			},
			[]string{"kind"},
		),
		diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "markup_calls_skipped_total",
			Help:      "Markup calls left unchanged because of their parent shape or a bail-out",
		}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "file_duration_seconds",
			Help:      "Time to parse, reconstruct and print one file",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		lastRunFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_files",
			Help:      "Files seen by the most recent run",
		}),
		lastRunFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_failures",
			Help:      "Files that failed in the most recent run",
		}),
	}
	m.Registry.MustRegister(m.filesTotal, m.rewritesTotal, m.diagnostics, m.fileDuration, m.lastRunFiles, m.lastRunFailures)
	return m
}

// Observe records one file result.
func (m *Metrics) Observe(r *FileResult) {
	m.fileDuration.Observe(r.Duration.Seconds())
	if r.Err != nil {
		m.filesTotal.WithLabelValues("failure").Inc()
		return
	}
	m.filesTotal.WithLabelValues("success").Inc()
	if r.Report == nil {
		return
	}
	m.rewritesTotal.WithLabelValues("element").Add(float64(r.Report.Elements))
	m.rewritesTotal.WithLabelValues("import").Add(float64(r.Report.Imports))
	m.rewritesTotal.WithLabelValues("export").Add(float64(r.Report.Exports))
	for enc, n := range r.Report.Classes {
		if enc != reconstruct.ClassInvalid {
			m.rewritesTotal.WithLabelValues("class_" + enc.String()).Add(float64(n))
		}
	}
	m.diagnostics.Add(float64(r.Report.Diagnostics))
}

// ObserveTally records the totals of a finished run.
func (m *Metrics) ObserveTally(t *Tally) {
	m.lastRunFiles.Set(float64(len(t.Succeeded) + len(t.Failed)))
	m.lastRunFailures.Set(float64(len(t.Failed)))
}

// WriteTextfile writes the registry in the Prometheus text format, for a
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
