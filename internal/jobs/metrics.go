// Package jobmetrics instruments the background ledger jobs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	findings    *prometheus.CounterVec
	open        *prometheus.GaugeVec
	clock       func() time.Time
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics with registerer. A nil registerer shares
// one instance on the default Prometheus registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() {
		defaultMetrics = register(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Tracker times a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing job.
func (m *Metrics) Track(job string) *Tracker {
	t := &Tracker{job: job, start: time.Now()}
	if m != nil {
		t.metrics = m
	}
	return t
}

// End records the outcome of the run and returns err unchanged, so handlers can
// write `return tracker.End(err)`.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	if err != nil {
		m.runs.WithLabelValues(t.job, "failure").Inc()
		m.failures.WithLabelValues(t.job).Inc()
		return err
	}
	m.runs.WithLabelValues(t.job, "success").Inc()
	m.lastSuccess.WithLabelValues(t.job).Set(float64(m.clock().Unix()))
	return nil
}

// AddFindings counts findings of one kind and severity.
func (m *Metrics) AddFindings(kind, severity string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.findings.WithLabelValues(kind, severity).Add(float64(count))
}

// SetOpenFindings records how many findings the latest run of job reported. The
// counter above only grows; this gauge drops back to zero once the ledger is
// clean.
func (m *Metrics) SetOpenFindings(job string, count int) {
	if m == nil {
		return
	}
	m.open.WithLabelValues(job).Set(float64(count))
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qarzbook_jobs_total",
			Help: "Job executions by job name and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qarzbook_jobs_failures_total",
			Help: "Failed job executions.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qarzbook_job_duration_seconds",
			Help:    "Job execution time.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qarzbook_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qarzbook_ledger_findings_total",
			Help: "Ledger findings reported by background scans, by kind and severity.",
		}, []string{"kind", "severity"}),
		open: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "qarzbook_ledger_open_findings",
			Help: "Findings reported by the latest run of each scan.",
		}, []string{"job"}),
		clock: time.Now,
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.lastSuccess, m.findings, m.open)
	return m
}
