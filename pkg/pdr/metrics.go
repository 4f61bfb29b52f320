package pdr

import "github.com/prometheus/client_golang/prometheus"

// Metrics provides Prometheus instrumentation for a single Repository.
// All methods are nil-safe: calls on a nil *Metrics are no-ops, so a
// Repository can be used without a Metrics attached (e.g. in unit
// tests) without guarding every call site.
type Metrics struct {
	RecordCount          prometheus.Gauge
	RepositorySize       prometheus.Gauge
	SignatureRecomputes  prometheus.Counter
	RebuildsTotal        prometheus.Counter
	OperationErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers repository metrics with reg. If reg
// is nil, the metrics are created but not registered (useful in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pdrhub",
			Subsystem: "repository",
			Name:      "live_records",
			Help:      "Current number of non-tombstoned records in the repository.",
		}),
		RepositorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pdrhub",
			Subsystem: "repository",
			Name:      "live_bytes",
			Help:      "Current summed size in bytes of non-tombstoned records.",
		}),
		SignatureRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "repository",
			Name:      "signature_recomputes_total",
			Help:      "Total number of times the CRC32 signature was recomputed.",
		}),
		RebuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "repository",
			Name:      "rebuilds_total",
			Help:      "Total number of completed RunInitAgent rebuilds.",
		}),
		OperationErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "repository",
			Name:      "operation_errors_total",
			Help:      "Repository operation failures, labeled by error code.",
		}, []string{"code"}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.RecordCount, m.RepositorySize, m.SignatureRecomputes,
			m.RebuildsTotal, m.OperationErrorsTotal,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}

	return m
}

func (m *Metrics) setRecordCount(v uint32) {
	if m == nil {
		return
	}
	m.RecordCount.Set(float64(v))
}

func (m *Metrics) setRepositorySize(v uint32) {
	if m == nil {
		return
	}
	m.RepositorySize.Set(float64(v))
}

func (m *Metrics) recordSignatureRecompute() {
	if m == nil {
		return
	}
	m.SignatureRecomputes.Inc()
}

func (m *Metrics) recordRebuild() {
	if m == nil {
		return
	}
	m.RebuildsTotal.Inc()
}

func (m *Metrics) recordError(code ErrorCode) {
	if m == nil {
		return
	}
	m.OperationErrorsTotal.WithLabelValues(code.String()).Inc()
}
