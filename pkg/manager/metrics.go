package manager

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus instrumentation for a Manager. All
// methods are nil-safe so a Manager works without instrumentation.
type Metrics struct {
	TerminusState      *prometheus.GaugeVec
	SyncsTotal         *prometheus.CounterVec
	SyncFastPathsTotal prometheus.Counter
	AppliesTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers manager metrics with reg. If reg is
// nil, the metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TerminusState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pdrhub",
			Subsystem: "manager",
			Name:      "terminus_state",
			Help:      "Per-slot terminus state as a numeric code (0=unused through 5=error).",
		}, []string{"slot"}),
		SyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "manager",
			Name:      "syncs_total",
			Help:      "Completed SyncTerminus attempts, labeled by result.",
		}, []string{"result"}),
		SyncFastPathsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "manager",
			Name:      "sync_fast_paths_total",
			Help:      "Syncs skipped because the terminus signature was unchanged.",
		}),
		AppliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "manager",
			Name:      "incremental_applies_total",
			Help:      "Incremental record mutations applied from change events, labeled by operation.",
		}, []string{"operation"}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.TerminusState, m.SyncsTotal, m.SyncFastPathsTotal, m.AppliesTotal,
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

func (m *Metrics) setTerminusState(slot int, s TerminusState) {
	if m == nil {
		return
	}
	m.TerminusState.WithLabelValues(strconv.Itoa(slot)).Set(float64(s))
}

func (m *Metrics) recordSync(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.SyncsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordSyncFastPath() {
	if m == nil {
		return
	}
	m.SyncFastPathsTotal.Inc()
}

func (m *Metrics) recordApply(operation string) {
	if m == nil {
		return
	}
	m.AppliesTotal.WithLabelValues(operation).Inc()
}
