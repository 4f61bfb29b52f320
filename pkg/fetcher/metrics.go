package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/pdrhub/pkg/transport"
)

// Metrics provides Prometheus instrumentation for a Fetcher. All
// methods are nil-safe so a Fetcher works without instrumentation.
type Metrics struct {
	RecordsFetchedTotal   prometheus.Counter
	ChunksTotal           prometheus.Counter
	PseudoSignaturesTotal prometheus.Counter
	FailuresTotal         *prometheus.CounterVec
}

// NewMetrics creates and registers fetcher metrics with reg. If reg is
// nil, the metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsFetchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "fetcher",
			Name:      "records_fetched_total",
			Help:      "Total number of complete records reassembled from remote termini.",
		}),
		ChunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "fetcher",
			Name:      "chunks_total",
			Help:      "Total number of GetPDR response chunks received.",
		}),
		PseudoSignaturesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "fetcher",
			Name:      "pseudo_signatures_total",
			Help:      "Times a terminus lacked the signature command and a pseudo-signature was synthesized.",
		}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "fetcher",
			Name:      "failures_total",
			Help:      "Fetch failures, labeled by command and error code.",
		}, []string{"command", "code"}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.RecordsFetchedTotal, m.ChunksTotal, m.PseudoSignaturesTotal, m.FailuresTotal,
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

func (m *Metrics) recordFetched() {
	if m == nil {
		return
	}
	m.RecordsFetchedTotal.Inc()
}

func (m *Metrics) recordChunk() {
	if m == nil {
		return
	}
	m.ChunksTotal.Inc()
}

func (m *Metrics) recordPseudoSignature() {
	if m == nil {
		return
	}
	m.PseudoSignaturesTotal.Inc()
}

func (m *Metrics) recordFailure(command transport.Command, code ErrorCode) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(command.String(), code.String()).Inc()
}
