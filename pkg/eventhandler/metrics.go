package eventhandler

import "github.com/prometheus/client_golang/prometheus"

// Metrics provides Prometheus instrumentation for a Handler. All
// methods are nil-safe so a Handler works without instrumentation.
type Metrics struct {
	EventsTotal    *prometheus.CounterVec
	FallbacksTotal prometheus.Counter
}

// NewMetrics creates and registers event-handler metrics with reg. If
// reg is nil, the metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "events",
			Name:      "received_total",
			Help:      "Change events received, labeled by entry format (or invalid).",
		}, []string{"format"}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pdrhub",
			Subsystem: "events",
			Name:      "fallback_resyncs_total",
			Help:      "Incremental applies abandoned in favor of a full re-sync.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.EventsTotal, m.FallbacksTotal} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}

	return m
}

func (m *Metrics) recordEvent(format string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(format).Inc()
}

func (m *Metrics) recordFallback() {
	if m == nil {
		return
	}
	m.FallbacksTotal.Inc()
}
