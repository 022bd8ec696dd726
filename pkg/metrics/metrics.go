package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	AlarmsEnqueued     prometheus.Counter
	AlarmsExpanded     prometheus.Counter
	RecipientsResolved prometheus.Counter
	DeliveriesSent     prometheus.Counter
	DeliveriesRetried  prometheus.Counter
	DeliveriesFailed   prometheus.Counter
	PassDuration       prometheus.Histogram
	DatabaseOperations *prometheus.CounterVec
}

// New creates the pipeline metrics under the given namespace. Collectors
// are not auto-registered so short-lived CLI passes and tests can create
// them freely; callers that expose /metrics register them explicitly.
func New(namespace string) *Metrics {
	return &Metrics{
		AlarmsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_enqueued_total",
			Help:      "Total number of alarm events accepted into the queue",
		}),
		AlarmsExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_expanded_total",
			Help:      "Total number of alarm events expanded into delivery attempts",
		}),
		RecipientsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipients_resolved_total",
			Help:      "Total number of delivery attempts created during expansion",
		}),
		DeliveriesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_sent_total",
			Help:      "Total number of delivery attempts confirmed by the gateway",
		}),
		DeliveriesRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_retried_total",
			Help:      "Total number of delivery attempts left retryable after a failure",
		}),
		DeliveriesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_failed_total",
			Help:      "Total number of delivery attempts failed permanently",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Time spent on one queue processing pass",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

// Register adds every collector to the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.AlarmsEnqueued,
		m.AlarmsExpanded,
		m.RecipientsResolved,
		m.DeliveriesSent,
		m.DeliveriesRetried,
		m.DeliveriesFailed,
		m.PassDuration,
		m.DatabaseOperations,
	)
}
