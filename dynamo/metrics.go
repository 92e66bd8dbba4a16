package dynamo

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts host traffic.
type Metrics struct {
	Requests      *prometheus.CounterVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	Notifications prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dyntable",
			Subsystem: "dynamo",
			Name:      "requests_total",
			Help:      "DynamoDB requests by operation.",
		}, []string{"op"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dyntable",
			Subsystem: "dynamo",
			Name:      "cache_hits_total",
			Help:      "Record reads served from the cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dyntable",
			Subsystem: "dynamo",
			Name:      "cache_misses_total",
			Help:      "Record reads that went to DynamoDB.",
		}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dyntable",
			Subsystem: "dynamo",
			Name:      "notifications_total",
			Help:      "Change notifications delivered to subscribers.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.CacheHits, m.CacheMisses, m.Notifications)
	}
	return m
}
