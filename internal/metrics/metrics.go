package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pairup"

// Metrics holds the coordinator's Prometheus collectors.
type Metrics struct {
	Matches     prometheus.Counter
	MatchMisses prometheus.Counter
	Rings       prometheus.Counter
	Exits       prometheus.Counter
	Divergences prometheus.Counter
	Reaped      prometheus.Counter
	StoreErrors *prometheus.CounterVec
}

// New creates the collectors and registers them on r.
func New(r prometheus.Registerer) *Metrics {
	m := &Metrics{
		Matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Pairs created by find-partner",
		}),
		MatchMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_misses_total",
			Help:      "find-partner calls that found no candidate",
		}),
		Rings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rings_total",
			Help:      "Partners set to ringing",
		}),
		Exits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exits_total",
			Help:      "Matches ended by a user",
		}),
		Divergences: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "divergences_total",
			Help:      "Matches closed locally after the partner was found gone",
		}),
		Reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaped_total",
			Help:      "Stale sessions forced offline by the reaper",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Presence store failures by operation",
		}, []string{"op"}),
	}

	r.MustRegister(
		m.Matches,
		m.MatchMisses,
		m.Rings,
		m.Exits,
		m.Divergences,
		m.Reaped,
		m.StoreErrors,
	)

	return m
}
