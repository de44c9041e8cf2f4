package vault

import "github.com/prometheus/client_golang/prometheus"

// metrics are operational counters only; none of them carries letter
// identifiers or key material.
type metrics struct {
	seals       prometheus.Counter
	resolves    prometheus.Counter
	firstOpens  prometheus.Counter
	rotations   prometheus.Counter
	revocations prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		seals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timecapsule_seals_total",
			Help: "Letters sealed.",
		}),
		resolves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timecapsule_resolves_total",
			Help: "Share links resolved.",
		}),
		firstOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timecapsule_first_opens_total",
			Help: "Letters opened for the first time.",
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timecapsule_rotations_total",
			Help: "Share links rotated.",
		}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timecapsule_revocations_total",
			Help: "Share links revoked.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.seals, m.resolves, m.firstOpens, m.rotations, m.revocations)
	}
	return m
}
