package query

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache behavior per resource domain. A nil registerer
// yields counters that are incremented but never scraped, which keeps
// call sites unconditional.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	staleServes   *prometheus.CounterVec
	refetches     *prometheus.CounterVec
	retries       *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casescope",
			Subsystem: "query",
			Name:      name,
			Help:      help,
		}, []string{"domain"})
	}

	m := &Metrics{
		hits:          counter("cache_hits_total", "Fresh cache entries served without a network call."),
		misses:        counter("cache_misses_total", "Lookups that required a network fetch."),
		staleServes:   counter("stale_serves_total", "Stale values served while a refetch ran in the background."),
		refetches:     counter("refetches_total", "Background refetches issued for stale or invalidated entries."),
		retries:       counter("retries_total", "Fetch attempts beyond the first."),
		invalidations: counter("invalidations_total", "Entries marked stale by a mutation or event."),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.staleServes, m.refetches, m.retries, m.invalidations)
	}
	return m
}

func (m *Metrics) domain(k Key) string {
	if len(k.segs) == 0 {
		return "unknown"
	}
	return k.segs[0]
}
