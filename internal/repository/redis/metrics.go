package redis

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics exposes Prometheus collectors for cache effectiveness,
// partitioned by namespace prefix. A nil receiver is safe and records
// nothing, so services can run unmetered.
type CacheMetrics struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
	errors *prometheus.CounterVec
}

// NewCacheMetrics constructs and registers the cache collectors.
func NewCacheMetrics(reg prometheus.Registerer) (*CacheMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "c3po",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total number of cache hits partitioned by namespace prefix.",
	}, []string{"prefix"})

	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "c3po",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total number of cache misses partitioned by namespace prefix.",
	}, []string{"prefix"})

	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "c3po",
		Subsystem: "cache",
		Name:      "errors_total",
		Help:      "Total number of store errors masked as misses, partitioned by namespace prefix.",
	}, []string{"prefix"})

	var err error
	if hits, err = registerCounterVec(reg, hits); err != nil {
		return nil, err
	}
	if misses, err = registerCounterVec(reg, misses); err != nil {
		return nil, err
	}
	if errors, err = registerCounterVec(reg, errors); err != nil {
		return nil, err
	}

	return &CacheMetrics{hits: hits, misses: misses, errors: errors}, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing cache collector has unexpected type %T", already.ExistingCollector)
		}
		return nil, fmt.Errorf("register cache collector: %w", err)
	}
	return vec, nil
}

// IncHit records a cache hit for the prefix.
func (m *CacheMetrics) IncHit(prefix string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(prefix).Inc()
}

// IncMiss records a cache miss for the prefix.
func (m *CacheMetrics) IncMiss(prefix string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(prefix).Inc()
}

// IncError records a store failure masked as a miss for the prefix.
func (m *CacheMetrics) IncError(prefix string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(prefix).Inc()
}
