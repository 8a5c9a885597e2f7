package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/classquest-api/internal/models"
)

// Purchase outcomes used as the purchases_total result label.
const (
	PurchaseResultSettled      = "settled"
	PurchaseResultUnavailable  = "unavailable"
	PurchaseResultLocked       = "locked"
	PurchaseResultInsufficient = "insufficient"
	PurchaseResultError        = "error"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	xpGranted       prometheus.Counter
	xpDeducted      prometheus.Counter
	crystals        prometheus.Counter
	purchases       *prometheus.CounterVec
	reversals       prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	xpGrantedTotal       int64
	crystalsTotal        int64
	purchaseCount        uint64
	reversalCount        uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	xpGranted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xp_granted_total",
		Help: "XP written to the ledger by grants and bonuses",
	})

	xpDeducted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xp_deducted_total",
		Help: "Absolute XP written to the ledger by penalty grants",
	})

	crystals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crystals_credited_total",
		Help: "Crystals credited to teams by grants",
	})

	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_total",
		Help: "Shop purchase attempts by result",
	}, []string{"result"})

	reversals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_reversals_total",
		Help: "Ledger entries reversed",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		xpGranted, xpDeducted, crystals, purchases, reversals, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		xpGranted:       xpGranted,
		xpDeducted:      xpDeducted,
		crystals:        crystals,
		purchases:       purchases,
		reversals:       reversals,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordGrant counts a newly written ledger entry. Penalties go to xp_deducted_total.
func (m *MetricsService) RecordGrant(xp, crystals int) {
	if m == nil {
		return
	}
	if xp >= 0 {
		m.xpGranted.Add(float64(xp))
	} else {
		m.xpDeducted.Add(float64(-xp))
	}
	atomic.AddInt64(&m.xpGrantedTotal, int64(xp))
	if crystals > 0 {
		m.crystals.Add(float64(crystals))
		atomic.AddInt64(&m.crystalsTotal, int64(crystals))
	}
}

// RecordPurchase counts a purchase attempt by outcome.
func (m *MetricsService) RecordPurchase(result string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(result).Inc()
	if result == PurchaseResultSettled {
		atomic.AddUint64(&m.purchaseCount, 1)
	}
}

// RecordReversal counts a reversed ledger entry.
func (m *MetricsService) RecordReversal() {
	if m == nil {
		return
	}
	m.reversals.Inc()
	atomic.AddUint64(&m.reversalCount, 1)
}

// Snapshot returns aggregated counters for the metrics summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		XPGranted:                atomic.LoadInt64(&m.xpGrantedTotal),
		CrystalsCredited:         atomic.LoadInt64(&m.crystalsTotal),
		Purchases:                atomic.LoadUint64(&m.purchaseCount),
		Reversals:                atomic.LoadUint64(&m.reversalCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
