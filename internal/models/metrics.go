package models

import "time"

// SystemMetrics is a lightweight snapshot of process and ledger counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	XPGranted                int64     `json:"xp_granted"`
	CrystalsCredited         int64     `json:"crystals_credited"`
	Purchases                uint64    `json:"purchases"`
	Reversals                uint64    `json:"reversals"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
