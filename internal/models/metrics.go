package models

import "time"

// MetricsSnapshot is a point-in-time summary of service counters.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	PipelineRuns             uint64    `json:"pipeline_runs"`
	RejectedBatches          uint64    `json:"rejected_batches"`
	RecordsInserted          uint64    `json:"records_inserted"`
	RecordsUpdated           uint64    `json:"records_updated"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
