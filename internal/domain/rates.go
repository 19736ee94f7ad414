package domain

import "time"

// RateTable maps currency codes to their rate against the reference currency
// (units of foreign currency per one unit of reference).
type RateTable struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Conversion is the result of resolving a foreign amount to the reference
// currency. AmountEUR and Rate are always produced together.
type Conversion struct {
	AmountEUR float64 `json:"amount_eur"`
	Rate      float64 `json:"rate"`
}

// EngineMetrics is a JSON snapshot of the engine counters, served by
// GET /v1/metrics/engine for dashboards that don't scrape Prometheus.
type EngineMetrics struct {
	ReceiptsProcessed  int64   `json:"receipts_processed"`
	AutoAccepted       int64   `json:"auto_accepted"`
	NeedsReview        int64   `json:"needs_review"`
	Rejected           int64   `json:"rejected"`
	DuplicatesDetected int64   `json:"duplicates_detected"`
	RateFetchErrors    int64   `json:"rate_fetch_errors"`
	CacheHitRate       float64 `json:"cache_hit_rate"`
	Period             string  `json:"period"`
}
