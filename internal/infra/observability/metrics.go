package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/kbarry/remitax-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	receiptsProcessed  *prometheus.CounterVec
	matchOutcomes      *prometheus.CounterVec
	duplicatesDetected prometheus.Counter
	rateFetchErrors    prometheus.Counter
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remitax_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		receiptsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remitax_receipts_processed_total",
				Help: "Receipts accepted into the store, by validation status.",
			},
			[]string{"status"},
		),
		matchOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remitax_match_outcomes_total",
				Help: "Parenthood match classifications.",
			},
			[]string{"result"},
		),
		duplicatesDetected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "remitax_duplicates_detected_total",
				Help: "Submissions rejected as duplicates of stored receipts.",
			},
		),
		rateFetchErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "remitax_rate_fetch_errors_total",
				Help: "Failed fetches from the external currency-rate source.",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remitax_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remitax_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrReceiptProcessed increments the processed counter for a status.
func (m *Metrics) IncrReceiptProcessed(status domain.ValidationStatus) {
	m.receiptsProcessed.WithLabelValues(string(status)).Inc()
}

// IncrMatchOutcome increments the match classification counter.
func (m *Metrics) IncrMatchOutcome(result string) {
	m.matchOutcomes.WithLabelValues(result).Inc()
}

// IncrDuplicateDetected increments the duplicate counter.
func (m *Metrics) IncrDuplicateDetected() {
	m.duplicatesDetected.Inc()
}

// IncrRateFetchError increments the rate-source error counter.
func (m *Metrics) IncrRateFetchError() {
	m.rateFetchErrors.Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetEngineSnapshot returns a snapshot of the engine counters suitable for
// the GET /v1/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	// Prometheus counters expose cumulative values.
	autoAccepted := getCounterValue(m.receiptsProcessed, string(domain.StatusAutoAccepted))
	needsReview := getCounterValue(m.receiptsProcessed, string(domain.StatusNeedsReview))
	rejected := getCounterValue(m.receiptsProcessed, string(domain.StatusRejected))
	pending := getCounterValue(m.receiptsProcessed, string(domain.StatusPending))
	accepted := getCounterValue(m.receiptsProcessed, string(domain.StatusAccepted))

	cacheHits := getCounterValue(m.cacheHits, "rates")
	cacheMisses := getCounterValue(m.cacheMisses, "rates")
	hitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		hitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.EngineMetrics{
		ReceiptsProcessed:  int64(autoAccepted + needsReview + rejected + pending + accepted),
		AutoAccepted:       int64(autoAccepted),
		NeedsReview:        int64(needsReview),
		Rejected:           int64(rejected),
		DuplicatesDetected: int64(counterValue(m.duplicatesDetected)),
		RateFetchErrors:    int64(counterValue(m.rateFetchErrors)),
		CacheHitRate:       hitRate,
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
