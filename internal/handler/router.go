// Package handler exposes the engine over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/infra/observability"
	"github.com/kbarry/remitax-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(receipts *service.Receipts, family *service.Family, taxSvc *service.Tax, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// Operational endpoints
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/households/{householdID}", func(r chi.Router) {
			// Family declaration (wholesale replace)
			r.Put("/family", putFamilyHandler(family, logger))
			r.Get("/family", getFamilyHandler(family, logger))

			// Receipt pipeline
			r.Post("/receipts", submitReceiptHandler(receipts, logger))
			r.Post("/receipts/batch", submitBatchHandler(receipts, logger))
			r.Get("/receipts", listReceiptsHandler(receipts, logger))
			r.Post("/receipts/{receiptID}/review", reviewReceiptHandler(receipts, logger))

			// Reporting
			r.Get("/beneficiaries", beneficiariesHandler(receipts, logger))
			r.Get("/summary", summaryHandler(receipts, logger))
		})

		// Standalone what-if estimator
		r.Post("/tax/estimate", taxEstimateHandler(taxSvc, logger))

		// JSON counter snapshot for dashboards that don't scrape Prometheus
		r.Get("/metrics/engine", engineMetricsHandler(metrics))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:    "healthy",
			Service:   "remitax",
			Timestamp: time.Now(),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}
