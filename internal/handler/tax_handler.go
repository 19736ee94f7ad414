package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/service"
)

func taxEstimateHandler(svc *service.Tax, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tax/estimate")
		defer span.End()

		var req service.EstimateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Estimate(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
