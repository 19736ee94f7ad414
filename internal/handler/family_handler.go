package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/service"
)

func putFamilyHandler(svc *service.Family, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/households/{householdID}/family")
		defer span.End()

		householdID := chi.URLParam(r, "householdID")
		span.SetAttributes(attribute.String("household.id", householdID))

		var decl domain.FamilyDeclaration
		if err := json.NewDecoder(r.Body).Decode(&decl); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		saved, err := svc.Put(ctx, householdID, decl)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func getFamilyHandler(svc *service.Family, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/households/{householdID}/family")
		defer span.End()

		decl, err := svc.Get(ctx, chi.URLParam(r, "householdID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, decl)
	}
}
