package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/service"
)

// submitReceiptHandler runs one extracted record through the pipeline.
// A duplicate verdict comes back as 409 with the verdict attached.
func submitReceiptHandler(svc *service.Receipts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/households/{householdID}/receipts")
		defer span.End()

		householdID := chi.URLParam(r, "householdID")
		span.SetAttributes(attribute.String("household.id", householdID))

		var req struct {
			FiscalYear int `json:"fiscal_year,omitempty"`
			domain.ExtractedReceipt
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.Submit(ctx, householdID, req.FiscalYear, req.ExtractedReceipt)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if result.Duplicate != nil {
			writeJSON(w, http.StatusConflict, result)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

// submitBatchHandler processes one multi-receipt upload; per-item results come
// back in input order, duplicates flagged inline.
func submitBatchHandler(svc *service.Receipts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/households/{householdID}/receipts/batch")
		defer span.End()

		householdID := chi.URLParam(r, "householdID")
		span.SetAttributes(attribute.String("household.id", householdID))

		var req struct {
			FiscalYear int                       `json:"fiscal_year,omitempty"`
			Receipts   []domain.ExtractedReceipt `json:"receipts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		results, err := svc.SubmitBatch(ctx, householdID, req.FiscalYear, req.Receipts)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

func listReceiptsHandler(svc *service.Receipts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/households/{householdID}/receipts")
		defer span.End()

		receipts, err := svc.List(ctx, chi.URLParam(r, "householdID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"receipts": receipts})
	}
}

func reviewReceiptHandler(svc *service.Receipts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/households/{householdID}/receipts/{receiptID}/review")
		defer span.End()

		var req struct {
			Approve bool `json:"approve"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		receipt, err := svc.Review(ctx, chi.URLParam(r, "householdID"), chi.URLParam(r, "receiptID"), req.Approve)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	}
}

func beneficiariesHandler(svc *service.Receipts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/households/{householdID}/beneficiaries")
		defer span.End()

		groups, err := svc.Beneficiaries(ctx, chi.URLParam(r, "householdID"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"beneficiaries": groups})
	}
}

// summaryHandler reads the fiscal profile from query parameters: the profile
// belongs to the surrounding system, not to this engine's store.
func summaryHandler(svc *service.Receipts, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/households/{householdID}/summary")
		defer span.End()

		q := r.URL.Query()
		profile := domain.FiscalProfile{
			Married: q.Get("married") == "true",
		}
		if v := q.Get("income"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				writeError(w, http.StatusBadRequest, "income must be a non-negative number")
				return
			}
			profile.AnnualIncome = f
		}
		if v := q.Get("children"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "children must be a non-negative integer")
				return
			}
			profile.ChildrenCount = n
		}
		fiscalYear := 0
		if v := q.Get("year"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "year must be an integer")
				return
			}
			fiscalYear = n
		}
		category := domain.ExpenseCategory(q.Get("category"))

		summary, err := svc.Summary(ctx, chi.URLParam(r, "householdID"), fiscalYear, profile, category)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
