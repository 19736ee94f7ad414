package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/tax"
)

var taxTracer = otel.Tracer("service/tax")

// EstimateRequest is the standalone gain-estimator input: a hypothetical
// monthly remittance against the household's fiscal profile.
type EstimateRequest struct {
	MonthlySent     float64                `json:"monthly_sent"`
	AnnualIncome    float64                `json:"annual_income"`
	Married         bool                   `json:"married"`
	ChildrenCount   int                    `json:"children_count"`
	Relation        domain.Relation        `json:"relation"`
	ExpenseCategory domain.ExpenseCategory `json:"expense_category"`
}

// EstimateResponse reports the eligibility gates and, when all pass, the
// projected yearly gain.
type EstimateResponse struct {
	Eligibility domain.Eligibility   `json:"eligibility"`
	Estimate    *domain.GainEstimate `json:"estimate,omitempty"`
}

// Tax exposes the deduction calculator as a standalone what-if estimator.
type Tax struct {
	calc   *tax.Calculator
	logger *zap.Logger
}

// NewTax creates the tax estimation service.
func NewTax(calc *tax.Calculator, logger *zap.Logger) *Tax {
	return &Tax{calc: calc, logger: logger}
}

// Estimate validates the request, checks the eligibility gates, and computes
// the projected gain. The gain is attached only when every gate passes.
func (t *Tax) Estimate(ctx context.Context, req EstimateRequest) (*EstimateResponse, error) {
	_, span := taxTracer.Start(ctx, "Tax.Estimate")
	defer span.End()

	if req.MonthlySent < 0 {
		return nil, &domain.ErrValidation{Field: "monthly_sent", Message: "must not be negative"}
	}
	if req.AnnualIncome < 0 {
		return nil, &domain.ErrValidation{Field: "annual_income", Message: "must not be negative"}
	}
	if req.ChildrenCount < 0 {
		return nil, &domain.ErrValidation{Field: "children_count", Message: "must not be negative"}
	}
	if req.Relation == "" {
		return nil, &domain.ErrValidation{Field: "relation", Message: "must be provided"}
	}
	if req.ExpenseCategory == "" {
		req.ExpenseCategory = domain.CategoryAlimentary
	}

	profile := domain.FiscalProfile{
		AnnualIncome:  req.AnnualIncome,
		Married:       req.Married,
		ChildrenCount: req.ChildrenCount,
	}
	elig := t.calc.CheckEligibility(profile, req.Relation, req.ExpenseCategory)

	resp := &EstimateResponse{Eligibility: elig}
	if elig.Eligible {
		est := t.calc.ComputeGain(req.MonthlySent, req.AnnualIncome, req.Married, req.ChildrenCount)
		resp.Estimate = &est
	}
	return resp, nil
}
