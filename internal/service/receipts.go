// Package service wires the matching, conversion, duplicate-detection,
// grouping, and tax components into the engine's use cases.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kbarry/remitax-go/internal/dedup"
	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/fx"
	"github.com/kbarry/remitax-go/internal/grouper"
	"github.com/kbarry/remitax-go/internal/infra/observability"
	"github.com/kbarry/remitax-go/internal/infra/resilience"
	"github.com/kbarry/remitax-go/internal/match"
	"github.com/kbarry/remitax-go/internal/port"
	"github.com/kbarry/remitax-go/internal/tax"
)

var tracer = otel.Tracer("service/receipts")

// dateLayouts are the transfer-date formats accepted from the OCR
// collaborator, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// SubmitResult pairs the processed receipt with the duplicate verdict when one
// fired. A duplicate is reported, not stored.
type SubmitResult struct {
	Receipt   *domain.Receipt `json:"receipt"`
	Duplicate *dedup.Result   `json:"duplicate,omitempty"`
}

// Receipts runs the submission pipeline (duplicate gate, currency conversion,
// parenthood match) and the reporting queries built on stored receipts.
type Receipts struct {
	store     port.ReceiptStore
	families  port.HouseholdStore
	converter *fx.Converter
	matcher   *match.Matcher
	detector  *dedup.Detector
	calc      *tax.Calculator
	bulkhead  *resilience.Bulkhead
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewReceipts creates the receipts service with all dependencies injected.
func NewReceipts(
	store port.ReceiptStore,
	families port.HouseholdStore,
	converter *fx.Converter,
	matcher *match.Matcher,
	detector *dedup.Detector,
	calc *tax.Calculator,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Receipts {
	return &Receipts{
		store:     store,
		families:  families,
		converter: converter,
		matcher:   matcher,
		detector:  detector,
		calc:      calc,
		bulkhead:  bulkhead,
		metrics:   metrics,
		logger:    logger,
	}
}

// Submit runs one extracted record through the full pipeline. When the
// duplicate gate fires the receipt is returned unstored with the verdict
// attached; the caller decides how to present the refusal.
func (s *Receipts) Submit(ctx context.Context, householdID string, fiscalYear int, in domain.ExtractedReceipt) (*SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "Receipts.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("household.id", householdID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("submit_receipt", time.Since(start))
	}()

	if householdID == "" {
		return nil, &domain.ErrValidation{Field: "household_id", Message: "must not be empty"}
	}

	rec := s.newReceipt(householdID, fiscalYear, in)

	existing, err := s.store.ListReceipts(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if dup := s.detector.Check(rec, existing); dup.IsDuplicate {
		s.metrics.IncrDuplicateDetected()
		s.logger.Info("duplicate receipt refused",
			zap.String("household_id", householdID),
			zap.Float64("confidence", dup.Confidence),
			zap.Strings("reasons", dup.Reasons))
		return &SubmitResult{Receipt: rec, Duplicate: &dup}, nil
	}

	s.enrich(ctx, rec)

	fam, err := s.loadFamily(ctx, householdID)
	if err != nil {
		return nil, err
	}
	s.classify(rec, fam)

	if err := s.store.SaveReceipt(ctx, rec); err != nil {
		return nil, err
	}
	s.metrics.IncrReceiptProcessed(rec.Status)
	return &SubmitResult{Receipt: rec}, nil
}

// SubmitBatch processes one multi-receipt upload. The duplicate gate runs
// against the store and against earlier non-duplicate items of the same
// upload; the surviving receipts are converted concurrently under the
// bulkhead, then matched and stored in upload order. Result i refers to
// input i.
func (s *Receipts) SubmitBatch(ctx context.Context, householdID string, fiscalYear int, in []domain.ExtractedReceipt) ([]*SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "Receipts.SubmitBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("household.id", householdID),
		attribute.Int("batch.size", len(in)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("submit_batch", time.Since(start))
	}()

	if householdID == "" {
		return nil, &domain.ErrValidation{Field: "household_id", Message: "must not be empty"}
	}
	if len(in) == 0 {
		return nil, &domain.ErrValidation{Field: "receipts", Message: "batch must not be empty"}
	}

	existing, err := s.store.ListReceipts(ctx, householdID)
	if err != nil {
		return nil, err
	}
	fam, err := s.loadFamily(ctx, householdID)
	if err != nil {
		return nil, err
	}

	recs := make([]*domain.Receipt, len(in))
	for i := range in {
		recs[i] = s.newReceipt(householdID, fiscalYear, in[i])
	}

	results := make([]*SubmitResult, len(in))
	candidates := existing
	var kept []int
	for i, rec := range recs {
		if dup := s.detector.Check(rec, candidates); dup.IsDuplicate {
			s.metrics.IncrDuplicateDetected()
			results[i] = &SubmitResult{Receipt: rec, Duplicate: &dup}
			continue
		}
		candidates = append(candidates, rec)
		kept = append(kept, i)
		results[i] = &SubmitResult{Receipt: rec}
	}

	// Conversion is the only step that may leave the process; run those
	// concurrently, capped by the bulkhead.
	g, gCtx := errgroup.WithContext(ctx)
	for _, i := range kept {
		rec := recs[i]
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer s.bulkhead.Release()
			s.enrich(gCtx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, i := range kept {
		rec := recs[i]
		s.classify(rec, fam)
		if err := s.store.SaveReceipt(ctx, rec); err != nil {
			return nil, err
		}
		s.metrics.IncrReceiptProcessed(rec.Status)
	}
	return results, nil
}

// Review resolves a receipt the matcher sent to manual review.
func (s *Receipts) Review(ctx context.Context, householdID, receiptID string, approve bool) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Receipts.Review")
	defer span.End()

	rec, err := s.store.GetReceipt(ctx, householdID, receiptID)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusNeedsReview {
		return nil, &domain.ErrInvalidState{Resource: "receipt", State: string(rec.Status), Action: "review"}
	}

	if approve {
		rec.Status = domain.StatusAccepted
	} else {
		rec.Status = domain.StatusRejected
	}
	if err := s.store.UpdateReceipt(ctx, rec); err != nil {
		return nil, err
	}
	s.metrics.IncrReceiptProcessed(rec.Status)
	s.logger.Info("receipt reviewed",
		zap.String("receipt_id", receiptID),
		zap.Bool("approved", approve))
	return rec, nil
}

// List returns the household's receipts with derived fields.
func (s *Receipts) List(ctx context.Context, householdID string) ([]*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Receipts.List")
	defer span.End()

	return s.store.ListReceipts(ctx, householdID)
}

// Beneficiaries groups the household's deductible receipts by the physical
// person they were sent to.
func (s *Receipts) Beneficiaries(ctx context.Context, householdID string) ([]domain.BeneficiaryGroup, error) {
	ctx, span := tracer.Start(ctx, "Receipts.Beneficiaries")
	defer span.End()

	rs, err := s.store.ListReceipts(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return grouper.Group(deductible(rs, 0)), nil
}

// Summary aggregates the household's deductible receipts for a fiscal year
// and evaluates the tax outcome against the given fiscal profile. The gain
// estimate is attached only when every eligibility gate passes.
func (s *Receipts) Summary(ctx context.Context, householdID string, fiscalYear int, profile domain.FiscalProfile, category domain.ExpenseCategory) (*domain.DeductionSummary, error) {
	ctx, span := tracer.Start(ctx, "Receipts.Summary")
	defer span.End()
	span.SetAttributes(attribute.String("household.id", householdID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("summary", time.Since(start))
	}()

	rs, err := s.store.ListReceipts(ctx, householdID)
	if err != nil {
		return nil, err
	}
	kept := deductible(rs, fiscalYear)

	var total, fees float64
	relation := domain.RelationNone
	for _, r := range kept {
		total += r.DeductibleAmount()
		fees += r.DeductibleFee()
		if relation == domain.RelationNone && r.MatchedRelation != domain.RelationNone {
			relation = r.MatchedRelation
		}
	}

	if category == "" {
		category = domain.CategoryAlimentary
	}
	elig := s.calc.CheckEligibility(profile, relation, category)

	summary := &domain.DeductionSummary{
		HouseholdID:   householdID,
		FiscalYear:    fiscalYear,
		TotalSentEUR:  total,
		TotalFeesEUR:  fees,
		ReceiptCount:  len(kept),
		Beneficiaries: grouper.Group(kept),
		Eligibility:   elig,
	}
	if elig.Eligible && total > 0 {
		est := s.calc.ComputeGainAnnual(total, profile.AnnualIncome, profile.Married, profile.ChildrenCount)
		summary.Estimate = &est
	}
	return summary, nil
}

// newReceipt builds the persistent record from one extracted payload.
func (s *Receipts) newReceipt(householdID string, fiscalYear int, in domain.ExtractedReceipt) *domain.Receipt {
	if fiscalYear == 0 {
		fiscalYear = time.Now().Year()
	}
	return &domain.Receipt{
		ID:              uuid.NewString(),
		HouseholdID:     householdID,
		FiscalYear:      fiscalYear,
		SenderName:      strings.TrimSpace(in.SenderName),
		ReceiverName:    strings.TrimSpace(in.ReceiverName),
		Amount:          in.Amount,
		CurrencyCode:    strings.TrimSpace(in.CurrencyCode),
		FeeAmount:       in.FeeAmount,
		TransferDate:    parseDate(in.TransferDate),
		ProviderName:    strings.TrimSpace(in.ProviderName),
		OCRConfidence:   in.OCRConfidence,
		MatchedRelation: domain.RelationNone,
		Status:          domain.StatusPending,
		CreatedAt:       time.Now(),
	}
}

// enrich resolves the reference-currency amounts. The converter never fails;
// it degrades through its fallback chain instead.
func (s *Receipts) enrich(ctx context.Context, r *domain.Receipt) {
	if r.Amount == nil {
		return
	}
	conv := s.converter.Convert(ctx, *r.Amount, r.CurrencyCode)
	r.AmountEUR = &conv.AmountEUR
	r.ExchangeRate = &conv.Rate

	if r.FeeAmount != nil {
		feeConv := s.converter.Convert(ctx, *r.FeeAmount, r.CurrencyCode)
		r.FeeAmountEUR = &feeConv.AmountEUR
	}
}

// classify matches the recipient against the declared family and sets the
// validation status. With no declaration yet the receipt stays pending; an
// unreadable recipient name goes to manual review rather than auto-reject.
func (s *Receipts) classify(rec *domain.Receipt, fam *domain.FamilyDeclaration) {
	if fam.IsEmpty() {
		rec.Status = domain.StatusPending
		s.metrics.IncrMatchOutcome("no_declaration")
		return
	}
	if match.Normalize(rec.ReceiverName) == "" {
		rec.Status = domain.StatusNeedsReview
		s.metrics.IncrMatchOutcome("unreadable_name")
		return
	}

	res := s.matcher.Match(rec.ReceiverName, fam)
	rec.MatchedRelation = res.Relation
	rec.MatchedName = res.MatchedName
	rec.MatchConfidence = res.Confidence

	switch {
	case res.IsMatch:
		rec.Status = domain.StatusAutoAccepted
	case res.RequiresManualReview:
		rec.Status = domain.StatusNeedsReview
	default:
		rec.Status = domain.StatusRejected
	}
	s.metrics.IncrMatchOutcome(string(rec.Status))
}

// loadFamily returns nil (not an error) when the household has no declaration
// yet.
func (s *Receipts) loadFamily(ctx context.Context, householdID string) (*domain.FamilyDeclaration, error) {
	fam, err := s.families.GetFamily(ctx, householdID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	return fam, nil
}

// deductible keeps the receipts that count toward the deduction: matcher
// auto-accepts plus manual approvals, optionally restricted to one fiscal
// year.
func deductible(rs []*domain.Receipt, fiscalYear int) []*domain.Receipt {
	kept := make([]*domain.Receipt, 0, len(rs))
	for _, r := range rs {
		if r.Status != domain.StatusAutoAccepted && r.Status != domain.StatusAccepted {
			continue
		}
		if fiscalYear != 0 && r.FiscalYear != fiscalYear {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// parseDate tries the known OCR layouts and gives up quietly: an unparseable
// date is missing evidence, not an error.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
