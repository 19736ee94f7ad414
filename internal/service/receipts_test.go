package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/dedup"
	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/fx"
	"github.com/kbarry/remitax-go/internal/infra/cache"
	"github.com/kbarry/remitax-go/internal/infra/observability"
	"github.com/kbarry/remitax-go/internal/infra/resilience"
	"github.com/kbarry/remitax-go/internal/infra/store"
	"github.com/kbarry/remitax-go/internal/match"
	"github.com/kbarry/remitax-go/internal/service"
	"github.com/kbarry/remitax-go/internal/tax"
)

type staticFetcher struct {
	rates map[string]float64
}

func (f *staticFetcher) FetchRates(_ context.Context, base string) (domain.RateTable, error) {
	if f.rates == nil {
		return domain.RateTable{}, errors.New("rate source down")
	}
	return domain.RateTable{Base: base, Rates: f.rates, FetchedAt: time.Now()}, nil
}

func f64(v float64) *float64 { return &v }

func newEngine(t *testing.T, rates map[string]float64) (*service.Receipts, *service.Family, *store.Memory) {
	t.Helper()

	st := store.NewMemory()
	metrics := observability.NewMetrics()
	conv := fx.NewConverter(&staticFetcher{rates: rates}, cache.New[domain.RateTable](time.Hour), metrics, zap.NewNop())

	receipts := service.NewReceipts(
		st, st, conv,
		match.NewMatcher(match.DefaultConfig()),
		dedup.NewDetector(dedup.DefaultConfig()),
		tax.NewCalculator(tax.DefaultSchedule()),
		resilience.NewBulkhead(4),
		metrics,
		zap.NewNop(),
	)
	family := service.NewFamily(st, zap.NewNop())
	return receipts, family, st
}

func declareFamily(t *testing.T, family *service.Family, householdID string) {
	t.Helper()
	_, err := family.Put(context.Background(), householdID, domain.FamilyDeclaration{
		FatherName: "Mamadou Diallo",
		MotherName: "Binta Kaba",
		Children:   []domain.Child{{Name: "Fode Diallo"}},
	})
	if err != nil {
		t.Fatalf("declare family: %v", err)
	}
}

func TestSubmit_ExactMatchAutoAccepted(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	declareFamily(t, family, "hh-1")

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "MAMADOU DIALLO",
		Amount:       f64(150),
		CurrencyCode: "EUR",
		TransferDate: "2024-03-02",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Duplicate != nil {
		t.Fatal("first submission must not be a duplicate")
	}

	r := res.Receipt
	if r.Status != domain.StatusAutoAccepted {
		t.Errorf("status = %s, want auto_accepted", r.Status)
	}
	if r.MatchedRelation != domain.RelationFather {
		t.Errorf("relation = %s, want father", r.MatchedRelation)
	}
	if r.MatchConfidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", r.MatchConfidence)
	}
	if r.AmountEUR == nil || *r.AmountEUR != 150 || r.ExchangeRate == nil || *r.ExchangeRate != 1 {
		t.Errorf("conversion not applied: %+v", r)
	}
	if r.TransferDate == nil {
		t.Error("transfer date should have parsed")
	}
}

func TestSubmit_ReviewBandNeedsReview(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	declareFamily(t, family, "hh-1")

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "Binta Koro",
		Amount:       f64(80),
		CurrencyCode: "EUR",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Receipt.Status != domain.StatusNeedsReview {
		t.Errorf("status = %s, want needs_review", res.Receipt.Status)
	}
	if res.Receipt.MatchedName != "Binta Kaba" {
		t.Errorf("matched name = %q, want Binta Kaba", res.Receipt.MatchedName)
	}
}

func TestSubmit_NoMatchRejected(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	declareFamily(t, family, "hh-1")

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "Sekou Toure",
		Amount:       f64(80),
		CurrencyCode: "EUR",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Receipt.Status != domain.StatusRejected {
		t.Errorf("status = %s, want rejected", res.Receipt.Status)
	}
}

func TestSubmit_NoDeclarationStaysPending(t *testing.T) {
	receipts, _, _ := newEngine(t, nil)

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "Mamadou Diallo",
		Amount:       f64(80),
		CurrencyCode: "EUR",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Receipt.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", res.Receipt.Status)
	}
}

func TestSubmit_UnreadableNameNeedsReview(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	declareFamily(t, family, "hh-1")

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		Amount:       f64(80),
		CurrencyCode: "EUR",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Receipt.Status != domain.StatusNeedsReview {
		t.Errorf("status = %s, want needs_review for unreadable name", res.Receipt.Status)
	}
}

func TestSubmit_DuplicateRefusedAndNotStored(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	declareFamily(t, family, "hh-1")

	in := domain.ExtractedReceipt{
		ReceiverName: "Mamadou Diallo",
		Amount:       f64(150),
		CurrencyCode: "EUR",
		TransferDate: "2024-03-02",
		ProviderName: "Western Union",
	}
	if _, err := receipts.Submit(context.Background(), "hh-1", 2024, in); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, in)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if res.Duplicate == nil || !res.Duplicate.IsDuplicate {
		t.Fatal("second submission must be flagged as duplicate")
	}

	stored, err := receipts.List(context.Background(), "hh-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("duplicate must not be stored: %d receipts", len(stored))
	}
}

func TestSubmit_ForeignCurrencyConverted(t *testing.T) {
	receipts, family, _ := newEngine(t, map[string]float64{"USD": 2.0})
	declareFamily(t, family, "hh-1")

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "Mamadou Diallo",
		Amount:       f64(100),
		FeeAmount:    f64(10),
		CurrencyCode: "USD",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	r := res.Receipt
	if r.AmountEUR == nil || *r.AmountEUR != 50.00 {
		t.Errorf("amount EUR = %v, want 50.00", r.AmountEUR)
	}
	if r.FeeAmountEUR == nil || *r.FeeAmountEUR != 5.00 {
		t.Errorf("fee EUR = %v, want 5.00", r.FeeAmountEUR)
	}
	if r.ExchangeRate == nil || *r.ExchangeRate != 2.0 {
		t.Errorf("rate = %v, want 2.0", r.ExchangeRate)
	}
}

func TestSubmitBatch_IntraBatchDuplicate(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	declareFamily(t, family, "hh-1")

	batch := []domain.ExtractedReceipt{
		{ReceiverName: "Mamadou Diallo", Amount: f64(150), CurrencyCode: "EUR", TransferDate: "2024-03-02"},
		{ReceiverName: "Binta Kaba", Amount: f64(90), CurrencyCode: "EUR", TransferDate: "2024-03-05"},
		{ReceiverName: "Mamadou Diallo", Amount: f64(150), CurrencyCode: "EUR", TransferDate: "2024-03-02"},
	}
	results, err := receipts.SubmitBatch(context.Background(), "hh-1", 2024, batch)
	if err != nil {
		t.Fatalf("submit batch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Duplicate != nil || results[1].Duplicate != nil {
		t.Error("first two receipts must not be duplicates")
	}
	if results[2].Duplicate == nil {
		t.Error("third receipt duplicates the first within the same upload")
	}

	stored, _ := receipts.List(context.Background(), "hh-1")
	if len(stored) != 2 {
		t.Errorf("expected 2 stored receipts, got %d", len(stored))
	}
}

func TestSubmitBatch_Empty(t *testing.T) {
	receipts, _, _ := newEngine(t, nil)

	_, err := receipts.SubmitBatch(context.Background(), "hh-1", 2024, nil)
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReview_ApproveThenRepeatFails(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	declareFamily(t, family, "hh-1")

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "Binta Koro",
		Amount:       f64(80),
		CurrencyCode: "EUR",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	id := res.Receipt.ID

	reviewed, err := receipts.Review(context.Background(), "hh-1", id, true)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != domain.StatusAccepted {
		t.Errorf("status = %s, want accepted", reviewed.Status)
	}

	_, err = receipts.Review(context.Background(), "hh-1", id, false)
	var serr *domain.ErrInvalidState
	if !errors.As(err, &serr) {
		t.Fatalf("expected invalid-state error on second review, got %v", err)
	}
}

func TestReview_NotFound(t *testing.T) {
	receipts, _, _ := newEngine(t, nil)

	_, err := receipts.Review(context.Background(), "hh-1", "nope", true)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestBeneficiaries_MergesVariantsAcrossReviews(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	_, err := family.Put(context.Background(), "hh-1", domain.FamilyDeclaration{MotherName: "Oumou Bah"})
	if err != nil {
		t.Fatalf("declare family: %v", err)
	}

	if _, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "Oumou Bah", Amount: f64(100), CurrencyCode: "EUR", TransferDate: "2024-01-10",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "Hadja Oumou Bah", Amount: f64(50), CurrencyCode: "EUR", TransferDate: "2024-02-10",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Receipt.Status != domain.StatusNeedsReview {
		t.Fatalf("honorific variant should land in review, got %s", res.Receipt.Status)
	}
	if _, err := receipts.Review(context.Background(), "hh-1", res.Receipt.ID, true); err != nil {
		t.Fatalf("review: %v", err)
	}

	groups, err := receipts.Beneficiaries(context.Background(), "hh-1")
	if err != nil {
		t.Fatalf("beneficiaries: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 merged group, got %d", len(groups))
	}
	g := groups[0]
	if g.DisplayName != "Oumou Bah" || g.TransferCount != 2 || g.TotalAmount != 150 {
		t.Errorf("unexpected group: %+v", g)
	}
}

func TestSummary_ReferenceScenario(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	_, err := family.Put(context.Background(), "hh-1", domain.FamilyDeclaration{MotherName: "Binta Kaba"})
	if err != nil {
		t.Fatalf("declare family: %v", err)
	}

	// 200 EUR sent every month of the year.
	for m := 1; m <= 12; m++ {
		date := fmt.Sprintf("2024-%02d-15", m)
		res, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
			ReceiverName: "Binta Kaba",
			Amount:       f64(200),
			CurrencyCode: "EUR",
			TransferDate: date,
		})
		if err != nil {
			t.Fatalf("submit month %d: %v", m, err)
		}
		if res.Receipt.Status != domain.StatusAutoAccepted {
			t.Fatalf("month %d not auto-accepted: %s", m, res.Receipt.Status)
		}
	}

	profile := domain.FiscalProfile{AnnualIncome: 35_000, Married: false, ChildrenCount: 0}
	summary, err := receipts.Summary(context.Background(), "hh-1", 2024, profile, domain.CategoryAlimentary)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.TotalSentEUR != 2400 {
		t.Errorf("total = %v, want 2400", summary.TotalSentEUR)
	}
	if summary.ReceiptCount != 12 {
		t.Errorf("count = %d, want 12", summary.ReceiptCount)
	}
	if !summary.Eligibility.Eligible {
		t.Fatalf("expected eligible household: %+v", summary.Eligibility)
	}
	if summary.Estimate == nil {
		t.Fatal("expected a gain estimate")
	}
	est := summary.Estimate
	if est.Parts != 1 {
		t.Errorf("parts = %v, want 1", est.Parts)
	}
	if est.MarginalRate != 0.30 {
		t.Errorf("marginal rate = %v, want 0.30", est.MarginalRate)
	}
	if est.Gain <= 0 || est.Gain >= 2400*0.30 {
		t.Errorf("gain = %v, want within (0, 720)", est.Gain)
	}
}

func TestSummary_IneligibleCategoryHasNoEstimate(t *testing.T) {
	receipts, family, _ := newEngine(t, nil)
	_, err := family.Put(context.Background(), "hh-1", domain.FamilyDeclaration{MotherName: "Binta Kaba"})
	if err != nil {
		t.Fatalf("declare family: %v", err)
	}
	if _, err := receipts.Submit(context.Background(), "hh-1", 2024, domain.ExtractedReceipt{
		ReceiverName: "Binta Kaba", Amount: f64(200), CurrencyCode: "EUR",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	profile := domain.FiscalProfile{AnnualIncome: 35_000}
	summary, err := receipts.Summary(context.Background(), "hh-1", 2024, profile, domain.CategoryInvestment)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Eligibility.Eligible || !summary.Eligibility.IneligibleExpense {
		t.Errorf("investment transfers must fail the expense gate: %+v", summary.Eligibility)
	}
	if summary.Estimate != nil {
		t.Error("ineligible summary must not carry an estimate")
	}
}
