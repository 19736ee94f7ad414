package domain

// ExpenseCategory classifies what the remitted money was claimed to cover.
// Only alimentary (subsistence) support is legally deductible.
type ExpenseCategory string

const (
	CategoryAlimentary ExpenseCategory = "alimentary"
	CategoryInvestment ExpenseCategory = "investment"
	CategorySavings    ExpenseCategory = "savings"
)

// FiscalProfile is the household income/marital/dependents configuration used
// for the tax computation. Fiscal parts are always recomputed from it, never
// stored as editable state.
type FiscalProfile struct {
	AnnualIncome  float64 `json:"annual_income"`
	Married       bool    `json:"married"`
	ChildrenCount int     `json:"children_count"`
}

// GainEstimate is the outcome of the progressive-bracket deduction math.
type GainEstimate struct {
	Parts           float64 `json:"parts"`
	AnnualDeduction float64 `json:"annual_deduction"`
	TaxBefore       float64 `json:"tax_before"`
	TaxAfter        float64 `json:"tax_after"`
	MarginalRate    float64 `json:"marginal_rate"`
	Gain            float64 `json:"gain"`
}

// Eligibility reports the independent gates checked before a computed gain is
// trusted for display as a real gain.
type Eligibility struct {
	Eligible           bool `json:"eligible"`
	NotImposable       bool `json:"not_imposable"`
	IneligibleRelation bool `json:"ineligible_relation"`
	IneligibleExpense  bool `json:"ineligible_expense"`
}

// DeductionSummary is the household-level aggregate returned for reporting:
// per-beneficiary rollup plus the fiscal outcome of the deductible total.
type DeductionSummary struct {
	HouseholdID   string             `json:"household_id"`
	FiscalYear    int                `json:"fiscal_year"`
	TotalSentEUR  float64            `json:"total_sent_eur"`
	TotalFeesEUR  float64            `json:"total_fees_eur"`
	ReceiptCount  int                `json:"receipt_count"`
	Beneficiaries []BeneficiaryGroup `json:"beneficiaries"`
	Eligibility   Eligibility        `json:"eligibility"`
	Estimate      *GainEstimate      `json:"estimate,omitempty"`
}
