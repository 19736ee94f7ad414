package domain

import "time"

// ValidationStatus is the three-way-plus-lifecycle classification of how
// confidently a receipt's recipient was matched to a declared family member.
type ValidationStatus string

const (
	StatusPending      ValidationStatus = "pending"
	StatusAutoAccepted ValidationStatus = "auto_accepted"
	StatusNeedsReview  ValidationStatus = "needs_review"
	StatusAccepted     ValidationStatus = "accepted" // manually approved after review
	StatusRejected     ValidationStatus = "rejected"
)

// Relation identifies which declared family member a receipt was matched to.
type Relation string

const (
	RelationNone   Relation = "none"
	RelationFather Relation = "father"
	RelationMother Relation = "mother"
	RelationChild  Relation = "child"
)

// ExtractedReceipt is the record supplied by the OCR collaborator.
// Every field is optional: extraction may fail per-field and the engine
// must degrade gracefully rather than reject the submission.
type ExtractedReceipt struct {
	SenderName    string   `json:"sender_name,omitempty"`
	ReceiverName  string   `json:"receiver_name,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	CurrencyCode  string   `json:"currency_code,omitempty"`
	FeeAmount     *float64 `json:"fee_amount,omitempty"`
	TransferDate  string   `json:"transfer_date,omitempty"`
	ProviderName  string   `json:"provider_name,omitempty"`
	OCRConfidence *float64 `json:"ocr_confidence,omitempty"`
}

// Receipt is one money-transfer proof with its extracted and derived fields.
//
// AmountEUR and ExchangeRate are always computed together: both set or both
// nil, never one without the other.
type Receipt struct {
	ID          string `json:"id"`
	HouseholdID string `json:"household_id"`
	FiscalYear  int    `json:"fiscal_year"`

	// Extracted fields (nullable — OCR may fail per-field).
	SenderName    string     `json:"sender_name,omitempty"`
	ReceiverName  string     `json:"receiver_name,omitempty"`
	Amount        *float64   `json:"amount,omitempty"`
	CurrencyCode  string     `json:"currency_code,omitempty"`
	FeeAmount     *float64   `json:"fee_amount,omitempty"`
	TransferDate  *time.Time `json:"transfer_date,omitempty"`
	ProviderName  string     `json:"provider_name,omitempty"`
	OCRConfidence *float64   `json:"ocr_confidence,omitempty"`

	// Derived fields.
	AmountEUR       *float64         `json:"amount_eur,omitempty"`
	FeeAmountEUR    *float64         `json:"fee_amount_eur,omitempty"`
	ExchangeRate    *float64         `json:"exchange_rate,omitempty"`
	MatchedRelation Relation         `json:"matched_relation"`
	MatchedName     string           `json:"matched_name,omitempty"`
	MatchConfidence float64          `json:"match_confidence"`
	Status          ValidationStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

// DeductibleAmount returns the reference-currency amount when conversion ran,
// falling back to the raw amount otherwise. Zero when no amount was extracted.
func (r *Receipt) DeductibleAmount() float64 {
	if r.AmountEUR != nil {
		return *r.AmountEUR
	}
	if r.Amount != nil {
		return *r.Amount
	}
	return 0
}

// DeductibleFee mirrors DeductibleAmount for the transfer fee.
func (r *Receipt) DeductibleFee() float64 {
	if r.FeeAmountEUR != nil {
		return *r.FeeAmountEUR
	}
	if r.FeeAmount != nil {
		return *r.FeeAmount
	}
	return 0
}
