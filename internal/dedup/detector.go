// Package dedup decides whether a newly submitted receipt is a re-submission
// of one the household already stored, using a weighted multi-field score.
// Amount and date are hard gates; name, provider, and currency are softer
// signals because OCR extracts them less reliably.
package dedup

import (
	"fmt"
	"math"

	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/match"
)

// Config holds the scoring weights and thresholds. These are tuning
// constants: higher thresholds mean stricter detection.
type Config struct {
	AmountTolerance float64 // relative tolerance for the amount gate
	NameThreshold   float64 // similarity needed for the beneficiary bonus

	AmountWeight    float64 // credit when the amount gate passes
	DateWeight      float64 // credit when the date gate passes
	NameBonus       float64 // credit when beneficiary names are near-identical
	NamePenalty     float64 // debit when both names are readable but dissimilar
	ProviderBonus   float64 // credit for near-identical provider names
	CurrencyBonus   float64 // credit for equal currency codes
	AcceptThreshold float64 // accumulated score at or above -> duplicate
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		AmountTolerance: 0.01,
		NameThreshold:   0.85,

		AmountWeight:    0.30,
		DateWeight:      0.30,
		NameBonus:       0.25,
		NamePenalty:     0.10,
		ProviderBonus:   0.10,
		CurrencyBonus:   0.05,
		AcceptThreshold: 0.70,
	}
}

// Result is the duplicate verdict for one candidate receipt. Reasons is a
// human-readable audit trail of the signals that fired.
type Result struct {
	IsDuplicate bool            `json:"is_duplicate"`
	Matched     *domain.Receipt `json:"matched,omitempty"`
	Confidence  float64         `json:"confidence"`
	Reasons     []string        `json:"reasons,omitempty"`
}

// Detector scores new receipts against existing ones.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given weights.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Check compares the new receipt against existing receipts in their given
// order and returns the first candidate whose score crosses the acceptance
// threshold. A receipt lacking both a parsed amount and a parsed date carries
// too little evidence to judge and is never flagged.
func (d *Detector) Check(newReceipt *domain.Receipt, existing []*domain.Receipt) Result {
	if newReceipt.Amount == nil && newReceipt.TransferDate == nil {
		return Result{}
	}

	best := Result{}
	for _, cand := range existing {
		score, reasons, ok := d.score(newReceipt, cand)
		if !ok {
			continue
		}
		if score >= d.cfg.AcceptThreshold {
			return Result{IsDuplicate: true, Matched: cand, Confidence: score, Reasons: reasons}
		}
		if score > best.Confidence {
			best = Result{Confidence: score, Reasons: reasons}
		}
	}
	return best
}

// CheckBatch runs the same pairwise logic inside one upload: each receipt is
// checked against the ones submitted before it, catching duplicates that
// arrive together and so aren't in the store yet. The result at index i
// refers to batch[i].
func (d *Detector) CheckBatch(batch []*domain.Receipt) []Result {
	results := make([]Result, len(batch))
	for i := range batch {
		results[i] = d.Check(batch[i], batch[:i])
	}
	return results
}

// score evaluates one candidate. The boolean is false when a required gate
// failed or could not be determined, in which case no partial credit is
// given: on missing evidence the safe answer is "not a duplicate".
func (d *Detector) score(n, c *domain.Receipt) (float64, []string, bool) {
	if !amountsEqual(n.Amount, c.Amount, d.cfg.AmountTolerance) {
		return 0, nil, false
	}
	if !datesEqual(n, c) {
		return 0, nil, false
	}

	score := d.cfg.AmountWeight + d.cfg.DateWeight
	reasons := []string{"same amount", "same date"}

	if n.ReceiverName != "" && c.ReceiverName != "" {
		sim := match.Similarity(n.ReceiverName, c.ReceiverName)
		if sim >= d.cfg.NameThreshold {
			score += d.cfg.NameBonus
			reasons = append(reasons, fmt.Sprintf("same beneficiary (%.0f%% similar)", sim*100))
		} else {
			// Names present but dissimilar: weak counter-evidence, not a
			// disqualifier, since OCR name extraction is noisy.
			score -= d.cfg.NamePenalty
		}
	}

	if n.ProviderName != "" && c.ProviderName != "" &&
		match.Similarity(n.ProviderName, c.ProviderName) >= d.cfg.NameThreshold {
		score += d.cfg.ProviderBonus
		reasons = append(reasons, "same provider")
	}

	if n.CurrencyCode != "" && c.CurrencyCode != "" &&
		match.Normalize(n.CurrencyCode) == match.Normalize(c.CurrencyCode) {
		score += d.cfg.CurrencyBonus
		reasons = append(reasons, "same currency")
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score, reasons, true
}

// amountsEqual is the required amount gate: both values present and equal
// within the relative tolerance.
func amountsEqual(a, b *float64, tolerance float64) bool {
	if a == nil || b == nil {
		return false
	}
	diff := math.Abs(*a - *b)
	ref := math.Max(math.Abs(*a), math.Abs(*b))
	if ref == 0 {
		return diff == 0
	}
	return diff/ref <= tolerance
}

// datesEqual is the required date gate: both dates present and on the same
// calendar day after normalization to UTC.
func datesEqual(n, c *domain.Receipt) bool {
	if n.TransferDate == nil || c.TransferDate == nil {
		return false
	}
	ny, nm, nd := n.TransferDate.UTC().Date()
	cy, cm, cd := c.TransferDate.UTC().Date()
	return ny == cy && nm == cm && nd == cd
}
