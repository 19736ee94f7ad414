package tax

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/kbarry/remitax-go/internal/domain"
)

// earnedIncomeAllowance is the standard 10% allowance applied to declared
// income before the bracket integral.
const earnedIncomeAllowance = 0.10

// Calculator evaluates the deduction math against one bracket schedule.
type Calculator struct {
	schedule Schedule
}

// NewCalculator creates a calculator for the given schedule.
func NewCalculator(s Schedule) *Calculator {
	return &Calculator{schedule: s}
}

// FiscalParts is the household-size divisor: 2 parts married-or-equivalent,
// 1 otherwise; +0.5 for one child, +1 total for two; the third and each
// subsequent child add a full part each.
func FiscalParts(married bool, children int) float64 {
	parts := 1.0
	if married {
		parts = 2.0
	}
	switch {
	case children <= 0:
	case children == 1:
		parts += 0.5
	default:
		parts += 1 + float64(children-2)
	}
	return parts
}

// EstimateTax computes the progressive-bracket tax for the given income and
// fiscal parts. Income driven to zero or below yields zero tax, never a
// negative amount.
func (c *Calculator) EstimateTax(income, parts float64) float64 {
	if income <= 0 || parts <= 0 {
		return 0
	}
	taxable := income * (1 - earnedIncomeAllowance)
	perPart := c.schedule.taxOn(taxable / parts)
	tax := perPart * parts
	if tax < 0 {
		return 0
	}
	return tax
}

// MarginalRate returns the bracket rate applicable to the household's top
// slice of income: the band of the raw per-part quotient, not the effective
// average rate.
func (c *Calculator) MarginalRate(income, parts float64) float64 {
	if income <= 0 || parts <= 0 {
		return 0
	}
	return c.schedule.MarginalRate(income / parts)
}

// ComputeGain estimates the yearly tax saved by deducting monthlySent every
// month of the year.
func (c *Calculator) ComputeGain(monthlySent, annualIncome float64, married bool, children int) domain.GainEstimate {
	return c.ComputeGainAnnual(monthlySent*12, annualIncome, married, children)
}

// ComputeGainAnnual is ComputeGain with an already-annualized deduction,
// used when the aggregate comes from actual receipts instead of a monthly
// projection. The gain is the exact bracket-integral difference, rounded to
// whole units; it is not clamped, so an inverted schedule would surface as a
// negative gain in tests rather than be hidden.
func (c *Calculator) ComputeGainAnnual(annualDeduction, annualIncome float64, married bool, children int) domain.GainEstimate {
	parts := FiscalParts(married, children)
	taxBefore := c.EstimateTax(annualIncome, parts)
	taxAfter := c.EstimateTax(math.Max(0, annualIncome-annualDeduction), parts)

	gain := decimal.NewFromFloat(taxBefore).
		Sub(decimal.NewFromFloat(taxAfter)).
		Round(0).
		InexactFloat64()

	return domain.GainEstimate{
		Parts:           parts,
		AnnualDeduction: annualDeduction,
		TaxBefore:       taxBefore,
		TaxAfter:        taxAfter,
		MarginalRate:    c.MarginalRate(annualIncome, parts),
		Gain:            gain,
	}
}
