// Package tax computes fiscal parts, progressive-bracket income tax, and the
// monetary gain of the remittance deduction for a household.
package tax

// Band is one slice of the progressive schedule. Floor is the inclusive
// lower bound of the per-part quotient; Rate applies to income above it up to
// the next band's floor.
type Band struct {
	Floor float64 `json:"floor"`
	Rate  float64 `json:"rate"`
}

// Schedule is the full bracket table, ascending by floor, starting with the
// zero-rate band. Bracket boundaries and rates are configuration, not logic.
type Schedule []Band

// DefaultSchedule returns the 2024 reference schedule.
func DefaultSchedule() Schedule {
	return Schedule{
		{Floor: 0, Rate: 0},
		{Floor: 11_294, Rate: 0.11},
		{Floor: 28_797, Rate: 0.30},
		{Floor: 82_341, Rate: 0.41},
		{Floor: 177_106, Rate: 0.45},
	}
}

// MarginalRate returns the rate of the band the quotient falls into.
func (s Schedule) MarginalRate(quotient float64) float64 {
	rate := 0.0
	for _, b := range s {
		if quotient >= b.Floor {
			rate = b.Rate
		}
	}
	return rate
}

// ZeroRateCeiling returns the top of the zero-rate band: the quotient at or
// below which the household is not imposable.
func (s Schedule) ZeroRateCeiling() float64 {
	for _, b := range s {
		if b.Rate > 0 {
			return b.Floor
		}
	}
	return 0
}

// taxOn integrates the schedule over one per-part quotient.
func (s Schedule) taxOn(quotient float64) float64 {
	if quotient <= 0 {
		return 0
	}
	total := 0.0
	for i, b := range s {
		if quotient <= b.Floor {
			break
		}
		upper := quotient
		if i+1 < len(s) && upper > s[i+1].Floor {
			upper = s[i+1].Floor
		}
		total += (upper - b.Floor) * b.Rate
	}
	return total
}
