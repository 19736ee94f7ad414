package tax

import "github.com/kbarry/remitax-go/internal/domain"

// CheckEligibility evaluates the independent boolean gates that must pass
// before a computed gain is displayed as a real gain:
//
//   - the household must be imposable: a taxable per-part quotient above the
//     zero-rate band;
//   - the beneficiary must be in the legally deductible set (ascendants and
//     descendants — siblings and other collaterals are excluded);
//   - the claimed expense must be alimentary support, not investment or
//     savings.
//
// The gates are reported individually so the caller can explain a refusal.
func (c *Calculator) CheckEligibility(profile domain.FiscalProfile, relation domain.Relation, category domain.ExpenseCategory) domain.Eligibility {
	e := domain.Eligibility{}

	parts := FiscalParts(profile.Married, profile.ChildrenCount)
	quotient := profile.AnnualIncome * (1 - earnedIncomeAllowance) / parts
	e.NotImposable = quotient <= c.schedule.ZeroRateCeiling()

	switch relation {
	case domain.RelationFather, domain.RelationMother, domain.RelationChild:
	default:
		e.IneligibleRelation = true
	}

	e.IneligibleExpense = category != domain.CategoryAlimentary

	e.Eligible = !e.NotImposable && !e.IneligibleRelation && !e.IneligibleExpense
	return e
}
