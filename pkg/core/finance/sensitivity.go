package finance

// =============================================================================
// SENSITIVITY TABLE
// =============================================================================

// Scenario labels, in the order the table reports them.
const (
	ScenarioRentDown10  = "rent -10%"
	ScenarioRentUp10    = "rent +10%"
	ScenarioExpenseDown = "expenses -10%"
	ScenarioExpenseUp   = "expenses +10%"
	ScenarioRateDown1   = "interest rate -1pt"
	ScenarioRateUp1     = "interest rate +1pt"
)

// runSensitivity recomputes cap rate and annual cash flow under six single
// variable perturbations of the deal. Each scenario starts from the original
// deal, moves exactly one input, and runs the same formulas as the headline
// metrics. The rate-down scenario floors at 0% rather than going negative.
func runSensitivity(d PropertyDeal) []ScenarioResult {
	scenarios := []struct {
		name    string
		perturb func(PropertyDeal) PropertyDeal
	}{
		{ScenarioRentDown10, func(p PropertyDeal) PropertyDeal {
			p.MonthlyRent *= 0.90
			return p
		}},
		{ScenarioRentUp10, func(p PropertyDeal) PropertyDeal {
			p.MonthlyRent *= 1.10
			return p
		}},
		{ScenarioExpenseDown, func(p PropertyDeal) PropertyDeal {
			p.AnnualOperatingExpenses *= 0.90
			return p
		}},
		{ScenarioExpenseUp, func(p PropertyDeal) PropertyDeal {
			p.AnnualOperatingExpenses *= 1.10
			return p
		}},
		{ScenarioRateDown1, func(p PropertyDeal) PropertyDeal {
			p.InterestRatePercent -= 1
			if p.InterestRatePercent < 0 {
				p.InterestRatePercent = 0
			}
			return p
		}},
		{ScenarioRateUp1, func(p PropertyDeal) PropertyDeal {
			p.InterestRatePercent += 1
			return p
		}},
	}

	results := make([]ScenarioResult, 0, len(scenarios))
	for _, s := range scenarios {
		core := computeCore(s.perturb(d))
		results = append(results, ScenarioResult{
			Scenario:       s.name,
			CapRate:        core.capRate,
			AnnualCashFlow: core.annualCashFlow,
		})
	}
	return results
}
