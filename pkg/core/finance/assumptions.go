package finance

import "fmt"

// =============================================================================
// ENGINE ASSUMPTIONS
// Growth and exit parameters used by the projection, IRR and exit analysis.
// They are engine configuration, not deal inputs: a caller that wants
// different market assumptions passes its own Assumptions to ComputeWith.
// =============================================================================

// Assumptions carries the forward-looking parameters of the engine.
// All rates are fractions per year (0.03 == 3%).
type Assumptions struct {
	RentGrowthRate    float64 `json:"rent_growth_rate" yaml:"rent_growth_rate"`
	ExpenseGrowthRate float64 `json:"expense_growth_rate" yaml:"expense_growth_rate"`
	AppreciationRate  float64 `json:"appreciation_rate" yaml:"appreciation_rate"`
	HoldPeriodYears   int     `json:"hold_period_years" yaml:"hold_period_years"`

	// Transaction friction, used by the exit analysis only. The projection
	// and IRR ignore both so the headline IRR stays comparable across deals
	// with different transaction-cost profiles.
	ClosingCostRate float64 `json:"closing_cost_rate" yaml:"closing_cost_rate"`
	SellingCostRate float64 `json:"selling_cost_rate" yaml:"selling_cost_rate"`
}

// DefaultAssumptions returns the standard parameter set: 3% rent growth,
// 2% expense growth, 3% appreciation over a 5-year hold, with 3% closing
// and 6% selling costs.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		RentGrowthRate:    0.03,
		ExpenseGrowthRate: 0.02,
		AppreciationRate:  0.03,
		HoldPeriodYears:   5,
		ClosingCostRate:   0.03,
		SellingCostRate:   0.06,
	}
}

// Validate rejects assumption sets the projection math cannot handle.
func (a Assumptions) Validate() error {
	if a.HoldPeriodYears <= 0 {
		return fmt.Errorf("hold_period_years must be positive, got %d", a.HoldPeriodYears)
	}
	if a.RentGrowthRate <= -1 || a.ExpenseGrowthRate <= -1 || a.AppreciationRate <= -1 {
		return fmt.Errorf("growth rates must be greater than -100%%")
	}
	if a.ClosingCostRate < 0 || a.SellingCostRate < 0 {
		return fmt.Errorf("transaction cost rates must be non-negative")
	}
	return nil
}
