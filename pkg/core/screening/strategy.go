// Package screening turns a computed metrics bundle into an investment
// screening: a risk rating, a strategy alignment score, triggered decision
// points and a recommendation. Everything is threshold arithmetic over
// numbers the finance package already produced; no market data, no model
// calls, no I/O.
package screening

import (
	"fmt"
	"strings"
)

// Strategy selects the threshold profile a deal is screened against.
type Strategy string

const (
	StrategyPassiveIncome    Strategy = "Passive Income"
	StrategyAggressiveGrowth Strategy = "Aggressive Growth"
	StrategyFixAndFlip       Strategy = "Fix & Flip"
)

// ParseStrategy resolves a user-supplied strategy name to its canonical
// form. Matching ignores case, so "passive income" selects the same profile
// as "Passive Income".
func ParseStrategy(s string) (Strategy, error) {
	for _, known := range []Strategy{StrategyPassiveIncome, StrategyAggressiveGrowth, StrategyFixAndFlip} {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("strategy must be one of %q, %q, %q; got %q",
		StrategyPassiveIncome, StrategyAggressiveGrowth, StrategyFixAndFlip, s)
}

// StrategyProfile carries the target thresholds for one strategy. Rates are
// fractions; vacancy is a percent; holds are years. A zero value means the
// threshold does not apply to the strategy.
type StrategyProfile struct {
	MinCashOnCash      float64 `json:"min_cash_on_cash,omitempty"`
	MinCapRate         float64 `json:"min_cap_rate,omitempty"`
	MaxVacancyPercent  float64 `json:"max_vacancy_percent,omitempty"`
	MinIRR             float64 `json:"min_irr,omitempty"`
	MinAppreciation    float64 `json:"min_appreciation,omitempty"`
	MinProfitMargin    float64 `json:"min_profit_margin,omitempty"`
	PreferredHoldYears int     `json:"preferred_hold_years,omitempty"`
	MaxHoldYears       int     `json:"max_hold_years,omitempty"`
	Focus              string  `json:"focus"`
	RiskTolerance      string  `json:"risk_tolerance"`
}

// Profile returns the threshold set for the strategy.
func (s Strategy) Profile() StrategyProfile {
	switch s {
	case StrategyPassiveIncome:
		return StrategyProfile{
			MinCashOnCash:      0.08,
			MinCapRate:         0.06,
			MaxVacancyPercent:  8.0,
			PreferredHoldYears: 10,
			Focus:              "rental_income",
			RiskTolerance:      "low",
		}
	case StrategyAggressiveGrowth:
		return StrategyProfile{
			MinIRR:          0.15,
			MinAppreciation: 0.05,
			MaxHoldYears:    5,
			Focus:           "appreciation",
			RiskTolerance:   "high",
		}
	case StrategyFixAndFlip:
		return StrategyProfile{
			MinProfitMargin: 0.20,
			MaxHoldYears:    1,
			Focus:           "renovation_profit",
			RiskTolerance:   "medium",
		}
	}
	return StrategyProfile{}
}
