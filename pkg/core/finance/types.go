package finance

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// INPUT MODEL
// =============================================================================

// PropertyDeal describes a single rental-property purchase under evaluation.
// A deal is immutable for the duration of one calculation call; it carries no
// derived state. Construct it through ParseDeal, or populate the fields
// directly and call Validate before handing it to Compute.
type PropertyDeal struct {
	PurchasePrice           float64 `json:"purchase_price"`            // USD, > 0
	MonthlyRent             float64 `json:"monthly_rent"`              // USD per month, >= 0
	AnnualOperatingExpenses float64 `json:"annual_operating_expenses"` // USD per year, >= 0
	DownPaymentPercent      float64 `json:"down_payment_percent"`      // 0..100
	InterestRatePercent     float64 `json:"interest_rate_percent"`     // annual nominal, >= 0
	LoanTermYears           int     `json:"loan_term_years"`           // 1..50
}

// AnnualRent returns the gross scheduled rent for a full year.
func (d PropertyDeal) AnnualRent() float64 {
	return d.MonthlyRent * 12
}

// =============================================================================
// SOFT SENTINELS
// Some metrics are undefined for certain deal shapes (all-cash purchases,
// zero-rent properties, cash-flow series with no sign change). Those are not
// errors: they serialize as an explicit sentinel string so a consumer can
// tell "computed to zero" apart from "undefined for this deal".
// =============================================================================

const (
	SentinelNotApplicable = "N/A"
	SentinelNotComputable = "not computable"
)

// NullableMetric holds a metric value that may be undefined. When Valid is
// false the metric marshals to its sentinel string instead of a number.
type NullableMetric struct {
	Value    float64
	Valid    bool
	Sentinel string
}

// Defined wraps a computed numeric value.
func Defined(v float64) NullableMetric {
	return NullableMetric{Value: v, Valid: true}
}

// NotApplicable marks a metric as undefined for the deal shape.
func NotApplicable() NullableMetric {
	return NullableMetric{Sentinel: SentinelNotApplicable}
}

// NotComputable marks a metric whose iterative solution did not converge
// within bounds. Used by the IRR estimator.
func NotComputable() NullableMetric {
	return NullableMetric{Sentinel: SentinelNotComputable}
}

func (m NullableMetric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		s := m.Sentinel
		if s == "" {
			s = SentinelNotApplicable
		}
		return json.Marshal(s)
	}
	return json.Marshal(m.Value)
}

func (m *NullableMetric) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*m = Defined(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("metric must be a number or a sentinel string: %s", string(data))
	}
	*m = NullableMetric{Sentinel: s}
	return nil
}

// String renders the value for logs and plain-text reports. Formatting for
// presentation (rounding, percent conversion) belongs to the consumer.
func (m NullableMetric) String() string {
	if !m.Valid {
		if m.Sentinel == "" {
			return SentinelNotApplicable
		}
		return m.Sentinel
	}
	return fmt.Sprintf("%g", m.Value)
}

// =============================================================================
// OUTPUT MODEL
// =============================================================================

// Unit identifies how a metric value is denominated.
type Unit string

const (
	UnitUSD      Unit = "usd"      // currency amount
	UnitFraction Unit = "fraction" // e.g. 0.0564 == 5.64%
	UnitRatio    Unit = "ratio"    // dimensionless coverage multiple
	UnitYears    Unit = "years"
)

// YearProjection is one row of the forward projection.
type YearProjection struct {
	Year               int     `json:"year"`
	GrossRent          float64 `json:"gross_rent"`         // annual, grown
	OperatingExpenses  float64 `json:"operating_expenses"` // annual, grown
	NOI                float64 `json:"noi"`
	CashFlow           float64 `json:"cash_flow"`
	CumulativeCashFlow float64 `json:"cumulative_cash_flow"`
}

// ScenarioResult is one row of the sensitivity table. Rows keep their
// declaration order so output is stable and diffable across runs.
type ScenarioResult struct {
	Scenario       string  `json:"scenario"`
	CapRate        float64 `json:"cap_rate"`
	AnnualCashFlow float64 `json:"annual_cash_flow"`
}

// MetricsResult is the full bundle computed from one PropertyDeal. It is a
// pure function of the deal and the engine assumptions: produced fresh per
// call, never mutated afterwards, never cached. Values are raw and unrounded;
// percentages are fractions.
type MetricsResult struct {
	NOI                float64        `json:"noi"`
	CapRate            float64        `json:"cap_rate"`
	DownPayment        float64        `json:"down_payment"`
	LoanAmount         float64        `json:"loan_amount"`
	MonthlyDebtService float64        `json:"monthly_debt_service"`
	AnnualDebtService  float64        `json:"annual_debt_service"`
	AnnualCashFlow     float64        `json:"annual_cash_flow"`
	MonthlyCashFlow    float64        `json:"monthly_cash_flow"`
	CashOnCashReturn   NullableMetric `json:"cash_on_cash_return"`
	DSCR               NullableMetric `json:"dscr"`
	BreakEvenOccupancy NullableMetric `json:"break_even_occupancy"`

	Projection   []YearProjection `json:"projection"`
	EstimatedIRR NullableMetric   `json:"estimated_irr"`
	Sensitivity  []ScenarioResult `json:"sensitivity"`

	// Flags are human-readable observations derived from the metrics alone,
	// e.g. "cash-flow positive". Strategy-relative judgements live in the
	// screening layer, not here.
	Flags []string `json:"flags"`
}

// Units maps each scalar field of MetricsResult (by JSON name) to its unit,
// so presentation layers never have to guess whether a number is a currency
// amount, a fraction, or a coverage ratio.
func (r *MetricsResult) Units() map[string]Unit {
	return map[string]Unit{
		"noi":                  UnitUSD,
		"cap_rate":             UnitFraction,
		"down_payment":         UnitUSD,
		"loan_amount":          UnitUSD,
		"monthly_debt_service": UnitUSD,
		"annual_debt_service":  UnitUSD,
		"annual_cash_flow":     UnitUSD,
		"monthly_cash_flow":    UnitUSD,
		"cash_on_cash_return":  UnitFraction,
		"dscr":                 UnitRatio,
		"break_even_occupancy": UnitFraction,
		"estimated_irr":        UnitFraction,
	}
}
