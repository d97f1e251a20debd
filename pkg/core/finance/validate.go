package finance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// INPUT VALIDATION
// Validation runs once at the boundary. Everything past Validate may assume
// the constraints hold; the calculators keep only a cheap guard against
// being called with an unvalidated deal.
// =============================================================================

// DefaultLoanTermYears applies when a deal omits the loan term.
const DefaultLoanTermYears = 30

// MaxLoanTermYears is the upper bound accepted for amortization terms.
const MaxLoanTermYears = 50

// ValidationError reports the first field that violates its constraint.
// Callers match on the type to distinguish bad input from engine faults.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid deal: %s %s", e.Field, e.Constraint)
}

// InvalidInputError is returned by calculators that receive a deal which
// skipped validation. It signals a programming error in the caller, not a
// user mistake.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid calculator input: %s", e.Reason)
}

// Validate checks every field constraint in a fixed order and returns the
// first violation as a *ValidationError. A nil return means the deal is safe
// for every calculator in this package.
func (d PropertyDeal) Validate() error {
	if d.PurchasePrice <= 0 {
		return &ValidationError{Field: "purchase_price", Constraint: "must be greater than zero"}
	}
	if d.MonthlyRent < 0 {
		return &ValidationError{Field: "monthly_rent", Constraint: "must not be negative"}
	}
	if d.AnnualOperatingExpenses < 0 {
		return &ValidationError{Field: "annual_operating_expenses", Constraint: "must not be negative"}
	}
	if d.DownPaymentPercent < 0 || d.DownPaymentPercent > 100 {
		return &ValidationError{Field: "down_payment_percent", Constraint: "must be between 0 and 100"}
	}
	if d.InterestRatePercent < 0 {
		return &ValidationError{Field: "interest_rate_percent", Constraint: "must not be negative"}
	}
	if d.LoanTermYears <= 0 {
		return &ValidationError{Field: "loan_term_years", Constraint: "must be greater than zero"}
	}
	if d.LoanTermYears > MaxLoanTermYears {
		return &ValidationError{Field: "loan_term_years", Constraint: fmt.Sprintf("must not exceed %d", MaxLoanTermYears)}
	}
	return nil
}

// ParseDeal builds a validated PropertyDeal from loosely typed parameters,
// as decoded from a JSON request body or extracted from model output.
// Numeric fields accept numbers or numeric strings; loan_term_years defaults
// to DefaultLoanTermYears when absent.
func ParseDeal(raw map[string]interface{}) (PropertyDeal, error) {
	deal := PropertyDeal{LoanTermYears: DefaultLoanTermYears}

	fields := []struct {
		key string
		dst *float64
	}{
		{"purchase_price", &deal.PurchasePrice},
		{"monthly_rent", &deal.MonthlyRent},
		{"annual_operating_expenses", &deal.AnnualOperatingExpenses},
		{"down_payment_percent", &deal.DownPaymentPercent},
		{"interest_rate_percent", &deal.InterestRatePercent},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok || v == nil {
			continue
		}
		n, err := toFloat(v)
		if err != nil {
			return PropertyDeal{}, &ValidationError{Field: f.key, Constraint: "must be a number"}
		}
		*f.dst = n
	}

	if v, ok := raw["loan_term_years"]; ok && v != nil {
		n, err := toFloat(v)
		if err != nil {
			return PropertyDeal{}, &ValidationError{Field: "loan_term_years", Constraint: "must be a number"}
		}
		deal.LoanTermYears = int(n)
	}

	if err := deal.Validate(); err != nil {
		return PropertyDeal{}, err
	}
	return deal, nil
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
