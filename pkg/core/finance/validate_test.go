package finance

import (
	"errors"
	"testing"
)

func validDeal() PropertyDeal {
	return PropertyDeal{
		PurchasePrice:           475000,
		MonthlyRent:             3400,
		AnnualOperatingExpenses: 14000,
		DownPaymentPercent:      25,
		InterestRatePercent:     7.25,
		LoanTermYears:           30,
	}
}

func TestValidateAcceptsBoundaryValues(t *testing.T) {
	d := validDeal()
	d.MonthlyRent = 0
	d.AnnualOperatingExpenses = 0
	d.DownPaymentPercent = 0
	d.InterestRatePercent = 0
	d.LoanTermYears = 1
	if err := d.Validate(); err != nil {
		t.Errorf("Boundary values should pass: %v", err)
	}

	d.DownPaymentPercent = 100
	d.LoanTermYears = MaxLoanTermYears
	if err := d.Validate(); err != nil {
		t.Errorf("Upper boundaries should pass: %v", err)
	}

	// High rates are unusual but legal; there is no hard cap.
	d.InterestRatePercent = 19.5
	if err := d.Validate(); err != nil {
		t.Errorf("High rate should pass: %v", err)
	}
}

func TestValidateNamesOffendingField(t *testing.T) {
	cases := []struct {
		mutate func(*PropertyDeal)
		field  string
	}{
		{func(d *PropertyDeal) { d.PurchasePrice = -100000 }, "purchase_price"},
		{func(d *PropertyDeal) { d.PurchasePrice = 0 }, "purchase_price"},
		{func(d *PropertyDeal) { d.MonthlyRent = -1 }, "monthly_rent"},
		{func(d *PropertyDeal) { d.AnnualOperatingExpenses = -500 }, "annual_operating_expenses"},
		{func(d *PropertyDeal) { d.DownPaymentPercent = -5 }, "down_payment_percent"},
		{func(d *PropertyDeal) { d.DownPaymentPercent = 101 }, "down_payment_percent"},
		{func(d *PropertyDeal) { d.InterestRatePercent = -0.25 }, "interest_rate_percent"},
		{func(d *PropertyDeal) { d.LoanTermYears = 0 }, "loan_term_years"},
		{func(d *PropertyDeal) { d.LoanTermYears = 51 }, "loan_term_years"},
	}

	for _, c := range cases {
		d := validDeal()
		c.mutate(&d)
		err := d.Validate()
		if err == nil {
			t.Errorf("Expected a validation error for %s", c.field)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Expected *ValidationError, got %T", err)
			continue
		}
		if verr.Field != c.field {
			t.Errorf("Expected field %q, got %q (%s)", c.field, verr.Field, verr.Constraint)
		}
	}
}

func TestParseDealCoercion(t *testing.T) {
	// Loosely typed input the way a decoded request body or extracted model
	// output arrives: numbers as float64, some as strings.
	raw := map[string]interface{}{
		"purchase_price":            475000.0,
		"monthly_rent":              "3400",
		"annual_operating_expenses": 14000,
		"down_payment_percent":      "25",
		"interest_rate_percent":     7.25,
		"loan_term_years":           30.0,
	}
	deal, err := ParseDeal(raw)
	if err != nil {
		t.Fatalf("ParseDeal failed: %v", err)
	}
	if deal.PurchasePrice != 475000 || deal.MonthlyRent != 3400 {
		t.Errorf("Coercion wrong: %+v", deal)
	}
	if deal.LoanTermYears != 30 {
		t.Errorf("Expected term 30, got %d", deal.LoanTermYears)
	}
}

func TestParseDealDefaultsLoanTerm(t *testing.T) {
	raw := map[string]interface{}{
		"purchase_price": 250000.0,
		"monthly_rent":   2000.0,
	}
	deal, err := ParseDeal(raw)
	if err != nil {
		t.Fatalf("ParseDeal failed: %v", err)
	}
	if deal.LoanTermYears != DefaultLoanTermYears {
		t.Errorf("Expected default term %d, got %d", DefaultLoanTermYears, deal.LoanTermYears)
	}
}

func TestParseDealRejectsGarbage(t *testing.T) {
	raw := map[string]interface{}{
		"purchase_price": "lots of money",
		"monthly_rent":   2000.0,
	}
	_, err := ParseDeal(raw)
	if err == nil {
		t.Fatal("Expected an error for a non-numeric price")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "purchase_price" {
		t.Errorf("Expected ValidationError on purchase_price, got %v", err)
	}
}

func TestParseDealRunsValidation(t *testing.T) {
	// Parsing coerces, then validates: a well-typed but out-of-range deal
	// must still be rejected.
	raw := map[string]interface{}{
		"purchase_price":       -475000.0,
		"monthly_rent":         3400.0,
		"down_payment_percent": 25.0,
	}
	_, err := ParseDeal(raw)
	if err == nil {
		t.Fatal("Expected a validation error for a negative price")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "purchase_price" {
		t.Errorf("Expected ValidationError on purchase_price, got %v", err)
	}
}
