// Package finance implements the deterministic calculation engine for
// rental-property deals: point-in-time metrics (NOI, cap rate, debt service,
// cash flow, cash-on-cash return, DSCR, break-even occupancy), a multi-year
// projection with an IRR estimate, a fixed sensitivity table, and an exit
// analysis.
//
// Every function here is pure float64 arithmetic evaluated in a fixed order:
// the same deal and assumptions always produce the same bundle. No I/O, no
// randomness, no logging, no caching.
package finance

import "math"

// =============================================================================
// MORTGAGE FORMULAS
// =============================================================================

// MonthlyPayment returns the level monthly payment that fully amortizes
// loanAmount at the given annual nominal rate over termYears.
//
// FORMULA: M = P * r * (1+r)^n / ((1+r)^n - 1)
//
//	P = loan principal
//	r = annualRatePct / 100 / 12  (periodic rate)
//	n = termYears * 12            (number of payments)
//
// At a zero rate the formula degenerates to straight-line repayment,
// M = P / n. A non-positive principal costs nothing to service.
func MonthlyPayment(loanAmount, annualRatePct float64, termYears int) float64 {
	if loanAmount <= 0 || termYears <= 0 {
		return 0
	}
	n := float64(termYears * 12)
	r := annualRatePct / 100 / 12
	if r == 0 {
		return loanAmount / n
	}
	factor := math.Pow(1+r, n)
	return loanAmount * r * factor / (factor - 1)
}

// RemainingBalance returns the principal still owed after paymentsMade level
// monthly payments on a fully amortizing loan.
//
// FORMULA: B = P * ((1+r)^n - (1+r)^p) / ((1+r)^n - 1)
//
//	p = payments made so far
//
// With a zero rate the balance declines linearly. Past the end of the term
// the balance is zero.
func RemainingBalance(loanAmount, annualRatePct float64, termYears, paymentsMade int) float64 {
	if loanAmount <= 0 || termYears <= 0 {
		return 0
	}
	n := float64(termYears * 12)
	p := float64(paymentsMade)
	if p >= n {
		return 0
	}
	if p < 0 {
		p = 0
	}
	r := annualRatePct / 100 / 12
	if r == 0 {
		return loanAmount * (n - p) / n
	}
	fn := math.Pow(1+r, n)
	fp := math.Pow(1+r, p)
	return loanAmount * (fn - fp) / (fn - 1)
}

// =============================================================================
// POINT-IN-TIME METRICS
// =============================================================================

// coreNumbers holds the intermediate values shared by the headline metrics,
// the sensitivity scenarios and the exit analysis. Sensitivity runs go
// through computeCore on a perturbed copy of the deal, so a scenario can
// never drift from the formulas used for the headline numbers.
type coreNumbers struct {
	annualRent        float64
	noi               float64
	capRate           float64
	downPayment       float64
	loanAmount        float64
	monthlyPayment    float64
	annualDebtService float64
	annualCashFlow    float64
	monthlyCashFlow   float64
}

// computeCore evaluates the point-in-time formulas in their fixed order.
//
//	NOI            = monthlyRent * 12 - annualOperatingExpenses
//	capRate        = NOI / purchasePrice
//	downPayment    = purchasePrice * downPaymentPercent / 100
//	loanAmount     = purchasePrice - downPayment
//	annualDebtSvc  = MonthlyPayment(loanAmount, rate, term) * 12
//	annualCashFlow = NOI - annualDebtSvc
func computeCore(d PropertyDeal) coreNumbers {
	var c coreNumbers
	c.annualRent = d.AnnualRent()
	c.noi = c.annualRent - d.AnnualOperatingExpenses
	c.capRate = c.noi / d.PurchasePrice
	c.downPayment = d.PurchasePrice * d.DownPaymentPercent / 100
	c.loanAmount = d.PurchasePrice - c.downPayment
	c.monthlyPayment = MonthlyPayment(c.loanAmount, d.InterestRatePercent, d.LoanTermYears)
	c.annualDebtService = c.monthlyPayment * 12
	c.annualCashFlow = c.noi - c.annualDebtService
	c.monthlyCashFlow = c.annualCashFlow / 12
	return c
}

// Compute runs the full engine on a validated deal with DefaultAssumptions.
func Compute(deal PropertyDeal) (*MetricsResult, error) {
	return ComputeWith(deal, DefaultAssumptions())
}

// ComputeWith runs the full engine on a validated deal with explicit
// assumptions. The deal must have passed Validate; the guard here only
// protects the division by purchase price against callers that skipped it.
func ComputeWith(deal PropertyDeal, a Assumptions) (*MetricsResult, error) {
	if deal.PurchasePrice <= 0 {
		return nil, &InvalidInputError{Reason: "purchase_price must be greater than zero"}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	core := computeCore(deal)

	// Cash-on-cash is a levered return on invested cash: it needs both a
	// cash basis (down payment > 0) and leverage (debt service > 0). For an
	// all-cash purchase the return on cash is already the cap rate.
	coc := NotApplicable()
	if core.downPayment > 0 && core.annualDebtService > 0 {
		coc = Defined(core.annualCashFlow / core.downPayment)
	}

	dscr := NotApplicable()
	if core.annualDebtService > 0 {
		dscr = Defined(core.noi / core.annualDebtService)
	}

	// Break-even occupancy: the fraction of scheduled rent needed to cover
	// operating expenses plus debt service. May exceed 1 for deals that do
	// not cover their obligations even at full occupancy.
	breakEven := NotApplicable()
	if core.annualRent > 0 {
		breakEven = Defined((deal.AnnualOperatingExpenses + core.annualDebtService) / core.annualRent)
	}

	projection := buildProjection(deal, a, core.annualDebtService)
	sale := saleProceeds(deal, a, core.loanAmount)
	irr := estimateIRR(irrSeries(core.downPayment, projection, sale))

	return &MetricsResult{
		NOI:                core.noi,
		CapRate:            core.capRate,
		DownPayment:        core.downPayment,
		LoanAmount:         core.loanAmount,
		MonthlyDebtService: core.monthlyPayment,
		AnnualDebtService:  core.annualDebtService,
		AnnualCashFlow:     core.annualCashFlow,
		MonthlyCashFlow:    core.monthlyCashFlow,
		CashOnCashReturn:   coc,
		DSCR:               dscr,
		BreakEvenOccupancy: breakEven,
		Projection:         projection,
		EstimatedIRR:       irr,
		Sensitivity:        runSensitivity(deal),
		Flags:              buildFlags(core, dscr, irr),
	}, nil
}

// =============================================================================
// SCENARIO FLAGS
// =============================================================================

// buildFlags derives human-readable observations from the computed numbers.
// Flags state arithmetic facts about this deal; whether a fact is acceptable
// for a given strategy is the screening layer's call. Order is fixed.
func buildFlags(core coreNumbers, dscr, irr NullableMetric) []string {
	flags := make([]string, 0, 5)

	switch {
	case core.annualCashFlow > 0:
		flags = append(flags, "cash-flow positive")
	case core.annualCashFlow < 0:
		flags = append(flags, "cash-flow negative")
	default:
		flags = append(flags, "cash-flow break-even")
	}

	if core.noi < 0 {
		flags = append(flags, "operating expenses exceed rental income")
	}

	if core.annualDebtService == 0 {
		flags = append(flags, "all-cash purchase")
	} else if dscr.Valid {
		if dscr.Value >= 1 {
			flags = append(flags, "debt service covered by operating income")
		} else {
			flags = append(flags, "debt service exceeds operating income")
		}
	}

	if !irr.Valid {
		flags = append(flags, "IRR not computable for this cash-flow profile")
	}

	return flags
}
