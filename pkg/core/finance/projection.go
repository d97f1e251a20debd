package finance

import "math"

// =============================================================================
// FORWARD PROJECTION
// =============================================================================

// buildProjection compounds rent and expenses independently over the hold
// period. Debt service stays constant: the loan is fixed-rate and fully
// amortizing, so growth applies only to the operating side.
//
// FORMULA, for year y in 1..hold:
//
//	grossRent_y = monthlyRent * 12 * (1 + rentGrowth)^y
//	expenses_y  = annualOperatingExpenses * (1 + expenseGrowth)^y
//	noi_y       = grossRent_y - expenses_y
//	cashFlow_y  = noi_y - annualDebtService
func buildProjection(d PropertyDeal, a Assumptions, annualDebtService float64) []YearProjection {
	projection := make([]YearProjection, 0, a.HoldPeriodYears)
	cumulative := 0.0
	for year := 1; year <= a.HoldPeriodYears; year++ {
		grossRent := d.AnnualRent() * math.Pow(1+a.RentGrowthRate, float64(year))
		expenses := d.AnnualOperatingExpenses * math.Pow(1+a.ExpenseGrowthRate, float64(year))
		noi := grossRent - expenses
		cashFlow := noi - annualDebtService
		cumulative += cashFlow
		projection = append(projection, YearProjection{
			Year:               year,
			GrossRent:          grossRent,
			OperatingExpenses:  expenses,
			NOI:                noi,
			CashFlow:           cashFlow,
			CumulativeCashFlow: cumulative,
		})
	}
	return projection
}

// saleProceeds returns the owner's gross proceeds from selling at the end of
// the hold: appreciated value minus the loan balance still outstanding.
// Selling costs are deliberately excluded here so the IRR stays a property
// level figure; the exit analysis accounts for transaction friction.
func saleProceeds(d PropertyDeal, a Assumptions, loanAmount float64) float64 {
	futureValue := d.PurchasePrice * math.Pow(1+a.AppreciationRate, float64(a.HoldPeriodYears))
	balance := RemainingBalance(loanAmount, d.InterestRatePercent, d.LoanTermYears, a.HoldPeriodYears*12)
	return futureValue - balance
}

// =============================================================================
// IRR ESTIMATE
// =============================================================================

// Bisection bounds and convergence budget for the IRR root search. The
// bracket covers -50%..+100% annual return; anything outside is reported as
// not computable rather than extrapolated.
const (
	irrLowerBound    = -0.50
	irrUpperBound    = 1.00
	irrMaxIterations = 100
	irrTolerance     = 1e-7
)

// irrSeries assembles the investor cash-flow series: the down payment as the
// initial outflow, each projected year's cash flow, and the sale proceeds
// added to the final year.
func irrSeries(downPayment float64, projection []YearProjection, saleProceeds float64) []float64 {
	series := make([]float64, 0, len(projection)+1)
	series = append(series, -downPayment)
	for _, row := range projection {
		series = append(series, row.CashFlow)
	}
	if len(series) > 1 {
		series[len(series)-1] += saleProceeds
	}
	return series
}

// netPresentValue discounts the series at the given annual rate, with the
// first element at time zero.
func netPresentValue(series []float64, rate float64) float64 {
	npv := 0.0
	for t, cf := range series {
		npv += cf / math.Pow(1+rate, float64(t))
	}
	return npv
}

// estimateIRR finds the discount rate at which the series nets to zero,
// by bisection on [irrLowerBound, irrUpperBound]. The series must change
// sign at least once for a root to exist; series that are all-in or all-out,
// or whose NPV keeps one sign across the whole bracket, are reported as not
// computable instead of being forced to a number.
func estimateIRR(series []float64) NullableMetric {
	hasInflow, hasOutflow := false, false
	for _, cf := range series {
		if cf > 0 {
			hasInflow = true
		}
		if cf < 0 {
			hasOutflow = true
		}
	}
	if !hasInflow || !hasOutflow {
		return NotComputable()
	}

	lo, hi := irrLowerBound, irrUpperBound
	npvLo := netPresentValue(series, lo)
	npvHi := netPresentValue(series, hi)
	if (npvLo > 0) == (npvHi > 0) {
		return NotComputable()
	}

	for i := 0; i < irrMaxIterations; i++ {
		mid := (lo + hi) / 2
		npvMid := netPresentValue(series, mid)
		if math.Abs(npvMid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return Defined(mid)
		}
		if (npvMid > 0) == (npvLo > 0) {
			lo, npvLo = mid, npvMid
		} else {
			hi = mid
		}
	}
	return NotComputable()
}
