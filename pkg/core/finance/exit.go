package finance

import "math"

// =============================================================================
// EXIT ANALYSIS
// =============================================================================

// ExitAnalysis summarizes the whole-hold economics of a deal: cash collected
// along the way, equity released at sale, transaction friction on both ends,
// and the resulting total profit on invested cash. Unlike the IRR series,
// this view includes closing and selling costs.
type ExitAnalysis struct {
	HoldPeriodYears      int            `json:"hold_period_years"`
	TotalCashFlow        float64        `json:"total_cash_flow"`
	FuturePropertyValue  float64        `json:"future_property_value"`
	RemainingLoanBalance float64        `json:"remaining_loan_balance"`
	EquityAtSale         float64        `json:"equity_at_sale"`
	SellingCosts         float64        `json:"selling_costs"`
	NetSaleProceeds      float64        `json:"net_sale_proceeds"`
	ClosingCosts         float64        `json:"closing_costs"`
	TotalCashInvested    float64        `json:"total_cash_invested"`
	TotalProfit          float64        `json:"total_profit"`
	TotalReturn          NullableMetric `json:"total_return"` // fraction of invested cash
}

// AnalyzeExit runs the exit analysis with DefaultAssumptions.
func AnalyzeExit(deal PropertyDeal) (*ExitAnalysis, error) {
	return AnalyzeExitWith(deal, DefaultAssumptions())
}

// AnalyzeExitWith projects the hold, sells the property at the appreciated
// value, pays off the loan and the transaction costs, and nets the result
// against total cash invested (down payment plus closing costs).
//
//	totalProfit = sum(cashFlow_y) + netSaleProceeds - totalCashInvested
//	totalReturn = totalProfit / totalCashInvested
//
// TotalReturn is N/A for deals with no cash invested (100% financed, no
// closing costs); profit is still reported in dollars.
func AnalyzeExitWith(deal PropertyDeal, a Assumptions) (*ExitAnalysis, error) {
	if deal.PurchasePrice <= 0 {
		return nil, &InvalidInputError{Reason: "purchase_price must be greater than zero"}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	core := computeCore(deal)
	projection := buildProjection(deal, a, core.annualDebtService)

	totalCashFlow := 0.0
	for _, row := range projection {
		totalCashFlow += row.CashFlow
	}

	futureValue := deal.PurchasePrice * math.Pow(1+a.AppreciationRate, float64(a.HoldPeriodYears))
	balance := RemainingBalance(core.loanAmount, deal.InterestRatePercent, deal.LoanTermYears, a.HoldPeriodYears*12)
	equity := futureValue - balance
	sellingCosts := futureValue * a.SellingCostRate
	netProceeds := equity - sellingCosts

	closingCosts := deal.PurchasePrice * a.ClosingCostRate
	invested := core.downPayment + closingCosts
	profit := totalCashFlow + netProceeds - invested

	totalReturn := NotApplicable()
	if invested > 0 {
		totalReturn = Defined(profit / invested)
	}

	return &ExitAnalysis{
		HoldPeriodYears:      a.HoldPeriodYears,
		TotalCashFlow:        totalCashFlow,
		FuturePropertyValue:  futureValue,
		RemainingLoanBalance: balance,
		EquityAtSale:         equity,
		SellingCosts:         sellingCosts,
		NetSaleProceeds:      netProceeds,
		ClosingCosts:         closingCosts,
		TotalCashInvested:    invested,
		TotalProfit:          profit,
		TotalReturn:          totalReturn,
	}, nil
}
