package crew

import (
	"fmt"
	"strings"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
)

// DealSummary formats the deal terms for prompt injection. Every agent turn
// starts from this block so the crew never disagrees about the inputs.
func DealSummary(address string, deal finance.PropertyDeal, strategy screening.Strategy) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Property: %s\n", address))
	sb.WriteString(fmt.Sprintf("Purchase price: $%.0f\n", deal.PurchasePrice))
	sb.WriteString(fmt.Sprintf("Monthly rent: $%.0f ($%.0f/yr gross)\n", deal.MonthlyRent, deal.AnnualRent()))
	sb.WriteString(fmt.Sprintf("Operating expenses: $%.0f/yr\n", deal.AnnualOperatingExpenses))
	if deal.DownPaymentPercent >= 100 {
		sb.WriteString("Financing: all cash\n")
	} else {
		sb.WriteString(fmt.Sprintf("Financing: %.1f%% down, %.2f%% APR, %d-year term\n",
			deal.DownPaymentPercent, deal.InterestRatePercent, deal.LoanTermYears))
	}
	sb.WriteString(fmt.Sprintf("Strategy: %s", strategy))
	return sb.String()
}

// EngineBrief formats the deterministic engine outputs for prompt injection.
// Agents quote these figures instead of inventing their own.
func EngineBrief(m *finance.MetricsResult, exit *finance.ExitAnalysis, scr *screening.Result) string {
	if m == nil {
		return "No computed metrics available."
	}

	var sb strings.Builder
	sb.WriteString("=== COMPUTED METRICS (deterministic engine) ===\n")
	sb.WriteString(fmt.Sprintf("NOI: $%.2f/yr | Cap rate: %.2f%%\n", m.NOI, m.CapRate*100))
	sb.WriteString(fmt.Sprintf("Down payment: $%.2f | Loan: $%.2f | Debt service: $%.2f/mo\n",
		m.DownPayment, m.LoanAmount, m.MonthlyDebtService))
	sb.WriteString(fmt.Sprintf("Cash flow: $%.2f/mo ($%.2f/yr)\n", m.MonthlyCashFlow, m.AnnualCashFlow))
	sb.WriteString(fmt.Sprintf("Cash-on-cash: %s | DSCR: %s | Break-even occupancy: %s\n",
		pct(m.CashOnCashReturn), ratio(m.DSCR), pct(m.BreakEvenOccupancy)))
	if exit != nil {
		sb.WriteString(fmt.Sprintf("%d-year hold: total profit $%.2f, total return %s, estimated IRR %s\n",
			exit.HoldPeriodYears, exit.TotalProfit, pct(exit.TotalReturn), pct(m.EstimatedIRR)))
	}
	if len(m.Flags) > 0 {
		sb.WriteString("Flags: " + strings.Join(m.Flags, ", ") + "\n")
	}
	if scr != nil {
		sb.WriteString(fmt.Sprintf("Screening: %s risk, alignment %.1f/10, score %d/100 -> %s\n",
			scr.RiskRating, scr.AlignmentScore, scr.Score, scr.Recommendation))
	}
	return sb.String()
}

// FormatTranscript renders the evaluation history for prompt injection.
func FormatTranscript(history []CrewMessage) string {
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString(fmt.Sprintf("[%s] %s (%s): %s\n",
			msg.Timestamp.Format("15:04:05"), msg.AgentName, msg.AgentRole, msg.Content))
	}
	return sb.String()
}

// EngineFigures flattens the metrics bundle into the figure map the final
// report carries. Undefined metrics are omitted rather than zeroed so a
// consumer can tell "not computed" apart from "computed to zero".
func EngineFigures(m *finance.MetricsResult) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}

	figures := map[string]float64{
		"noi":               m.NOI,
		"cap_rate":          m.CapRate,
		"monthly_cash_flow": m.MonthlyCashFlow,
		"annual_cash_flow":  m.AnnualCashFlow,
	}
	if m.CashOnCashReturn.Valid {
		figures["cash_on_cash_return"] = m.CashOnCashReturn.Value
	}
	if m.DSCR.Valid {
		figures["dscr"] = m.DSCR.Value
	}
	if m.EstimatedIRR.Valid {
		figures["estimated_irr"] = m.EstimatedIRR.Value
	}
	return figures
}

// RiskHighlights translates triggered screening decision points into the
// report's key-risk lines. Opportunity flags are not risks and are skipped.
func RiskHighlights(scr *screening.Result) []string {
	if scr == nil {
		return nil
	}

	var risks []string
	for _, dp := range scr.DecisionPoints {
		switch dp {
		case screening.DecisionNegativeCashFlow:
			risks = append(risks, "Rent does not cover operating costs and debt service at current terms")
		case screening.DecisionHighRiskDetected:
			risks = append(risks, "Preliminary screening rated the deal HIGH risk")
		case screening.DecisionStrategyMismatch:
			risks = append(risks, fmt.Sprintf("Computed metrics fit the %s strategy poorly", scr.Strategy))
		case screening.DecisionInsufficientData:
			risks = append(risks, "Some metrics were undefined for this deal shape; figures are incomplete")
		}
	}
	return risks
}

// pct renders a fractional metric as a percentage, or its sentinel.
func pct(m finance.NullableMetric) string {
	if !m.Valid {
		return m.String()
	}
	return fmt.Sprintf("%.2f%%", m.Value*100)
}

// ratio renders a coverage-style metric, or its sentinel.
func ratio(m finance.NullableMetric) string {
	if !m.Valid {
		return m.String()
	}
	return fmt.Sprintf("%.2f", m.Value)
}
