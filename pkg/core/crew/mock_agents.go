package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MockAgent provides deterministic responses for testing and simulation
// runs. Content is written to clear each role's guardrail set on the first
// draft, so simulations complete without retries.
type MockAgent struct {
	role    AgentRole
	latency time.Duration
}

func NewMockAgent(role AgentRole) *MockAgent {
	return &MockAgent{
		role:    role,
		latency: 500 * time.Millisecond,
	}
}

func (a *MockAgent) Role() AgentRole {
	return a.role
}

func (a *MockAgent) Name() string {
	return fmt.Sprintf("Mock %s", GetAgentName(a.role))
}

func (a *MockAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	// Simulate "thinking" latency
	select {
	case <-time.After(a.latency):
	case <-ctx.Done():
		return CrewMessage{}, ctx.Err()
	}

	var content string
	var refs []string

	switch a.role {
	case RoleDataIntegration:
		content = fmt.Sprintf("[Simulation] Market review for %s. Comparable rentals in the area cluster "+
			"near the subject's contracted rent, so the income assumption looks plausible, though local "+
			"conditions may vary.", shared.Address)
		if shared.Comps != nil && shared.Comps.SampleSize > 0 {
			content += fmt.Sprintf(" Comp median rent: $%.0f/mo across %d listings.",
				shared.Comps.MedianRent, shared.Comps.SampleSize)
		}
		refs = []string{"[Mock Listings Source](http://example.com/listings)"}
	case RoleFinancialModeling:
		if shared.Metrics != nil {
			m := shared.Metrics
			content = fmt.Sprintf("[Simulation] The engine computes NOI of $%.2f and a cap rate of %.2f%%. "+
				"Monthly cash flow models at $%.2f against debt service of $%.2f/mo. These projections "+
				"assume stable rent and expenses; actual results may vary.",
				m.NOI, m.CapRate*100, m.MonthlyCashFlow, m.MonthlyDebtService)
		} else {
			content = "[Simulation] No computed metrics were provided; the modeling stage has nothing to interpret."
		}
	case RoleStrategyAlignment:
		if shared.Screening != nil {
			s := shared.Screening
			content = fmt.Sprintf("[Simulation] For a %s mandate this deal screens %s risk with an alignment "+
				"score of %.1f/10 and a composite score of %d/100. The triggered decision points deserve "+
				"verification before proceeding; risk tolerance varies by investor.",
				s.Strategy, s.RiskRating, s.AlignmentScore, s.Score)
		} else {
			content = fmt.Sprintf("[Simulation] No screening result available for the %s strategy; the risk review is incomplete.",
				shared.Strategy)
		}
	case RoleInvestmentAdvisor:
		content = a.mockRecommendation(shared)
	default:
		content = fmt.Sprintf("[Simulation] %s has nothing to add.", GetAgentName(a.role))
	}

	return CrewMessage{
		AgentRole:  a.Role(),
		AgentName:  a.Name(),
		Content:    content,
		References: refs,
		Timestamp:  time.Now(),
	}, nil
}

// mockRecommendation emits the full advisor shape: a markdown verdict plus a
// machine-readable JSON block, mirroring what the live advisor is prompted
// to produce.
func (a *MockAgent) mockRecommendation(shared *EvaluationContext) string {
	verdict := "HOLD"
	if shared.Screening != nil {
		verdict = string(shared.Screening.QuickVerdict)
	}

	figuresLine := "The deterministic engine supplied every figure in this evaluation."
	if shared.Metrics != nil {
		figuresLine = fmt.Sprintf("NOI $%.2f/yr, cap rate %.2f%%, monthly cash flow $%.2f, quoted exactly from the engine.",
			shared.Metrics.NOI, shared.Metrics.CapRate*100, shared.Metrics.MonthlyCashFlow)
	}

	content := fmt.Sprintf(`# Investment Recommendation
**Property:** %s
**Strategy:** %s

## Verdict
**Recommendation:** %s

The computed figures describe a deal where rent only partly offsets the carrying costs, so the outcome depends on rent growth and expense control. Projections are estimates under fixed assumptions and actual results may vary with market conditions.

## Supporting Figures
%s

## Key Risks
- Cash flow is sensitive to the financing terms; a small rate move changes the monthly picture.
- Screening flagged decision points that warrant verification before any commitment.

## Suggested Next Steps
- Verify the rent assumption against local comps and review the expense history.
- Consult with a qualified real estate or financial professional before acting on this analysis.
`, shared.Address, shared.Strategy, verdict, figuresLine)

	payload, err := json.Marshal(map[string]interface{}{
		"verdict": verdict,
		"figures": EngineFigures(shared.Metrics),
	})
	if err == nil {
		content += "\n```json\n" + string(payload) + "\n```"
	}
	return content
}
