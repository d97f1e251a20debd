package prompt

// Convenience functions for common prompt lookups

// GetCrewPrompt returns an advisory crew role's system prompt by role name
func GetCrewPrompt(role string) (string, error) {
	id := "crew." + role
	return Get().GetSystemPrompt(id)
}

// GetMarketPrompt returns a market research prompt
func GetMarketPrompt(name string) (string, error) {
	id := "market." + name
	return Get().GetSystemPrompt(id)
}

// GetAdvisePrompt returns a prompt used by the advisory pipeline itself
// (summaries, consensus, reconciliation)
func GetAdvisePrompt(name string) (string, error) {
	id := "advise." + name
	return Get().GetSystemPrompt(id)
}

// MustGetCrewPrompt is like GetCrewPrompt but panics on error
func MustGetCrewPrompt(role string) string {
	p, err := GetCrewPrompt(role)
	if err != nil {
		panic(err)
	}
	return p
}

// PromptIDs contains all known prompt identifiers
var PromptIDs = struct {
	// Advisory crew roles
	CrewDataIntegration   string
	CrewFinancialModeling string
	CrewStrategyAlignment string
	CrewInvestmentAdvisor string

	// Market research
	MarketComps     string
	MarketRateCheck string

	// Advisory pipeline
	AdviseConsensus      string
	AdviseReconciliation string
}{
	CrewDataIntegration:   "crew.data_integration_specialist",
	CrewFinancialModeling: "crew.financial_modeling_analyst",
	CrewStrategyAlignment: "crew.strategy_alignment_advisor",
	CrewInvestmentAdvisor: "crew.investment_advisor",

	MarketComps:     "market.comps",
	MarketRateCheck: "market.rate_check",

	AdviseConsensus:      "advise.consensus",
	AdviseReconciliation: "advise.reconciliation",
}
