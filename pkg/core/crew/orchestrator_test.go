package crew

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/guardrails"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
)

// referenceDeal is the shared fixture: $475k purchase, $3,400/mo rent,
// $14k/yr expenses, 25% down at 7.25% over 30 years. It cash-flows negative
// (-$196.92/mo) with DSCR 0.92, so passive income screening returns PASS.
func referenceDeal() finance.PropertyDeal {
	return finance.PropertyDeal{
		PurchasePrice:           475000,
		MonthlyRent:             3400,
		AnnualOperatingExpenses: 14000,
		DownPaymentPercent:      25,
		InterestRatePercent:     7.25,
		LoanTermYears:           30,
	}
}

func TestNewOrchestrator(t *testing.T) {
	mgr := &agent.Manager{} // Mock manager
	repo := &CrewRepo{}     // Mock repo

	orch := NewOrchestrator("test-id", "12 Oak St, Springfield", referenceDeal(),
		screening.StrategyPassiveIncome, "", true, mgr, repo)

	if orch.ID != "test-id" {
		t.Errorf("Expected ID 'test-id', got %s", orch.ID)
	}
	if orch.Address != "12 Oak St, Springfield" {
		t.Errorf("Expected Address '12 Oak St, Springfield', got %s", orch.Address)
	}
	if orch.Strategy != screening.StrategyPassiveIncome {
		t.Errorf("Expected StrategyPassiveIncome, got %s", orch.Strategy)
	}
	if orch.IsSimulation != true {
		t.Errorf("Expected IsSimulation true, got false")
	}
	if orch.Status != StatusIdle {
		t.Errorf("Expected StatusIdle, got %s", orch.Status)
	}
	if orch.Stage != StageEngine {
		t.Errorf("Expected StageEngine, got %d", orch.Stage)
	}
	if orch.Shared == nil {
		t.Fatal("Shared context should not be nil")
	}
	if orch.Shared.Deal.PurchasePrice != 475000 {
		t.Errorf("Expected deal carried into shared context, got price %.2f", orch.Shared.Deal.PurchasePrice)
	}
}

func TestEvaluationOrchestrator_Run_Simulation(t *testing.T) {
	// This test verifies that the orchestrator can run a full evaluation in
	// simulation mode: engine baseline, four mock agent stages, and a final
	// report extracted from the mock advisor's JSON block.

	mgr := &agent.Manager{} // Mock manager
	repo := &CrewRepo{}     // Mock repo

	orch := NewOrchestrator("sim-id", "12 Oak St, Springfield", referenceDeal(),
		screening.StrategyPassiveIncome, "", true, mgr, repo)

	// Create a context with a timeout to ensure the test doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	start := time.Now()

	done := make(chan bool)
	go func() {
		orch.Run(ctx)
		done <- true
	}()

	select {
	case <-done:
		t.Logf("Evaluation simulation finished in %v", time.Since(start))
	case <-ctx.Done():
		t.Fatal("Evaluation simulation timed out")
	}

	if orch.Status != StatusCompleted {
		t.Errorf("Expected StatusCompleted, got %s", orch.Status)
	}
	if orch.Stage != StageRecommendation {
		t.Errorf("Expected StageRecommendation, got %d", orch.Stage)
	}
	if len(orch.History) == 0 {
		t.Error("Evaluation history should not be empty")
	}
	if orch.Shared.DataFindings == "" {
		t.Error("Data integration stage should have recorded findings")
	}
	if orch.Shared.ModelingSummary == "" {
		t.Error("Financial modeling stage should have recorded a summary")
	}

	report := orch.FinalReport
	if report == nil {
		t.Fatal("FinalReport should not be nil after a completed run")
	}
	if report.EvaluationID != "sim-id" {
		t.Errorf("Expected EvaluationID 'sim-id', got %s", report.EvaluationID)
	}
	// Passive income + negative monthly cash flow is an automatic PASS, and
	// the mock advisor echoes the screening verdict into its JSON block.
	if report.Verdict != "PASS" {
		t.Errorf("Expected verdict PASS, got %s", report.Verdict)
	}
	if report.FigureSource != FigureSourceNarrative {
		t.Errorf("Expected figures from the narrative JSON block, got source %s", report.FigureSource)
	}
	if report.GuardrailRetries != 0 {
		t.Errorf("Expected 0 guardrail retries from mock agents, got %d", report.GuardrailRetries)
	}
	capRate, ok := report.Figures["cap_rate"]
	if !ok {
		t.Fatal("Report figures should include cap_rate")
	}
	if math.Abs(capRate-orch.Shared.Metrics.CapRate) > 1e-9 {
		t.Errorf("Expected cap_rate %.6f to round-trip through the JSON block, got %.6f",
			orch.Shared.Metrics.CapRate, capRate)
	}
	if len(report.KeyRisks) == 0 {
		t.Error("Report should carry key risks for a negative cash flow deal")
	}
	if len(report.NextSteps) == 0 {
		t.Error("Report should carry screening next steps")
	}
}

func TestSubscribeReceivesHistory(t *testing.T) {
	orch := NewOrchestrator("sub-id", "12 Oak St", referenceDeal(),
		screening.StrategyPassiveIncome, "", true, &agent.Manager{}, &CrewRepo{})

	orch.broadcast(SystemMessage("first"))
	orch.broadcast(SystemMessage("second"))

	ch, history := orch.Subscribe()
	if len(history) != 2 {
		t.Errorf("Expected history of 2 messages on subscribe, got %d", len(history))
	}

	orch.broadcast(SystemMessage("third"))
	select {
	case msg := <-ch:
		if msg.Content != "third" {
			t.Errorf("Expected live message 'third', got %s", msg.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for broadcast message")
	}

	orch.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("Channel should be closed after Unsubscribe")
	}
}

// scriptedAgent feeds predetermined drafts and records the retry feedback it
// was shown on each call.
type scriptedAgent struct {
	drafts   []string
	calls    int
	feedback []string
}

func (a *scriptedAgent) Role() AgentRole { return RoleFinancialModeling }
func (a *scriptedAgent) Name() string    { return "Scripted Analyst" }

func (a *scriptedAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	a.feedback = append(a.feedback, shared.RetryFeedback)
	idx := a.calls
	if idx >= len(a.drafts) {
		idx = len(a.drafts) - 1
	}
	a.calls++
	return CrewMessage{
		AgentRole: RoleFinancialModeling,
		AgentName: a.Name(),
		Content:   a.drafts[idx],
		Timestamp: time.Now(),
	}, nil
}

type failingAgent struct{}

func (failingAgent) Role() AgentRole { return RoleDataIntegration }
func (failingAgent) Name() string    { return "Failing Agent" }
func (failingAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	return CrewMessage{}, errors.New("model offline")
}

func TestExecuteGuardedTurn_RetryOnViolation(t *testing.T) {
	orch := NewOrchestrator("guard-id", "12 Oak St", referenceDeal(),
		screening.StrategyPassiveIncome, "", true, &agent.Manager{}, &CrewRepo{})

	stub := &scriptedAgent{drafts: []string{
		"This deal offers guaranteed returns for any investor.",
		"The model projects a modest yield under fixed assumptions; actual results may vary.",
	}}

	content, retries := orch.executeGuardedTurn(context.Background(), stub,
		StageFinancialModeling, guardrails.FinancialModelingSet(), stageRetryBudget)

	if retries != 1 {
		t.Errorf("Expected 1 retry, got %d", retries)
	}
	if content != stub.drafts[1] {
		t.Errorf("Expected the clean second draft to be kept, got %q", content)
	}
	if stub.calls != 2 {
		t.Errorf("Expected 2 generation calls, got %d", stub.calls)
	}
	if stub.feedback[0] != "" {
		t.Errorf("Expected no feedback on the first call, got %q", stub.feedback[0])
	}
	if !strings.Contains(stub.feedback[1], "Rewrite") {
		t.Errorf("Expected corrective feedback on the retry, got %q", stub.feedback[1])
	}
	if orch.Shared.RetryFeedback != "" {
		t.Errorf("Expected retry feedback cleared after a clean draft, got %q", orch.Shared.RetryFeedback)
	}
}

func TestExecuteGuardedTurn_BudgetExhausted(t *testing.T) {
	orch := NewOrchestrator("budget-id", "12 Oak St", referenceDeal(),
		screening.StrategyPassiveIncome, "", true, &agent.Manager{}, &CrewRepo{})

	stub := &scriptedAgent{drafts: []string{
		"This deal offers guaranteed returns for any investor.",
	}}

	content, retries := orch.executeGuardedTurn(context.Background(), stub,
		StageFinancialModeling, guardrails.FinancialModelingSet(), 0)

	if retries != 0 {
		t.Errorf("Expected 0 retries with an exhausted budget, got %d", retries)
	}
	if content != stub.drafts[0] {
		t.Errorf("Expected the violating draft to be kept when the budget is spent, got %q", content)
	}

	last := orch.History[len(orch.History)-1]
	if !strings.Contains(last.Content, "keeping the last draft") {
		t.Errorf("Expected a moderator note about keeping the draft, got %q", last.Content)
	}
	if orch.Shared.RetryFeedback != "" {
		t.Errorf("Expected retry feedback cleared after exhaustion, got %q", orch.Shared.RetryFeedback)
	}
}

func TestExecuteGuardedTurn_GenerationError(t *testing.T) {
	orch := NewOrchestrator("err-id", "12 Oak St", referenceDeal(),
		screening.StrategyPassiveIncome, "", true, &agent.Manager{}, &CrewRepo{})

	content, retries := orch.executeGuardedTurn(context.Background(), failingAgent{},
		StageDataIntegration, guardrails.DataAnalysisSet(), stageRetryBudget)

	if content != "" {
		t.Errorf("Expected empty content on generation error, got %q", content)
	}
	if retries != 0 {
		t.Errorf("Expected 0 retries on generation error, got %d", retries)
	}

	last := orch.History[len(orch.History)-1]
	if !strings.Contains(last.Content, "model offline") {
		t.Errorf("Expected the error broadcast to the transcript, got %q", last.Content)
	}
}

func TestDetectVerdict(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Recommendation: CONDITIONAL BUY", "CONDITIONAL BUY"},
		{"**Recommendation:** BUY WITH CAUTION", "BUY WITH CAUTION"},
		{"this reads as a strong buy", "STRONG BUY"},
		{"hold for negotiation while inspections complete", "HOLD FOR NEGOTIATION"},
		{"I would BUY this one", "BUY"},
		{"verdict: PASS", "PASS"},
		{"the buyer should wait", ""},
		{"we are passing on the listing", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := detectVerdict(tt.text); got != tt.want {
			t.Errorf("detectVerdict(%q): expected %q, got %q", tt.text, tt.want, got)
		}
	}
}

func TestGenerateFinalReport_EngineFallback(t *testing.T) {
	orch := NewOrchestrator("fb-id", "12 Oak St", referenceDeal(),
		screening.StrategyPassiveIncome, "", true, &agent.Manager{}, &CrewRepo{})

	metrics, err := finance.ComputeWith(referenceDeal(), finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("ComputeWith failed: %v", err)
	}
	orch.Shared.Metrics = metrics
	orch.Shared.Screening = screening.Screen(metrics, screening.StrategyPassiveIncome)

	orch.generateFinalReport("The crew produced prose with no structured block.", 2)

	report := orch.FinalReport
	if report == nil {
		t.Fatal("FinalReport should not be nil")
	}
	if report.FigureSource != FigureSourceEngine {
		t.Errorf("Expected engine fallback figures, got source %s", report.FigureSource)
	}
	if report.Figures["noi"] != 26800 {
		t.Errorf("Expected NOI 26800 from the engine, got %.2f", report.Figures["noi"])
	}
	// No verdict in the narrative: the screening quick verdict fills in.
	if report.Verdict != "PASS" {
		t.Errorf("Expected verdict PASS from screening, got %s", report.Verdict)
	}
	if report.GuardrailRetries != 2 {
		t.Errorf("Expected 2 guardrail retries preserved, got %d", report.GuardrailRetries)
	}
}

func TestGenerateFinalReport_VerdictWithoutFigures(t *testing.T) {
	orch := NewOrchestrator("vf-id", "12 Oak St", referenceDeal(),
		screening.StrategyPassiveIncome, "", true, &agent.Manager{}, &CrewRepo{})

	metrics, err := finance.ComputeWith(referenceDeal(), finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("ComputeWith failed: %v", err)
	}
	orch.Shared.Metrics = metrics

	narrative := "**Recommendation:** BUY\n```json\n{\"verdict\": \"BUY\"}\n```"
	orch.generateFinalReport(narrative, 0)

	report := orch.FinalReport
	if report.Verdict != "BUY" {
		t.Errorf("Expected verdict BUY from the JSON block, got %s", report.Verdict)
	}
	// The block carried no figures, so the engine backfills them.
	if report.FigureSource != FigureSourceEngine {
		t.Errorf("Expected engine fallback when the block has no figures, got source %s", report.FigureSource)
	}
	if len(report.Figures) == 0 {
		t.Error("Fallback figures should not be empty")
	}
}

func TestGetAgentName(t *testing.T) {
	tests := []struct {
		role AgentRole
		want string
	}{
		{RoleDataIntegration, "Data Integration Specialist"},
		{RoleFinancialModeling, "Financial Modeling Analyst"},
		{RoleStrategyAlignment, "Strategy Alignment Advisor"},
		{RoleInvestmentAdvisor, "Senior Investment Advisor"},
		{RoleEngine, "Metrics Engine"},
		{AgentRole("mystery"), "Unknown Agent"},
	}

	for _, tt := range tests {
		if got := GetAgentName(tt.role); got != tt.want {
			t.Errorf("GetAgentName(%s): expected %q, got %q", tt.role, tt.want, got)
		}
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("CREW_BOOL_PROBE", "yes")
	if !envBool("CREW_BOOL_PROBE", false) {
		t.Error("Expected 'yes' to read as true")
	}

	t.Setenv("CREW_BOOL_PROBE", "off")
	if envBool("CREW_BOOL_PROBE", true) {
		t.Error("Expected 'off' to read as false")
	}

	if !envBool("CREW_BOOL_PROBE_UNSET", true) {
		t.Error("Expected fallback for an unset variable")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("CREW_INT_PROBE", "7")
	if got := envInt("CREW_INT_PROBE", 3); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}

	t.Setenv("CREW_INT_PROBE", "-4")
	if got := envInt("CREW_INT_PROBE", 3); got != 3 {
		t.Errorf("Expected fallback for a negative value, got %d", got)
	}

	t.Setenv("CREW_INT_PROBE", "not-a-number")
	if got := envInt("CREW_INT_PROBE", 3); got != 3 {
		t.Errorf("Expected fallback for a malformed value, got %d", got)
	}

	if got := envInt("CREW_INT_PROBE_UNSET", 5); got != 5 {
		t.Errorf("Expected fallback for an unset variable, got %d", got)
	}
}
