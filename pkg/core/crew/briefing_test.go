package crew

import (
	"strings"
	"testing"
	"time"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
)

func TestDealSummary(t *testing.T) {
	summary := DealSummary("12 Oak St, Springfield", referenceDeal(), screening.StrategyPassiveIncome)

	expected := []string{
		"Property: 12 Oak St, Springfield",
		"Purchase price: $475000",
		"Monthly rent: $3400 ($40800/yr gross)",
		"Operating expenses: $14000/yr",
		"Financing: 25.0% down, 7.25% APR, 30-year term",
		"Strategy: Passive Income",
	}
	for _, want := range expected {
		if !strings.Contains(summary, want) {
			t.Errorf("Expected summary to contain %q, got:\n%s", want, summary)
		}
	}
}

func TestDealSummary_AllCash(t *testing.T) {
	deal := referenceDeal()
	deal.DownPaymentPercent = 100

	summary := DealSummary("12 Oak St", deal, screening.StrategyPassiveIncome)

	if !strings.Contains(summary, "Financing: all cash") {
		t.Errorf("Expected all-cash financing line, got:\n%s", summary)
	}
	if strings.Contains(summary, "APR") {
		t.Errorf("Expected no loan terms for an all-cash deal, got:\n%s", summary)
	}
}

func TestEngineBrief_NilMetrics(t *testing.T) {
	if got := EngineBrief(nil, nil, nil); got != "No computed metrics available." {
		t.Errorf("Expected placeholder for nil metrics, got %q", got)
	}
}

func TestEngineBrief_RendersSentinels(t *testing.T) {
	// All-cash purchase: no loan, so cash-on-cash and DSCR are undefined and
	// the brief must show their sentinels instead of fake zeros.
	deal := referenceDeal()
	deal.DownPaymentPercent = 100

	metrics, err := finance.ComputeWith(deal, finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("ComputeWith failed: %v", err)
	}

	brief := EngineBrief(metrics, nil, nil)

	if !strings.Contains(brief, "Cash-on-cash: N/A") {
		t.Errorf("Expected N/A cash-on-cash for an all-cash deal, got:\n%s", brief)
	}
	if !strings.Contains(brief, "DSCR: N/A") {
		t.Errorf("Expected N/A DSCR for an all-cash deal, got:\n%s", brief)
	}
	// 14000 expenses over 40800 gross rent.
	if !strings.Contains(brief, "Break-even occupancy: 34.31%") {
		t.Errorf("Expected break-even occupancy 34.31%%, got:\n%s", brief)
	}
	if !strings.Contains(brief, "NOI: $26800.00/yr") {
		t.Errorf("Expected NOI line, got:\n%s", brief)
	}
}

func TestEngineBrief_IncludesScreeningAndExit(t *testing.T) {
	deal := referenceDeal()
	metrics, err := finance.ComputeWith(deal, finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("ComputeWith failed: %v", err)
	}
	exit, err := finance.AnalyzeExitWith(deal, finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("AnalyzeExitWith failed: %v", err)
	}
	scr := screening.Screen(metrics, screening.StrategyPassiveIncome)

	brief := EngineBrief(metrics, exit, scr)

	// DSCR below 1 rates the deal high risk.
	if !strings.Contains(brief, "Screening: HIGH risk") {
		t.Errorf("Expected screening line with HIGH risk, got:\n%s", brief)
	}
	if !strings.Contains(brief, "-year hold: total profit") {
		t.Errorf("Expected exit analysis line, got:\n%s", brief)
	}
	if !strings.Contains(brief, "Flags: cash-flow negative") {
		t.Errorf("Expected engine flags line, got:\n%s", brief)
	}
}

func TestFormatTranscript(t *testing.T) {
	history := []CrewMessage{
		{
			AgentRole: RoleEngine,
			AgentName: "Metrics Engine",
			Content:   "all figures computed",
			Timestamp: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		},
	}

	got := FormatTranscript(history)
	want := "[15:04:05] Metrics Engine (engine): all figures computed\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestEngineFigures(t *testing.T) {
	figures := EngineFigures(nil)
	if figures == nil {
		t.Fatal("Expected an empty map for nil metrics, got nil")
	}
	if len(figures) != 0 {
		t.Errorf("Expected no figures for nil metrics, got %d", len(figures))
	}

	metrics, err := finance.ComputeWith(referenceDeal(), finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("ComputeWith failed: %v", err)
	}
	figures = EngineFigures(metrics)

	for _, key := range []string{"noi", "cap_rate", "monthly_cash_flow", "annual_cash_flow", "dscr", "cash_on_cash_return"} {
		if _, ok := figures[key]; !ok {
			t.Errorf("Expected figure %q for a financed deal", key)
		}
	}
	if figures["noi"] != 26800 {
		t.Errorf("Expected NOI 26800, got %.2f", figures["noi"])
	}
}

func TestEngineFigures_SkipsUndefinedMetrics(t *testing.T) {
	deal := referenceDeal()
	deal.DownPaymentPercent = 100

	metrics, err := finance.ComputeWith(deal, finance.DefaultAssumptions())
	if err != nil {
		t.Fatalf("ComputeWith failed: %v", err)
	}
	figures := EngineFigures(metrics)

	if _, ok := figures["dscr"]; ok {
		t.Error("Expected no DSCR figure for an all-cash deal")
	}
	if _, ok := figures["cash_on_cash_return"]; ok {
		t.Error("Expected no cash-on-cash figure for an all-cash deal")
	}
	if _, ok := figures["noi"]; !ok {
		t.Error("Expected NOI to always be present")
	}
}

func TestRiskHighlights(t *testing.T) {
	if got := RiskHighlights(nil); got != nil {
		t.Errorf("Expected nil highlights for nil screening, got %v", got)
	}

	scr := &screening.Result{
		Strategy: screening.StrategyPassiveIncome,
		DecisionPoints: []screening.DecisionPoint{
			screening.DecisionNegativeCashFlow,
			screening.DecisionHighRiskDetected,
			screening.DecisionExceptionalOpportunity,
		},
	}

	risks := RiskHighlights(scr)
	if len(risks) != 2 {
		t.Fatalf("Expected 2 risk lines (opportunity flags skipped), got %d: %v", len(risks), risks)
	}
	if !strings.Contains(risks[0], "Rent does not cover") {
		t.Errorf("Expected negative cash flow risk line, got %q", risks[0])
	}
	if !strings.Contains(risks[1], "HIGH risk") {
		t.Errorf("Expected high risk line, got %q", risks[1])
	}
}
