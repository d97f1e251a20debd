package screening

import (
	"math"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
)

// =============================================================================
// RISK RATING
// =============================================================================

// RiskRating is the preliminary risk level of a deal.
type RiskRating string

const (
	RiskLow      RiskRating = "LOW"
	RiskModerate RiskRating = "MODERATE"
	RiskHigh     RiskRating = "HIGH"
)

// assessRisk rates a deal from monthly cash flow and debt coverage. Losing
// more than $500/month or failing to cover the mortgage from operations is
// high risk; any loss or thin coverage is moderate. All-cash deals have no
// coverage question, so only the cash flow test applies.
func assessRisk(m *finance.MetricsResult) RiskRating {
	weakDSCR := m.DSCR.Valid && m.DSCR.Value < 1.0
	thinDSCR := m.DSCR.Valid && m.DSCR.Value < 1.15

	switch {
	case m.MonthlyCashFlow < -500 || weakDSCR:
		return RiskHigh
	case m.MonthlyCashFlow < 0 || thinDSCR:
		return RiskModerate
	}
	return RiskLow
}

// =============================================================================
// STRATEGY ALIGNMENT
// =============================================================================

// Alignment bonuses start from a neutral 5 and cap at 10. The monthly cash
// flow floor for passive income is a fixed dollar figure, not a profile
// threshold.
const (
	alignmentBase          = 5.0
	alignmentCap           = 10.0
	alignmentCashFlowFloor = 300.0
	alignmentIRRFloor      = 0.12
	alignmentLowCapCeiling = 0.05
	alignmentMinimum       = 6.0
)

// scoreAlignment estimates how well the computed metrics fit the chosen
// strategy on a 0..10 scale. Passive income rewards yield and steady cash;
// aggressive growth rewards IRR and low-cap appreciation markets; fix and
// flip gets a flat bonus since rental metrics barely describe it.
func scoreAlignment(m *finance.MetricsResult, strategy Strategy) float64 {
	profile := strategy.Profile()
	score := alignmentBase

	switch strategy {
	case StrategyPassiveIncome:
		if m.CashOnCashReturn.Valid && m.CashOnCashReturn.Value > profile.MinCashOnCash {
			score += 2
		}
		if m.MonthlyCashFlow > alignmentCashFlowFloor {
			score += 2
		}
		if m.CapRate > profile.MinCapRate {
			score += 1
		}
	case StrategyAggressiveGrowth:
		if m.EstimatedIRR.Valid && m.EstimatedIRR.Value > alignmentIRRFloor {
			score += 3
		}
		if m.CapRate < alignmentLowCapCeiling {
			score += 1
		}
	case StrategyFixAndFlip:
		score += 2
	}

	return math.Min(alignmentCap, score)
}

// =============================================================================
// DECISION POINTS
// =============================================================================

// DecisionPoint flags a condition that should branch the downstream
// workflow: escalate, gather more data, or fast-track.
type DecisionPoint string

const (
	DecisionNegativeCashFlow       DecisionPoint = "negative_cash_flow"
	DecisionHighRiskDetected       DecisionPoint = "high_risk_detected"
	DecisionStrategyMismatch       DecisionPoint = "strategy_mismatch"
	DecisionInsufficientData       DecisionPoint = "insufficient_data"
	DecisionExceptionalOpportunity DecisionPoint = "exceptional_opportunity"
)

// Thresholds for the exceptional opportunity fast track.
const (
	exceptionalCoC     = 0.12
	exceptionalCapRate = 0.08
)

// checkDecisionPoints collects every triggered decision point in a fixed
// order. Insufficient data fires when the metric the strategy is gated on
// came back undefined (all-cash deals screened for yield, cash-flow profiles
// with no computable IRR screened for growth).
func checkDecisionPoints(m *finance.MetricsResult, strategy Strategy, risk RiskRating, alignment float64) []DecisionPoint {
	points := make([]DecisionPoint, 0, 3)

	if m.MonthlyCashFlow < 0 {
		points = append(points, DecisionNegativeCashFlow)
	}
	if risk == RiskHigh {
		points = append(points, DecisionHighRiskDetected)
	}
	if alignment < alignmentMinimum {
		points = append(points, DecisionStrategyMismatch)
	}
	if (strategy == StrategyPassiveIncome && !m.CashOnCashReturn.Valid) ||
		(strategy == StrategyAggressiveGrowth && !m.EstimatedIRR.Valid) {
		points = append(points, DecisionInsufficientData)
	}
	if m.CashOnCashReturn.Valid && m.CashOnCashReturn.Value > exceptionalCoC && m.CapRate > exceptionalCapRate {
		points = append(points, DecisionExceptionalOpportunity)
	}

	return points
}

// nextSteps maps each decision point to its follow-up guidance.
func nextSteps(points []DecisionPoint) []string {
	steps := make([]string, 0, len(points))
	for _, p := range points {
		switch p {
		case DecisionNegativeCashFlow:
			steps = append(steps, "Property shows negative cash flow: verify rent estimates and expense projections before proceeding.")
		case DecisionHighRiskDetected:
			steps = append(steps, "High risk factors detected: recommend detailed due diligence and a property inspection.")
		case DecisionStrategyMismatch:
			steps = append(steps, "Property does not align well with the selected strategy: review alternative strategies or property types.")
		case DecisionInsufficientData:
			steps = append(steps, "A metric this strategy depends on is undefined for this deal shape: supply financing details or screen under a different strategy.")
		case DecisionExceptionalOpportunity:
			steps = append(steps, "Exceptional opportunity: fast-track due diligence and financing pre-approval.")
		}
	}
	return steps
}

// =============================================================================
// COMPOSITE SCORE AND VERDICT
// =============================================================================

// Component weights of the composite score. They sum to 1.
const (
	weightCashFlow = 0.30
	weightCapRate  = 0.25
	weightDSCR     = 0.20
	weightCoC      = 0.25
)

// compositeScore collapses the deal into a single 0..100 number by scoring
// each metric against its bands and weighting. An undefined DSCR means no
// debt at all (scores full); an undefined CoC is scored neutral since the
// cap rate component already grades an all-cash deal's yield.
func compositeScore(m *finance.MetricsResult) int {
	cashFlowScore := 0.0
	switch {
	case m.MonthlyCashFlow >= alignmentCashFlowFloor:
		cashFlowScore = 100
	case m.MonthlyCashFlow >= 0:
		cashFlowScore = 60
	case m.MonthlyCashFlow >= -500:
		cashFlowScore = 30
	}

	capScore := 20.0
	switch GradeCapRate(m.CapRate) {
	case BandExcellent:
		capScore = 100
	case BandGood:
		capScore = 75
	case BandAcceptable:
		capScore = 50
	}

	dscrScore := 100.0
	if m.DSCR.Valid {
		switch {
		case m.DSCR.Value >= 1.25:
			dscrScore = 100
		case m.DSCR.Value >= 1.15:
			dscrScore = 75
		case m.DSCR.Value >= 1.0:
			dscrScore = 50
		default:
			dscrScore = 0
		}
	}

	cocScore := 50.0
	if m.CashOnCashReturn.Valid {
		switch GradeCashOnCash(m.CashOnCashReturn.Value) {
		case BandExcellent:
			cocScore = 100
		case BandGood:
			cocScore = 75
		case BandAcceptable:
			cocScore = 50
		default:
			cocScore = 25
		}
	}

	score := weightCashFlow*cashFlowScore + weightCapRate*capScore +
		weightDSCR*dscrScore + weightCoC*cocScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// Verdict is the quick screening call, decided by fixed rules rather than
// the banded composite score.
type Verdict string

const (
	VerdictPass               Verdict = "PASS"
	VerdictBuy                Verdict = "BUY"
	VerdictHoldForNegotiation Verdict = "HOLD FOR NEGOTIATION"
	VerdictBuyWithCaution     Verdict = "BUY WITH CAUTION"
)

// quickVerdict applies the fast screening rules. A passive income deal that
// loses money monthly is an immediate pass; strong yield with positive cash
// is a buy; positive cash without the yield is worth negotiating.
func quickVerdict(m *finance.MetricsResult, strategy Strategy) Verdict {
	coc := 0.0
	if m.CashOnCashReturn.Valid {
		coc = m.CashOnCashReturn.Value
	}
	switch {
	case strategy == StrategyPassiveIncome && m.MonthlyCashFlow < 0:
		return VerdictPass
	case coc >= 0.08 && m.MonthlyCashFlow > 0:
		return VerdictBuy
	case m.MonthlyCashFlow > 0:
		return VerdictHoldForNegotiation
	}
	return VerdictBuyWithCaution
}

// =============================================================================
// SCREENING
// =============================================================================

// Result is the full screening of one computed deal under one strategy.
type Result struct {
	Strategy       Strategy        `json:"strategy"`
	RiskRating     RiskRating      `json:"risk_rating"`
	AlignmentScore float64         `json:"alignment_score"` // 0..10
	Score          int             `json:"score"`           // 0..100 composite
	Recommendation Recommendation  `json:"recommendation"`
	QuickVerdict   Verdict         `json:"quick_verdict"`
	DecisionPoints []DecisionPoint `json:"decision_points"`
	NextSteps      []string        `json:"next_steps"`
}

// Screen evaluates a computed metrics bundle against a strategy. Pure and
// deterministic, like the engine that produced the bundle.
func Screen(m *finance.MetricsResult, strategy Strategy) *Result {
	risk := assessRisk(m)
	alignment := scoreAlignment(m, strategy)
	points := checkDecisionPoints(m, strategy, risk, alignment)
	score := compositeScore(m)

	return &Result{
		Strategy:       strategy,
		RiskRating:     risk,
		AlignmentScore: alignment,
		Score:          score,
		Recommendation: RecommendForScore(score),
		QuickVerdict:   quickVerdict(m, strategy),
		DecisionPoints: points,
		NextSteps:      nextSteps(points),
	}
}
