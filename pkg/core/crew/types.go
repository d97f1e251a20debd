package crew

import (
	"time"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/market"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
)

// AgentRole defines the specific persona of a crew agent
type AgentRole string

const (
	RoleDataIntegration   AgentRole = "data_integration_specialist"
	RoleFinancialModeling AgentRole = "financial_modeling_analyst"
	RoleStrategyAlignment AgentRole = "strategy_alignment_advisor"
	RoleInvestmentAdvisor AgentRole = "investment_advisor"
	RoleEngine            AgentRole = "engine"    // Deterministic metrics engine
	RoleModerator         AgentRole = "moderator" // System notifications
)

// CrewMessage represents a single message in the evaluation stream
type CrewMessage struct {
	ID         string    `json:"id"`
	Stage      int       `json:"stage"`
	AgentRole  AgentRole `json:"agent_role"`
	AgentName  string    `json:"agent_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	References []string  `json:"references,omitempty"` // Web sources or data citations
}

// EvaluationContext holds all facts shared between crew agents. The engine
// outputs are filled before any agent speaks; the stage summaries accumulate
// as the crew progresses, so later agents build on earlier findings.
type EvaluationContext struct {
	Address  string               `json:"address"`
	Deal     finance.PropertyDeal `json:"deal"`
	Strategy screening.Strategy   `json:"strategy"`

	// Deterministic engine outputs (single source of truth for figures)
	Metrics   *finance.MetricsResult `json:"metrics,omitempty"`
	Exit      *finance.ExitAnalysis  `json:"exit,omitempty"`
	Screening *screening.Result      `json:"screening,omitempty"`
	Comps     *market.CompsReport    `json:"comps,omitempty"`

	// Stage handoffs
	DataFindings        string `json:"data_findings,omitempty"`
	ModelingSummary     string `json:"modeling_summary,omitempty"`
	AlignmentAssessment string `json:"alignment_assessment,omitempty"`

	History []CrewMessage `json:"history"`

	// RetryFeedback carries guardrail violation feedback into an agent's
	// next draft. Cleared once a draft passes.
	RetryFeedback string `json:"retry_feedback,omitempty"`
}

// EvaluationStatus enumerates the lifecycle states of an evaluation
type EvaluationStatus string

const (
	StatusIdle      EvaluationStatus = "idle"
	StatusRunning   EvaluationStatus = "running"
	StatusCompleted EvaluationStatus = "completed"
	StatusFailed    EvaluationStatus = "failed"
)

// Evaluation stages, in execution order. Stage 0 is deterministic; the rest
// are agent turns.
const (
	StageEngine            = 0
	StageDataIntegration   = 1
	StageFinancialModeling = 2
	StageStrategyAlignment = 3
	StageRecommendation    = 4
)

// FigureSource records where an AdvisoryReport's figures came from.
const (
	FigureSourceNarrative = "narrative"       // parsed from the advisor's JSON block
	FigureSourceEngine    = "engine_fallback" // recovered from the metrics engine
)

// AdvisoryReport aggregates the final recommendation and its structured
// figures. Narrative is the advisor's markdown; Figures are machine-readable
// and always traceable to a source.
type AdvisoryReport struct {
	EvaluationID     string             `json:"evaluation_id"`
	Address          string             `json:"address"`
	Strategy         screening.Strategy `json:"strategy"`
	CompletionTime   time.Time          `json:"completion_time"`
	Narrative        string             `json:"narrative"`
	Verdict          string             `json:"verdict"`
	Figures          map[string]float64 `json:"figures"`
	FigureSource     string             `json:"figure_source"`
	KeyRisks         []string           `json:"key_risks"`
	NextSteps        []string           `json:"next_steps"`
	GuardrailRetries int                `json:"guardrail_retries"`
}
