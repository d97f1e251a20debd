package crew

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/guardrails"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/market"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/utils"
)

// Per-stage guardrail retry budget. Intermediate stages get one corrective
// rewrite; the final recommendation carries its own configurable budget.
const (
	stageRetryBudget    = 1
	defaultFinalRetries = 5
)

// EvaluationOrchestrator manages the state and execution of a single
// property evaluation
type EvaluationOrchestrator struct {
	ID           string
	Address      string
	Strategy     screening.Strategy
	ListingURL   string
	IsSimulation bool
	Status       EvaluationStatus
	Stage        int // Current stage (0=Engine, 1=Data, 2=Modeling, 3=Alignment, 4=Recommendation)
	History      []CrewMessage
	Shared       *EvaluationContext
	FinalReport  *AdvisoryReport
	UpdatedAt    time.Time

	AgentManager *agent.Manager
	Repo         *CrewRepo

	// Streaming support
	subscribers []chan CrewMessage
	mu          sync.RWMutex
}

// NewOrchestrator creates a new evaluation instance
func NewOrchestrator(id, address string, deal finance.PropertyDeal, strategy screening.Strategy, listingURL string, isSimulation bool, mgr *agent.Manager, repo *CrewRepo) *EvaluationOrchestrator {
	return &EvaluationOrchestrator{
		ID:           id,
		Address:      address,
		Strategy:     strategy,
		ListingURL:   listingURL,
		IsSimulation: isSimulation,
		Status:       StatusIdle,
		Stage:        StageEngine,
		AgentManager: mgr,
		Repo:         repo,
		Shared: &EvaluationContext{
			Address:  address,
			Deal:     deal,
			Strategy: strategy,
			History:  []CrewMessage{},
		},
		UpdatedAt: time.Now(),
	}
}

// Subscribe adds a client channel for real-time updates
func (o *EvaluationOrchestrator) Subscribe() (chan CrewMessage, []CrewMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Create buffered channel to avoid blocking
	ch := make(chan CrewMessage, 100)
	o.subscribers = append(o.subscribers, ch)

	// Return current history for replay
	historyCopy := make([]CrewMessage, len(o.History))
	copy(historyCopy, o.History)

	return ch, historyCopy
}

// Unsubscribe removes a client channel
func (o *EvaluationOrchestrator) Unsubscribe(ch chan CrewMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, sub := range o.subscribers {
		if sub == ch {
			o.subscribers = append(o.subscribers[:i], o.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// broadcast sends a message to all active subscribers
func (o *EvaluationOrchestrator) broadcast(msg CrewMessage) {
	o.mu.Lock()

	o.History = append(o.History, msg)
	o.Shared.History = append(o.Shared.History, msg)
	o.UpdatedAt = time.Now()

	// Persist message asynchronously to avoid blocking broadcast
	if o.Repo != nil && !o.IsSimulation {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := o.Repo.AddMessage(ctx, o.ID, msg); err != nil {
				fmt.Printf("Error persisting message: %v\n", err)
			}
		}()
	}

	for _, ch := range o.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message if client is too slow to avoid blocking orchestrator
		}
	}

	o.mu.Unlock()
}

// Run executes the evaluation workflow
func (o *EvaluationOrchestrator) Run(ctx context.Context) {
	o.mu.Lock()
	o.Status = StatusRunning
	o.mu.Unlock()

	// Persist Status
	if o.Repo != nil && !o.IsSimulation {
		if err := o.Repo.UpdateStatus(ctx, o.ID, StatusRunning); err != nil {
			fmt.Printf("Error updating status: %v\n", err)
		}
	}

	// ========================
	// Stage 0: Deterministic Engine Baseline
	// ========================
	// Every figure the crew quotes originates here, before any agent speaks.
	if err := o.prepareEngineBaseline(); err != nil {
		o.failEvaluation("Failed to compute engine baseline: " + err.Error())
		return
	}

	// Initialize Agents
	var dataAgent, modelingAgent, alignmentAgent, advisorAgent CrewAgent

	if o.IsSimulation {
		dataAgent = NewMockAgent(RoleDataIntegration)
		modelingAgent = NewMockAgent(RoleFinancialModeling)
		alignmentAgent = NewMockAgent(RoleStrategyAlignment)
		advisorAgent = NewMockAgent(RoleInvestmentAdvisor)
	} else if o.AgentManager != nil {
		dataAgent = NewDataIntegrationUniversalAgent(o.AgentManager)
		modelingAgent = NewFinancialModelingUniversalAgent(o.AgentManager)
		alignmentAgent = NewStrategyAlignmentUniversalAgent(o.AgentManager)
		advisorAgent = NewInvestmentAdvisorUniversalAgent(o.AgentManager)
	} else {
		// No agent manager wired: fall back to direct Gemini integration.
		// All four constructors fail the same way (missing GEMINI_API_KEY),
		// so the first error is the whole story.
		var err error
		if dataAgent, err = NewDataIntegrationAgent(ctx); err != nil {
			o.failEvaluation("No model provider available: " + err.Error())
			return
		}
		if modelingAgent, err = NewFinancialModelingAgent(ctx); err != nil {
			o.failEvaluation("No model provider available: " + err.Error())
			return
		}
		if alignmentAgent, err = NewStrategyAlignmentAgent(ctx); err != nil {
			o.failEvaluation("No model provider available: " + err.Error())
			return
		}
		if advisorAgent, err = NewInvestmentAdvisorAgent(ctx); err != nil {
			o.failEvaluation("No model provider available: " + err.Error())
			return
		}
	}

	// ========================
	// Stage 1: Data Integration
	// ========================
	o.setStage(StageDataIntegration)
	o.broadcast(SystemMessage("Stage 1: Data Integration"))
	o.fetchComps(ctx)

	content, _ := o.executeGuardedTurn(ctx, dataAgent, StageDataIntegration, guardrails.DataAnalysisSet(), stageRetryBudget)
	o.recordStageOutput(StageDataIntegration, content)

	// ========================
	// Stage 2: Financial Modeling
	// ========================
	o.setStage(StageFinancialModeling)
	o.broadcast(SystemMessage("Stage 2: Financial Modeling"))

	content, _ = o.executeGuardedTurn(ctx, modelingAgent, StageFinancialModeling, guardrails.FinancialModelingSet(), stageRetryBudget)
	o.recordStageOutput(StageFinancialModeling, content)

	// ========================
	// Stage 3: Strategy Alignment & Risk
	// ========================
	o.setStage(StageStrategyAlignment)
	o.broadcast(SystemMessage("Stage 3: Strategy Alignment & Risk"))

	content, _ = o.executeGuardedTurn(ctx, alignmentAgent, StageStrategyAlignment, guardrails.RiskAssessmentSet(), stageRetryBudget)
	o.recordStageOutput(StageStrategyAlignment, content)

	// ========================
	// Stage 4: Final Recommendation
	// ========================
	o.setStage(StageRecommendation)
	o.broadcast(SystemMessage("Stage 4: Final Recommendation"))

	finalSet := append(guardrails.FinalRecommendationSet(), guardrails.ReportStructure(reportSections...))
	narrative, retries := o.executeGuardedTurn(ctx, advisorAgent, StageRecommendation,
		finalSet, envInt("FINAL_GUARDRAIL_MAX_RETRIES", defaultFinalRetries))

	o.generateFinalReport(narrative, retries)

	o.mu.Lock()
	o.Status = StatusCompleted
	o.mu.Unlock()

	// Persist Final Report
	if o.Repo != nil && !o.IsSimulation {
		if err := o.Repo.SaveFinalReport(ctx, o.FinalReport); err != nil {
			fmt.Printf("Error saving final report: %v\n", err)
		}
	}

	o.broadcast(SystemMessage("Evaluation completed."))
}

// prepareEngineBaseline runs the deterministic engine and broadcasts its
// brief as the evaluation's opening message.
func (o *EvaluationOrchestrator) prepareEngineBaseline() error {
	assumptions := finance.DefaultAssumptions()

	metrics, err := finance.ComputeWith(o.Shared.Deal, assumptions)
	if err != nil {
		return err
	}

	exit, err := finance.AnalyzeExitWith(o.Shared.Deal, assumptions)
	if err != nil {
		// The metrics computed, so treat a failed exit projection as a
		// degraded run rather than a fatal one.
		o.broadcast(SystemMessage(fmt.Sprintf("Exit analysis unavailable: %v", err)))
		exit = nil
	}

	scr := screening.Screen(metrics, o.Strategy)

	o.mu.Lock()
	o.Shared.Metrics = metrics
	o.Shared.Exit = exit
	o.Shared.Screening = scr
	o.mu.Unlock()

	o.broadcast(CrewMessage{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Stage:     StageEngine,
		AgentRole: RoleEngine,
		AgentName: GetAgentName(RoleEngine),
		Content:   EngineBrief(metrics, exit, scr),
		Timestamp: time.Now(),
	})
	return nil
}

// fetchComps pulls rental comps when a listing URL was provided and the
// scrape tool is enabled. Failures degrade to a moderator note; the crew can
// evaluate a deal without comps.
func (o *EvaluationOrchestrator) fetchComps(ctx context.Context) {
	if o.ListingURL == "" || !envBool("CREW_SCRAPE_TOOL_ENABLED", false) {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	report, err := market.NewCompsClient(nil).FetchComps(fetchCtx, o.ListingURL, o.Address, o.Shared.Deal.MonthlyRent)
	if err != nil {
		o.broadcast(SystemMessage(fmt.Sprintf("Comps fetch failed: %v", err)))
		return
	}

	o.mu.Lock()
	o.Shared.Comps = report
	o.mu.Unlock()

	o.broadcast(SystemMessage(fmt.Sprintf("Fetched %d rental comps for %s.", report.SampleSize, o.Address)))
}

// executeGuardedTurn runs one agent turn and screens the draft against the
// stage's guardrail set. Violating drafts are bounced back to the agent with
// corrective feedback until a draft passes or the retry budget is spent.
// Returns the last draft and the number of retries consumed.
func (o *EvaluationOrchestrator) executeGuardedTurn(ctx context.Context, ag CrewAgent, stage int, set []guardrails.Guardrail, maxRetries int) (string, int) {
	retries := 0
	for {
		o.broadcast(SystemMessage(fmt.Sprintf("%s is thinking...", ag.Name())))

		// Sub-context with timeout per attempt to prevent stalling
		turnCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		msg, err := ag.Generate(turnCtx, o.Shared)
		cancel()
		if err != nil {
			// Log error but continue the evaluation
			o.broadcast(SystemMessage(fmt.Sprintf("Error from %s: %v", ag.Name(), err)))
			o.setRetryFeedback("")
			return "", retries
		}

		msg.Stage = stage
		msg.ID = fmt.Sprintf("%d", time.Now().UnixNano())
		o.broadcast(msg)

		violations := guardrails.Run(msg.Content, set)
		if len(violations) == 0 {
			o.setRetryFeedback("")
			return msg.Content, retries
		}

		if retries >= maxRetries {
			o.broadcast(SystemMessage(fmt.Sprintf("%s: %d guardrail violation(s) remain after %d retries; keeping the last draft.",
				ag.Name(), len(violations), retries)))
			o.setRetryFeedback("")
			return msg.Content, retries
		}

		retries++
		o.setRetryFeedback(guardrails.Feedback(violations))
		o.broadcast(SystemMessage(fmt.Sprintf("GUARDRAIL VIOLATION from %s (%d rule(s)); requesting a rewrite.",
			ag.Name(), len(violations))))
	}
}

func (o *EvaluationOrchestrator) setStage(stage int) {
	o.mu.Lock()
	o.Stage = stage
	o.mu.Unlock()
}

// recordStageOutput stores a stage's accepted draft where later prompts pick
// it up.
func (o *EvaluationOrchestrator) recordStageOutput(stage int, content string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch stage {
	case StageDataIntegration:
		o.Shared.DataFindings = content
	case StageFinancialModeling:
		o.Shared.ModelingSummary = content
	case StageStrategyAlignment:
		o.Shared.AlignmentAssessment = content
	}
}

func (o *EvaluationOrchestrator) setRetryFeedback(feedback string) {
	o.mu.Lock()
	o.Shared.RetryFeedback = feedback
	o.mu.Unlock()
}

var jsonBlockPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// verdictOrder lists the recognized verdicts, compound phrases first so
// "BUY" never shadows "CONDITIONAL BUY" or "BUY WITH CAUTION".
var verdictOrder = []string{
	"STRONG BUY",
	"BUY WITH CAUTION",
	"CONDITIONAL BUY",
	"HOLD FOR NEGOTIATION",
	"BUY",
	"HOLD",
	"PASS",
}

var verdictPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, v := range verdictOrder {
		verdictPatterns[v] = regexp.MustCompile(`\b` + v + `\b`)
	}
}

// detectVerdict scans text for the highest-priority verdict phrase present.
func detectVerdict(text string) string {
	upper := strings.ToUpper(text)
	for _, v := range verdictOrder {
		if verdictPatterns[v].MatchString(upper) {
			return v
		}
	}
	return ""
}

// generateFinalReport extracts the structured report from the advisor's
// narrative. The JSON block is the primary figure source; the deterministic
// engine is the fallback, so the report always carries figures.
func (o *EvaluationOrchestrator) generateFinalReport(narrative string, retries int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Models sometimes wrap the whole response in a fence; strip it so the
	// report stores as markdown and the JSON block is findable.
	narrative = utils.CleanMarkdown(narrative)

	var payload struct {
		Verdict string             `json:"verdict"`
		Figures map[string]float64 `json:"figures"`
	}
	if matches := jsonBlockPattern.FindStringSubmatch(narrative); len(matches) > 1 {
		// utils.SmartParse handles repair, comments, and lenient syntax
		if _, err := utils.SmartParse(matches[1], &payload); err != nil {
			fmt.Printf("Advisor JSON block did not parse: %v\n", err)
		}
	}

	figures := payload.Figures
	source := FigureSourceNarrative
	if len(figures) == 0 {
		fmt.Println("Warning: no figures parsed from the advisor narrative. Falling back to engine metrics.")
		figures = EngineFigures(o.Shared.Metrics)
		source = FigureSourceEngine
	}

	verdict := detectVerdict(payload.Verdict)
	if verdict == "" {
		verdict = detectVerdict(narrative)
	}
	if verdict == "" && o.Shared.Screening != nil {
		verdict = string(o.Shared.Screening.QuickVerdict)
	}
	if verdict == "" {
		verdict = "HOLD"
	}

	risks := RiskHighlights(o.Shared.Screening)
	if len(risks) == 0 {
		risks = []string{"See narrative for the full risk discussion"}
	}

	var steps []string
	if o.Shared.Screening != nil {
		steps = o.Shared.Screening.NextSteps
	}

	o.FinalReport = &AdvisoryReport{
		EvaluationID:     o.ID,
		Address:          o.Address,
		Strategy:         o.Strategy,
		CompletionTime:   time.Now(),
		Narrative:        narrative,
		Verdict:          verdict,
		Figures:          figures,
		FigureSource:     source,
		KeyRisks:         risks,
		NextSteps:        steps,
		GuardrailRetries: retries,
	}
}

func (o *EvaluationOrchestrator) failEvaluation(reason string) {
	o.mu.Lock()
	o.Status = StatusFailed
	o.mu.Unlock()

	if o.Repo != nil && !o.IsSimulation {
		// Use background context as original context might be canceled
		go o.Repo.UpdateStatus(context.Background(), o.ID, StatusFailed)
	}

	o.broadcast(SystemMessage("Evaluation failed: " + reason))
}

func SystemMessage(content string) CrewMessage {
	return CrewMessage{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		AgentRole: RoleModerator,
		AgentName: "System",
		Content:   content,
		Timestamp: time.Now(),
	}
}

// envBool reads a toggle env var: "1", "true", "yes", "on" (any case)
// enable it.
func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// envInt reads a non-negative integer env var, keeping the fallback on any
// parse failure.
func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
