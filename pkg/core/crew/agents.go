package crew

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// CrewAgent defines the interface for all participating agents
type CrewAgent interface {
	Role() AgentRole
	// Name returns the display name of the agent
	Name() string
	// Generate produces the agent's contribution from the current context
	Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error)
}

// BaseAgent provides common functionality for agents using direct Gemini integration
type BaseAgent struct {
	role         AgentRole
	modelName    string
	client       *genai.Client
	systemPrompt string
}

// UniversalAgent provides functionality for agents using the global agent.Manager (configurable provider)
type UniversalAgent struct {
	role         AgentRole
	agentManager *agent.Manager
	systemPrompt string
}

func NewBaseAgent(ctx context.Context, role AgentRole, sysPrompt string) (*BaseAgent, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v", err)
	}

	return &BaseAgent{
		role:         role,
		modelName:    "gemini-2.0-flash-exp",
		client:       client,
		systemPrompt: sysPrompt,
	}, nil
}

func NewUniversalAgent(role AgentRole, mgr *agent.Manager, sysPrompt string) *UniversalAgent {
	return &UniversalAgent{
		role:         role,
		agentManager: mgr,
		systemPrompt: sysPrompt,
	}
}

func (a *BaseAgent) Role() AgentRole {
	return a.role
}

func (a *UniversalAgent) Role() AgentRole {
	return a.role
}

func (a *BaseAgent) Name() string {
	return GetAgentName(a.role)
}

func (a *UniversalAgent) Name() string {
	return GetAgentName(a.role)
}

func GetAgentName(role AgentRole) string {
	switch role {
	case RoleDataIntegration:
		return "Data Integration Specialist"
	case RoleFinancialModeling:
		return "Financial Modeling Analyst"
	case RoleStrategyAlignment:
		return "Strategy Alignment Advisor"
	case RoleInvestmentAdvisor:
		return "Senior Investment Advisor"
	case RoleEngine:
		return "Metrics Engine"
	default:
		return "Unknown Agent"
	}
}

// generate calls Gemini directly with the agent's system prompt
func (a *BaseAgent) generate(ctx context.Context, prompt string) (string, error) {
	model := a.client.GenerativeModel(a.modelName)
	model.SetTemperature(0.7)
	if n := envInt("AGENT_MAX_OUTPUT_TOKENS", 0); n > 0 {
		model.SetMaxOutputTokens(int32(n))
	}

	fullPrompt := fmt.Sprintf("%s\n\nTask: %s", a.systemPrompt, prompt)

	resp, err := model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I have nothing to add.", nil
	}

	// Extract text content
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

// Generate implementation for UniversalAgent using agent.Manager
func (a *UniversalAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	return CrewMessage{}, fmt.Errorf("UniversalAgent.Generate should be overridden")
}

// agentOptions assembles provider options for a turn. Search grounding is
// gated by CREW_WEB_TOOLS_ENABLED (default on); the output cap mirrors the
// deployment's per-turn token budget.
func agentOptions(webSearch bool) map[string]interface{} {
	options := map[string]interface{}{}
	if webSearch && envBool("CREW_WEB_TOOLS_ENABLED", true) {
		options["google_search"] = true
	}
	if n := envInt("AGENT_MAX_OUTPUT_TOKENS", 0); n > 0 {
		options["max_tokens"] = n
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

// appendRetryFeedback attaches guardrail feedback from a rejected draft so
// the next draft addresses it.
func appendRetryFeedback(prompt string, shared *EvaluationContext) string {
	if shared.RetryFeedback == "" {
		return prompt
	}
	return prompt + "\n\n" + shared.RetryFeedback
}

// Per-role task prompts. Both the direct-Gemini and the manager-backed
// variants of a role share these, so the two paths cannot drift apart.

func dataIntegrationPrompt(shared *EvaluationContext) string {
	var sb strings.Builder
	sb.WriteString("Assemble the market picture for this deal.\n\n")
	sb.WriteString(DealSummary(shared.Address, shared.Deal, shared.Strategy))
	sb.WriteString("\n\n")
	if shared.Comps != nil {
		sb.WriteString(shared.Comps.Summary())
	} else {
		sb.WriteString("No rental comps were retrieved for this evaluation.")
	}
	sb.WriteString("\n\nVerify the rent assumption against the comps, flag anything inconsistent in the deal terms, " +
		"and summarize the market conditions a buyer must know before going further.")
	return appendRetryFeedback(sb.String(), shared)
}

func financialModelingPrompt(shared *EvaluationContext) string {
	var sb strings.Builder
	sb.WriteString("Interpret the computed metrics for this deal.\n\n")
	sb.WriteString(DealSummary(shared.Address, shared.Deal, shared.Strategy))
	sb.WriteString("\n\n")
	// Screening interpretation belongs to the alignment stage, so it is
	// withheld here.
	sb.WriteString(EngineBrief(shared.Metrics, shared.Exit, nil))
	if shared.DataFindings != "" {
		sb.WriteString("\n=== DATA FINDINGS (previous stage) ===\n")
		sb.WriteString(shared.DataFindings)
		sb.WriteString("\n")
	}
	sb.WriteString("\nExplain what drives these numbers and what they imply over the hold period. Quote figures exactly.")
	return appendRetryFeedback(sb.String(), shared)
}

func strategyAlignmentPrompt(shared *EvaluationContext) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Assess how well this deal serves the %s strategy.\n\n", shared.Strategy))
	sb.WriteString(DealSummary(shared.Address, shared.Deal, shared.Strategy))
	sb.WriteString("\n\n")
	sb.WriteString(EngineBrief(shared.Metrics, shared.Exit, shared.Screening))
	if shared.ModelingSummary != "" {
		sb.WriteString("\n=== MODELING SUMMARY (previous stage) ===\n")
		sb.WriteString(shared.ModelingSummary)
		sb.WriteString("\n")
	}
	sb.WriteString("\nJudge the strategy fit, address every triggered decision point, and name the risks that matter most for this strategy.")
	return appendRetryFeedback(sb.String(), shared)
}

func investmentAdvisorPrompt(shared *EvaluationContext) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Produce the final advisory recommendation for %s.\n\n", shared.Address))
	sb.WriteString(DealSummary(shared.Address, shared.Deal, shared.Strategy))
	sb.WriteString("\n\n")
	sb.WriteString(EngineBrief(shared.Metrics, shared.Exit, shared.Screening))
	sb.WriteString("\n=== CREW TRANSCRIPT ===\n")
	sb.WriteString(FormatTranscript(shared.History))
	sb.WriteString("\nFollow your output template exactly, ending with the JSON block.")
	return appendRetryFeedback(sb.String(), shared)
}

// DataIntegrationAgent - direct Gemini variant
type DataIntegrationAgent struct {
	*BaseAgent
}

func NewDataIntegrationAgent(ctx context.Context) (*DataIntegrationAgent, error) {
	base, err := NewBaseAgent(ctx, RoleDataIntegration, GetSystemPrompt(RoleDataIntegration))
	if err != nil {
		return nil, err
	}
	return &DataIntegrationAgent{BaseAgent: base}, nil
}

func (a *DataIntegrationAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	content, err := a.generate(ctx, dataIntegrationPrompt(shared))
	if err != nil {
		return CrewMessage{}, err
	}
	return CrewMessage{
		AgentRole: a.Role(),
		AgentName: a.Name(),
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// DataIntegrationUniversalAgent - uses the globally configured provider
type DataIntegrationUniversalAgent struct {
	*UniversalAgent
}

func NewDataIntegrationUniversalAgent(mgr *agent.Manager) *DataIntegrationUniversalAgent {
	base := NewUniversalAgent(RoleDataIntegration, mgr, GetSystemPrompt(RoleDataIntegration))
	return &DataIntegrationUniversalAgent{UniversalAgent: base}
}

func (a *DataIntegrationUniversalAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	content, err := a.agentManager.ExecutePrompt(ctx, string(a.role), dataIntegrationPrompt(shared), a.systemPrompt, agentOptions(true))
	if err != nil {
		return CrewMessage{}, err
	}
	return CrewMessage{
		AgentRole: a.Role(),
		AgentName: a.Name(),
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// FinancialModelingAgent - direct Gemini variant
type FinancialModelingAgent struct {
	*BaseAgent
}

func NewFinancialModelingAgent(ctx context.Context) (*FinancialModelingAgent, error) {
	base, err := NewBaseAgent(ctx, RoleFinancialModeling, GetSystemPrompt(RoleFinancialModeling))
	if err != nil {
		return nil, err
	}
	return &FinancialModelingAgent{BaseAgent: base}, nil
}

func (a *FinancialModelingAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	content, err := a.generate(ctx, financialModelingPrompt(shared))
	if err != nil {
		return CrewMessage{}, err
	}
	return CrewMessage{
		AgentRole: a.Role(),
		AgentName: a.Name(),
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// FinancialModelingUniversalAgent - uses the globally configured provider
type FinancialModelingUniversalAgent struct {
	*UniversalAgent
}

func NewFinancialModelingUniversalAgent(mgr *agent.Manager) *FinancialModelingUniversalAgent {
	base := NewUniversalAgent(RoleFinancialModeling, mgr, GetSystemPrompt(RoleFinancialModeling))
	return &FinancialModelingUniversalAgent{UniversalAgent: base}
}

func (a *FinancialModelingUniversalAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	// The modeler reasons over precomputed figures; it never needs the web.
	content, err := a.agentManager.ExecutePrompt(ctx, string(a.role), financialModelingPrompt(shared), a.systemPrompt, agentOptions(false))
	if err != nil {
		return CrewMessage{}, err
	}
	return CrewMessage{
		AgentRole: a.Role(),
		AgentName: a.Name(),
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// StrategyAlignmentAgent - direct Gemini variant
type StrategyAlignmentAgent struct {
	*BaseAgent
}

func NewStrategyAlignmentAgent(ctx context.Context) (*StrategyAlignmentAgent, error) {
	base, err := NewBaseAgent(ctx, RoleStrategyAlignment, GetSystemPrompt(RoleStrategyAlignment))
	if err != nil {
		return nil, err
	}
	return &StrategyAlignmentAgent{BaseAgent: base}, nil
}

func (a *StrategyAlignmentAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	content, err := a.generate(ctx, strategyAlignmentPrompt(shared))
	if err != nil {
		return CrewMessage{}, err
	}
	return CrewMessage{
		AgentRole: a.Role(),
		AgentName: a.Name(),
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// StrategyAlignmentUniversalAgent - uses the globally configured provider
type StrategyAlignmentUniversalAgent struct {
	*UniversalAgent
}

func NewStrategyAlignmentUniversalAgent(mgr *agent.Manager) *StrategyAlignmentUniversalAgent {
	base := NewUniversalAgent(RoleStrategyAlignment, mgr, GetSystemPrompt(RoleStrategyAlignment))
	return &StrategyAlignmentUniversalAgent{UniversalAgent: base}
}

func (a *StrategyAlignmentUniversalAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	content, err := a.agentManager.ExecutePrompt(ctx, string(a.role), strategyAlignmentPrompt(shared), a.systemPrompt, agentOptions(false))
	if err != nil {
		return CrewMessage{}, err
	}
	return CrewMessage{
		AgentRole: a.Role(),
		AgentName: a.Name(),
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// InvestmentAdvisorAgent - direct Gemini variant
type InvestmentAdvisorAgent struct {
	*BaseAgent
}

func NewInvestmentAdvisorAgent(ctx context.Context) (*InvestmentAdvisorAgent, error) {
	base, err := NewBaseAgent(ctx, RoleInvestmentAdvisor, GetSystemPrompt(RoleInvestmentAdvisor))
	if err != nil {
		return nil, err
	}
	return &InvestmentAdvisorAgent{BaseAgent: base}, nil
}

func (a *InvestmentAdvisorAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	content, err := a.generate(ctx, investmentAdvisorPrompt(shared))
	if err != nil {
		return CrewMessage{}, err
	}
	return CrewMessage{
		AgentRole: a.Role(),
		AgentName: a.Name(),
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

// InvestmentAdvisorUniversalAgent - uses the globally configured provider
type InvestmentAdvisorUniversalAgent struct {
	*UniversalAgent
}

func NewInvestmentAdvisorUniversalAgent(mgr *agent.Manager) *InvestmentAdvisorUniversalAgent {
	base := NewUniversalAgent(RoleInvestmentAdvisor, mgr, GetSystemPrompt(RoleInvestmentAdvisor))
	return &InvestmentAdvisorUniversalAgent{UniversalAgent: base}
}

func (a *InvestmentAdvisorUniversalAgent) Generate(ctx context.Context, shared *EvaluationContext) (CrewMessage, error) {
	content, err := a.agentManager.ExecutePrompt(ctx, string(a.role), investmentAdvisorPrompt(shared), a.systemPrompt, agentOptions(true))
	if err != nil {
		return CrewMessage{}, err
	}
	return CrewMessage{
		AgentRole: a.Role(),
		AgentName: a.Name(),
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}
