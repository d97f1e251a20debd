package crew

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/agent"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"

	"github.com/google/uuid"
)

// EvaluationParams carries everything needed to start an evaluation.
type EvaluationParams struct {
	Address      string
	Deal         finance.PropertyDeal
	Strategy     screening.Strategy
	ListingURL   string
	IsSimulation bool
}

// CrewManager is a singleton that manages all active background evaluations
type CrewManager struct {
	activeEvaluations map[string]*EvaluationOrchestrator
	repo              *CrewRepo
	agentManager      *agent.Manager
	mu                sync.RWMutex
}

var (
	instance *CrewManager
	once     sync.Once
)

// GetManager returns the singleton instance of CrewManager
func GetManager() *CrewManager {
	once.Do(func() {
		instance = &CrewManager{
			activeEvaluations: make(map[string]*EvaluationOrchestrator),
			repo:              NewCrewRepo(),
			// agentManager is nil initially, set via SetAgentManager
		}
		// Start background cleanup routine
		go instance.cleanup()
	})
	return instance
}

// SetAgentManager injects the global agent manager
func (m *CrewManager) SetAgentManager(mgr *agent.Manager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentManager = mgr
}

// StartEvaluation validates the deal, initializes an evaluation and runs it
// in a background goroutine
func (m *CrewManager) StartEvaluation(params EvaluationParams) (string, error) {
	if err := params.Deal.Validate(); err != nil {
		return "", err
	}
	strategy := params.Strategy
	if strategy == "" {
		strategy = screening.StrategyPassiveIncome
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	orchestrator := NewOrchestrator(id, params.Address, params.Deal, strategy,
		params.ListingURL, params.IsSimulation, m.agentManager, m.repo)
	m.activeEvaluations[id] = orchestrator

	// Create the session record before the background run starts streaming
	// messages into it.
	if m.repo != nil && !params.IsSimulation {
		if err := m.repo.CreateEvaluation(context.Background(), id, params.Address, string(strategy)); err != nil {
			fmt.Printf("Error creating evaluation record: %v\n", err)
		}
	}

	// Run evaluation in background
	go func() {
		ctx := context.Background() // Separate context for background job
		orchestrator.Run(ctx)
	}()

	return id, nil
}

// GetEvaluation retrieves an existing orchestrator by ID
func (m *CrewManager) GetEvaluation(id string) (*EvaluationOrchestrator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orch, exists := m.activeEvaluations[id]
	return orch, exists
}

// GetActiveEvaluations returns a list of currently running evaluations
func (m *CrewManager) GetActiveEvaluations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []string
	for id, orch := range m.activeEvaluations {
		if orch.Status == StatusRunning {
			active = append(active, id)
		}
	}
	return active
}

// cleanup removes finished evaluations older than 24 hours
func (m *CrewManager) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	for range ticker.C {
		m.mu.Lock()
		for id, orch := range m.activeEvaluations {
			if orch.Status != StatusRunning && time.Since(orch.UpdatedAt) > 24*time.Hour {
				delete(m.activeEvaluations, id)
			}
		}
		m.mu.Unlock()
	}
}
