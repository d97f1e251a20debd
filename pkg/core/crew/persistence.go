package crew

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/store"
)

// CrewRepo handles persistence for evaluation sessions and messages
type CrewRepo struct{}

// NewCrewRepo creates a new instance of CrewRepo
func NewCrewRepo() *CrewRepo {
	return &CrewRepo{}
}

// CreateEvaluation initializes a new evaluation session record
func (r *CrewRepo) CreateEvaluation(ctx context.Context, id, address, strategy string) error {
	pool := store.GetPool()
	if pool == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO evaluations (id, address, strategy, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := pool.Exec(ctx, query, id, address, strategy, StatusIdle)
	if err != nil {
		return fmt.Errorf("failed to create evaluation record: %w", err)
	}
	return nil
}

// UpdateStatus updates the status of an evaluation
func (r *CrewRepo) UpdateStatus(ctx context.Context, id string, status EvaluationStatus) error {
	pool := store.GetPool()
	if pool == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		UPDATE evaluations
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update evaluation status: %w", err)
	}
	return nil
}

// SaveFinalReport persists the final advisory report
func (r *CrewRepo) SaveFinalReport(ctx context.Context, report *AdvisoryReport) error {
	pool := store.GetPool()
	if pool == nil {
		return fmt.Errorf("database not initialized")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal advisory report: %w", err)
	}

	query := `
		UPDATE evaluations
		SET report = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err = pool.Exec(ctx, query, report.EvaluationID, reportJSON, StatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to save advisory report: %w", err)
	}
	return nil
}

// AddMessage appends a new message to the evaluation transcript
func (r *CrewRepo) AddMessage(ctx context.Context, evaluationID string, msg CrewMessage) error {
	pool := store.GetPool()
	if pool == nil {
		return fmt.Errorf("database not initialized")
	}

	refsJSON, err := json.Marshal(msg.References)
	if err != nil {
		return fmt.Errorf("failed to marshal references: %w", err)
	}

	query := `
		INSERT INTO evaluation_messages (evaluation_id, stage_index, agent_role, agent_name, content, "references", timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = pool.Exec(ctx, query, evaluationID, msg.Stage, msg.AgentRole, msg.AgentName, msg.Content, refsJSON, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to add evaluation message: %w", err)
	}
	return nil
}

// GetEvaluationHistory retrieves the full transcript for an evaluation
func (r *CrewRepo) GetEvaluationHistory(ctx context.Context, evaluationID string) ([]CrewMessage, error) {
	pool := store.GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT id, stage_index, agent_role, agent_name, content, "references", timestamp
		FROM evaluation_messages
		WHERE evaluation_id = $1
		ORDER BY id ASC
	`
	rows, err := pool.Query(ctx, query, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluation history: %w", err)
	}
	defer rows.Close()

	var history []CrewMessage
	for rows.Next() {
		var msg CrewMessage
		var rowID int64
		var refsJSON []byte
		var roleStr string

		if err := rows.Scan(&rowID, &msg.Stage, &roleStr, &msg.AgentName, &msg.Content, &refsJSON, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}

		msg.AgentRole = AgentRole(roleStr)
		msg.ID = fmt.Sprintf("%s-%d", evaluationID, rowID)

		if len(refsJSON) > 0 {
			if err := json.Unmarshal(refsJSON, &msg.References); err != nil {
				return nil, fmt.Errorf("failed to unmarshal references: %w", err)
			}
		}

		history = append(history, msg)
	}

	return history, nil
}

// LoadReport retrieves a persisted advisory report by evaluation ID
func (r *CrewRepo) LoadReport(ctx context.Context, id string) (*AdvisoryReport, error) {
	pool := store.GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT report
		FROM evaluations
		WHERE id = $1
	`
	var reportJSON []byte
	if err := pool.QueryRow(ctx, query, id).Scan(&reportJSON); err != nil {
		return nil, fmt.Errorf("failed to load advisory report: %w", err)
	}
	if len(reportJSON) == 0 {
		return nil, fmt.Errorf("no report stored for evaluation %s", id)
	}

	var report AdvisoryReport
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal advisory report: %w", err)
	}
	return &report, nil
}
