package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/finance"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/market"
	"github.com/joshi66aryan/Real-Estate-Advisor/pkg/core/screening"
)

// EvaluationRecord is the complete archived result of one pipeline run:
// the deal as evaluated, every engine output, and the advisory report. The
// report is kept as raw JSON because its shape is owned by the crew layer
// and the archive should not depend on it.
type EvaluationRecord struct {
	EvaluationID string                 `json:"evaluation_id"`
	Address      string                 `json:"address"`
	Strategy     string                 `json:"strategy"`
	Deal         finance.PropertyDeal   `json:"deal"`
	Metrics      *finance.MetricsResult `json:"metrics"`
	Exit         *finance.ExitAnalysis  `json:"exit_analysis,omitempty"`
	Screening    *screening.Result      `json:"screening,omitempty"`
	Comps        *market.CompsReport    `json:"comps,omitempty"`
	Report       json.RawMessage        `json:"report,omitempty"`
	CompletedAt  time.Time              `json:"completed_at"`
}

// EvaluationSummary is the listing row: enough to find a record without
// pulling its JSONB payload.
type EvaluationSummary struct {
	EvaluationID string    `json:"evaluation_id"`
	Address      string    `json:"address"`
	Strategy     string    `json:"strategy"`
	CompletedAt  time.Time `json:"completed_at"`
}

// EvaluationRepo handles the storage of completed evaluation results.
type EvaluationRepo struct{}

// NewEvaluationRepo creates a new repository instance.
func NewEvaluationRepo() *EvaluationRepo {
	return &EvaluationRepo{}
}

// Save persists a completed evaluation record, upserting on evaluation id.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS property_evaluations (
//   evaluation_id TEXT PRIMARY KEY,
//   address TEXT,
//   strategy TEXT,
//   result_json JSONB,
//   completed_at TIMESTAMPTZ,
//   updated_at TIMESTAMPTZ
// );
func (r *EvaluationRepo) Save(ctx context.Context, record *EvaluationRecord) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}

	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation record: %w", err)
	}

	query := `
		INSERT INTO property_evaluations (evaluation_id, address, strategy, result_json, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (evaluation_id)
		DO UPDATE SET
			address = EXCLUDED.address,
			strategy = EXCLUDED.strategy,
			result_json = EXCLUDED.result_json,
			completed_at = EXCLUDED.completed_at,
			updated_at = NOW();
	`

	_, err = pool.Exec(ctx, query, record.EvaluationID, record.Address, record.Strategy, jsonData, record.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}

	return nil
}

// Load retrieves the full record for an evaluation id.
func (r *EvaluationRepo) Load(ctx context.Context, evaluationID string) (*EvaluationRecord, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT result_json FROM property_evaluations WHERE evaluation_id = $1`

	var jsonData []byte
	err := pool.QueryRow(ctx, query, evaluationID).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no evaluation found for id %s", evaluationID)
		}
		return nil, fmt.Errorf("failed to load evaluation: %w", err)
	}

	var record EvaluationRecord
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation record: %w", err)
	}

	return &record, nil
}

// LoadByAddress retrieves the most recently completed record for an address.
func (r *EvaluationRepo) LoadByAddress(ctx context.Context, address string) (*EvaluationRecord, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT result_json
		FROM property_evaluations
		WHERE address = $1
		ORDER BY completed_at DESC
		LIMIT 1
	`

	var jsonData []byte
	err := pool.QueryRow(ctx, query, address).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no evaluation found for address %s", address)
		}
		return nil, fmt.Errorf("failed to load evaluation: %w", err)
	}

	var record EvaluationRecord
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation record: %w", err)
	}

	return &record, nil
}

// ListRecent returns summaries of the latest completed evaluations.
func (r *EvaluationRepo) ListRecent(ctx context.Context, limit int) ([]EvaluationSummary, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT evaluation_id, address, strategy, completed_at
		FROM property_evaluations
		ORDER BY completed_at DESC
		LIMIT $1
	`

	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var summaries []EvaluationSummary
	for rows.Next() {
		var s EvaluationSummary
		if err := rows.Scan(&s.EvaluationID, &s.Address, &s.Strategy, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, nil
}
