package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const createOrUpdateRunResult = `-- name: CreateOrUpdateRunResult :exec
INSERT INTO recommendation_results (
analysis, search, warnings, run_id)
VALUES ( $1, $2, $3, $4)
ON CONFLICT (run_id)
DO UPDATE SET
    analysis = EXCLUDED.analysis,
    search = EXCLUDED.search,
    warnings = EXCLUDED.warnings,
    updated_at = CURRENT_TIMESTAMP
`

type CreateOrUpdateRunResultParams struct {
	Analysis json.RawMessage
	Search   json.RawMessage
	Warnings json.RawMessage
	RunID    uuid.UUID
}

func (q *Queries) CreateOrUpdateRunResult(ctx context.Context, arg CreateOrUpdateRunResultParams) error {
	_, err := q.db.ExecContext(ctx, createOrUpdateRunResult,
		arg.Analysis,
		arg.Search,
		arg.Warnings,
		arg.RunID,
	)
	return err
}

const getRunResult = `-- name: GetRunResult :one
SELECT id, run_id, analysis, search, warnings, created_at, updated_at FROM recommendation_results WHERE run_id=$1
`

func (q *Queries) GetRunResult(ctx context.Context, runID uuid.UUID) (RecommendationResult, error) {
	row := q.db.QueryRowContext(ctx, getRunResult, runID)
	var i RecommendationResult
	err := row.Scan(
		&i.ID,
		&i.RunID,
		&i.Analysis,
		&i.Search,
		&i.Warnings,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
