package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const getRun = `-- name: GetRun :one
SELECT id, user_id, object_key, status, error, created_at, updated_at FROM recommendation_runs WHERE id=$1
`

func (q *Queries) GetRun(ctx context.Context, id uuid.UUID) (RecommendationRun, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var i RecommendationRun
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ObjectKey,
		&i.Status,
		&i.Error,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateRunStatus = `-- name: UpdateRunStatus :exec
UPDATE recommendation_runs
SET status=$1, error=$2, updated_at=CURRENT_TIMESTAMP
WHERE id=$3
`

type UpdateRunStatusParams struct {
	Status string
	Error  sql.NullString
	ID     uuid.UUID
}

func (q *Queries) UpdateRunStatus(ctx context.Context, arg UpdateRunStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateRunStatus, arg.Status, arg.Error, arg.ID)
	return err
}
