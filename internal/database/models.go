package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RecommendationRun struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ObjectKey string
	Status    string
	Error     sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RecommendationResult struct {
	ID        uuid.UUID
	RunID     uuid.UUID
	Analysis  json.RawMessage
	Search    json.RawMessage
	Warnings  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}
