package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/jobrecommender/internal/database"
	"github.com/muhammadolammi/jobrecommender/internal/recommender"
)

const (
	runsQueue      = "recommendations"
	updateExchange = "recommendation_updates"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RecommendationRequest is the queue message for one run.
type RecommendationRequest struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ObjectKey string    `json:"object_key"`
	Location  string    `json:"location,omitempty"`
	Rows      int       `json:"rows,omitempty"`
}

// RunUpdate is published on every status change of a run.
type RunUpdate struct {
	RunID     uuid.UUID `json:"run_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Jobs      int       `json:"jobs,omitempty"`
	Warnings  int       `json:"warnings,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunResponse is what the API returns for a run.
type RunResponse struct {
	Analysis recommender.Analysis  `json:"analysis"`
	Search   recommender.JobSearch `json:"search"`
	Warnings []recommender.Warning `json:"warnings"`
}

func newRunResponse(r *recommender.Report) RunResponse {
	return RunResponse{
		Analysis: r.Analysis,
		Search:   r.Search,
		Warnings: r.WarningMessages(),
	}
}

type WorkerConfig struct {
	DB        *database.Queries
	Storage   ObjectStore
	Updates   UpdatePublisher
	Pipeline  Runner
	Search    recommender.SearchOptions
	RabbitURL string
	Log       logrus.FieldLogger
}
