package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/jobrecommender/internal/apify"
	"github.com/muhammadolammi/jobrecommender/internal/config"
	"github.com/muhammadolammi/jobrecommender/internal/extract"
	"github.com/muhammadolammi/jobrecommender/internal/jobs"
	"github.com/muhammadolammi/jobrecommender/internal/llm"
	"github.com/muhammadolammi/jobrecommender/internal/llm/agent"
	"github.com/muhammadolammi/jobrecommender/internal/llm/gemini"
	"github.com/muhammadolammi/jobrecommender/internal/recommender"
)

// Runner is the part of the pipeline the shells drive.
type Runner interface {
	Run(ctx context.Context, document []byte, opts recommender.SearchOptions) (*recommender.Report, error)
}

func newGateway(ctx context.Context, cfg config.LLM) (llm.Gateway, error) {
	switch cfg.Backend {
	case config.BackendAgent:
		return agent.New(ctx, cfg.APIKey, cfg.Model)
	case config.BackendGenAI, "":
		return gemini.New(ctx, gemini.Config{
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			Temperature:     &cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Backend)
	}
}

func newPipeline(ctx context.Context, cfg config.Config) (*recommender.Pipeline, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	gateway, err := newGateway(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm gateway: %w", err)
	}

	log := logrus.StandardLogger()
	if cfg.Apify.Token == "" {
		log.Warn("APIFY_API_TOKEN is not set, job searches will fail")
	}
	provider := apify.New(apify.Config{
		Token:   cfg.Apify.Token,
		ActorID: cfg.Apify.ActorID,
		BaseURL: cfg.Apify.BaseURL,
		Logger:  log,
	})

	return recommender.New(extract.New(), gateway, provider,
		recommender.WithPlanner(jobs.Planner{MaxQueries: cfg.Jobs.MaxQueries}),
		recommender.WithLogger(log),
	), nil
}

func searchOptions(cfg config.Jobs) recommender.SearchOptions {
	return recommender.SearchOptions{
		Location: cfg.Location,
		Rows:     cfg.Rows,
		Parallel: cfg.Parallel,
	}
}
