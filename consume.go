package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/muhammadolammi/jobrecommender/internal/config"
	"github.com/muhammadolammi/jobrecommender/internal/database"
	"github.com/muhammadolammi/jobrecommender/internal/recommender"
)

func runWorker(ctx context.Context, cfg config.Config) error {
	if err := cfg.RequireWorker(); err != nil {
		return err
	}
	pipeline, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.Worker.DBURL)
	if err != nil {
		return fmt.Errorf("error opening db: %w", err)
	}
	defer db.Close()

	store, err := newR2Store(ctx, cfg.Worker.R2)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(cfg.Worker.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}
	defer conn.Close()

	workerConfig := &WorkerConfig{
		DB:        database.New(db),
		Storage:   store,
		Updates:   &amqpPublisher{conn: conn},
		Pipeline:  pipeline,
		Search:    searchOptions(cfg.Jobs),
		RabbitURL: cfg.Worker.RabbitMQURL,
		Log:       logrus.StandardLogger(),
	}
	if err := declareUpdateExchange(conn); err != nil {
		return err
	}

	workerConfig.Log.WithField("workers", cfg.Worker.Count).Info("starting consumer worker pool")
	return workerConfig.StartConsumerWorkerPool(ctx, cfg.Worker.Count)
}

func declareUpdateExchange(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	defer ch.Close()
	return ch.ExchangeDeclare(
		updateExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

// processRun downloads the resume, runs the pipeline and stores the report.
// A returned error means the run failed as a whole.
func (wc *WorkerConfig) processRun(ctx context.Context, req RecommendationRequest) (*recommender.Report, error) {
	if req.ObjectKey == "" {
		return nil, errors.New("message has no object_key")
	}

	document, err := retry(ctx, 3, func() ([]byte, error) {
		return wc.Storage.Download(ctx, req.ObjectKey)
	})
	if err != nil {
		return nil, fmt.Errorf("file download error: %w", err)
	}

	opts := wc.Search
	if req.Location != "" {
		opts.Location = req.Location
	}
	if req.Rows != 0 {
		opts.Rows = req.Rows
	}

	report, err := wc.Pipeline.Run(ctx, document, opts)
	if err != nil {
		return nil, err
	}

	params, err := resultParams(req.ID, report)
	if err != nil {
		return nil, err
	}
	_, err = retry(ctx, 3, func() (any, error) {
		return nil, wc.DB.CreateOrUpdateRunResult(ctx, params)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save run result after retries: %w", err)
	}
	return report, nil
}

func resultParams(runID uuid.UUID, report *recommender.Report) (database.CreateOrUpdateRunResultParams, error) {
	analysis, err := json.Marshal(report.Analysis)
	if err != nil {
		return database.CreateOrUpdateRunResultParams{}, fmt.Errorf("failed to marshal analysis: %w", err)
	}
	search, err := json.Marshal(report.Search)
	if err != nil {
		return database.CreateOrUpdateRunResultParams{}, fmt.Errorf("failed to marshal job search: %w", err)
	}
	warnings, err := json.Marshal(report.WarningMessages())
	if err != nil {
		return database.CreateOrUpdateRunResultParams{}, fmt.Errorf("failed to marshal warnings: %w", err)
	}
	return database.CreateOrUpdateRunResultParams{
		Analysis: analysis,
		Search:   search,
		Warnings: warnings,
		RunID:    runID,
	}, nil
}

// setStatus records a status change in the database and on the update
// exchange. Failures here are logged, never returned. The update is written
// even after shutdown starts so a run is not left in processing.
func (wc *WorkerConfig) setStatus(ctx context.Context, update RunUpdate) {
	update.Timestamp = time.Now()
	log := wc.Log.WithFields(logrus.Fields{"run_id": update.RunID, "status": update.Status})

	err := wc.DB.UpdateRunStatus(context.WithoutCancel(ctx), database.UpdateRunStatusParams{
		Status: update.Status,
		Error:  sql.NullString{String: update.Error, Valid: update.Error != ""},
		ID:     update.RunID,
	})
	if err != nil {
		log.WithError(err).Error("failed to update run status")
	}
	if err := wc.Updates.Publish(update); err != nil {
		log.WithError(err).Warn("failed to publish update")
	}
}

func (wc *WorkerConfig) handleMessage(ctx context.Context, body []byte) {
	var req RecommendationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		wc.Log.WithError(err).Error("error unmarshalling message body")
		if req.ID != uuid.Nil {
			wc.setStatus(ctx, RunUpdate{RunID: req.ID, Status: StatusFailed, Message: "recommendation failed", Error: err.Error()})
		}
		return
	}
	if req.ID == uuid.Nil {
		wc.Log.Error("message has no run id, dropping it")
		return
	}

	log := wc.Log.WithField("run_id", req.ID)
	log.Info("processing run")
	wc.setStatus(ctx, RunUpdate{RunID: req.ID, Status: StatusProcessing, Message: "recommendation started"})

	report, err := wc.processRun(ctx, req)
	if err != nil {
		log.WithError(err).Error("run failed")
		wc.setStatus(ctx, RunUpdate{RunID: req.ID, Status: StatusFailed, Message: "recommendation failed", Error: err.Error()})
		return
	}

	log.WithFields(logrus.Fields{
		"jobs":     len(report.Search.Jobs),
		"warnings": len(report.Warnings),
	}).Info("run completed")
	wc.setStatus(ctx, RunUpdate{
		RunID:    req.ID,
		Status:   StatusCompleted,
		Message:  "recommendation completed",
		Jobs:     len(report.Search.Jobs),
		Warnings: len(report.Warnings),
	})
}

func (wc *WorkerConfig) worker(ctx context.Context, id int) error {
	log := wc.Log.WithField("worker", id+1)

	conn, err := amqp.Dial(wc.RabbitURL)
	if err != nil {
		return fmt.Errorf("worker %d: error dialling rabbitmq: %w", id+1, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("worker %d: error connecting to rabbitmq channel: %w", id+1, err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		runsQueue,
		true,  // durable (survives broker restarts)
		false, // auto-delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("worker %d: failed to declare queue: %w", id+1, err)
	}

	msgs, err := ch.Consume(
		runsQueue,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("worker %d: error consuming rabbitmq message: %w", id+1, err)
	}

	log.Info("worker started")
	return wc.drain(ctx, id, msgs)
}

// drain handles deliveries until ctx ends. A closed delivery channel means
// the broker connection is gone and is reported as an error.
func (wc *WorkerConfig) drain(ctx context.Context, id int, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			wc.Log.WithField("worker", id+1).Info("worker stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("worker %d: delivery channel closed", id+1)
			}
			wc.handleMessage(ctx, msg.Body)
		}
	}
}

// StartConsumerWorkerPool blocks until ctx is done or a worker fails. The
// first failure stops the other workers and is returned.
func (wc *WorkerConfig) StartConsumerWorkerPool(ctx context.Context, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := range numWorkers {
		g.Go(func() error {
			return wc.worker(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() == nil {
		return errors.New("consumer worker pool stopped unexpectedly")
	}
	return nil
}
