package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/jobrecommender/internal/config"
	"github.com/muhammadolammi/jobrecommender/internal/database"
	"github.com/muhammadolammi/jobrecommender/internal/errs"
	"github.com/muhammadolammi/jobrecommender/internal/recommender"
)

// maxUploadBytes caps resume uploads.
const maxUploadBytes = 10 << 20

// RunReader looks up runs stored by the worker.
type RunReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (database.RecommendationRun, error)
	GetRunResult(ctx context.Context, runID uuid.UUID) (database.RecommendationResult, error)
}

type apiServer struct {
	pipeline Runner
	runs     RunReader
	search   recommender.SearchOptions
	log      logrus.FieldLogger
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func runServer(ctx context.Context, cfg config.Config) error {
	pipeline, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	s := &apiServer{
		pipeline: pipeline,
		search:   searchOptions(cfg.Jobs),
		log:      logrus.StandardLogger(),
	}
	if cfg.Worker.DBURL != "" {
		db, err := sql.Open("postgres", cfg.Worker.DBURL)
		if err != nil {
			return fmt.Errorf("error opening db: %w", err)
		}
		defer db.Close()
		s.runs = database.New(db)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.WithField("addr", srv.Addr).Info("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *apiServer) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := r.Group("/api/v1")
	v1.POST("/recommendations", s.handleCreateRecommendation)
	if s.runs != nil {
		v1.GET("/recommendations/:id", s.handleGetRecommendation)
	}
	return r
}

func (s *apiServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		}).Info("request complete")
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func (s *apiServer) handleCreateRecommendation(c *gin.Context) {
	file, err := c.FormFile("resume")
	if err != nil {
		respondError(c, http.StatusBadRequest, "missing_file", "upload a resume in the 'resume' form field")
		return
	}
	if file.Size > maxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "file_too_large", "resume must be at most 10 MB")
		return
	}

	opts := s.search
	if loc := c.PostForm("location"); loc != "" {
		opts.Location = loc
	}
	if raw := c.PostForm("rows"); raw != "" {
		rows, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_rows", "rows must be a number")
			return
		}
		opts.Rows = rows
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable_file", err.Error())
		return
	}
	defer f.Close()
	document, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable_file", err.Error())
		return
	}

	report, err := s.pipeline.Run(c.Request.Context(), document, opts)
	if err != nil {
		status, code := statusForRunError(err)
		respondError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, newRunResponse(report))
}

// statusForRunError maps a fatal pipeline error to an HTTP status.
func statusForRunError(err error) (int, string) {
	var se *errs.StageError
	switch {
	case errors.Is(err, errs.ErrExtraction):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.As(err, &se) && se.Stage == string(recommender.StageSummary):
		return http.StatusBadGateway, "summary_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

type runStatusResponse struct {
	ID       uuid.UUID       `json:"id"`
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
	Search   json.RawMessage `json:"search,omitempty"`
	Warnings json.RawMessage `json:"warnings,omitempty"`
}

func (s *apiServer) handleGetRecommendation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_id", "run id must be a UUID")
		return
	}
	ctx := c.Request.Context()

	run, err := s.runs.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(c, http.StatusNotFound, "not_found", "run not found")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("run_id", id).Error("failed to read run")
		respondError(c, http.StatusInternalServerError, "internal_error", "failed to read run")
		return
	}

	resp := runStatusResponse{ID: run.ID, Status: run.Status, Error: run.Error.String}
	if run.Status == StatusCompleted {
		result, err := s.runs.GetRunResult(ctx, id)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			s.log.WithError(err).WithField("run_id", id).Error("failed to read run result")
			respondError(c, http.StatusInternalServerError, "internal_error", "failed to read run result")
			return
		}
		resp.Analysis = result.Analysis
		resp.Search = result.Search
		resp.Warnings = result.Warnings
	}
	c.JSON(http.StatusOK, resp)
}
