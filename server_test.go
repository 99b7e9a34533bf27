package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/jobrecommender/internal/database"
	"github.com/muhammadolammi/jobrecommender/internal/errs"
	"github.com/muhammadolammi/jobrecommender/internal/recommender"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func uploadRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("resume", "resume.txt")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newTestServer(run *fakeRunner, runs RunReader) *apiServer {
	return &apiServer{
		pipeline: run,
		runs:     runs,
		search:   recommender.SearchOptions{Location: "India", Rows: 60},
		log:      quietLog(),
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeRunner{}, nil).router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateRecommendation(t *testing.T) {
	var gotOpts recommender.SearchOptions
	run := &fakeRunner{RunFunc: func(ctx context.Context, document []byte, opts recommender.SearchOptions) (*recommender.Report, error) {
		assert.Equal(t, "plain resume", string(document))
		gotOpts = opts
		return sampleReport(), nil
	}}

	rec := httptest.NewRecorder()
	req := uploadRequest(t, map[string]string{"location": "Remote", "rows": "20"}, []byte("plain resume"))
	newTestServer(run, nil).router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, recommender.SearchOptions{Location: "Remote", Rows: 20}, gotOpts)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Data analyst", resp.Analysis.Summary)
	require.Len(t, resp.Search.Jobs, 1)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "gaps", resp.Warnings[0].Stage)
}

func TestCreateRecommendation_Errors(t *testing.T) {
	testCases := []struct {
		name         string
		fields       map[string]string
		file         []byte
		runErr       error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "missing file",
			expectedCode: http.StatusBadRequest,
			expectedErr:  "missing_file",
		},
		{
			name:         "invalid rows",
			fields:       map[string]string{"rows": "many"},
			file:         []byte("resume"),
			expectedCode: http.StatusBadRequest,
			expectedErr:  "invalid_rows",
		},
		{
			name:         "extraction failure",
			file:         []byte{0x00, 0x01},
			runErr:       &errs.StageError{Stage: "extract", Severity: errs.Fatal, Err: fmt.Errorf("%w: unsupported file type", errs.ErrExtraction)},
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  "extraction_failed",
		},
		{
			name:         "summary failure",
			file:         []byte("resume"),
			runErr:       &errs.StageError{Stage: "summary", Severity: errs.Fatal, Err: fmt.Errorf("%w: quota exceeded", errs.ErrGateway)},
			expectedCode: http.StatusBadGateway,
			expectedErr:  "summary_failed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run := &fakeRunner{RunFunc: func(ctx context.Context, document []byte, opts recommender.SearchOptions) (*recommender.Report, error) {
				return nil, tc.runErr
			}}
			rec := httptest.NewRecorder()
			newTestServer(run, nil).router().ServeHTTP(rec, uploadRequest(t, tc.fields, tc.file))

			assert.Equal(t, tc.expectedCode, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.expectedErr, resp.Error.Code)
		})
	}
}

func TestGetRecommendation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	srv := newTestServer(&fakeRunner{}, database.New(db)).router()
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("FROM recommendation_runs").WithArgs(id).WillReturnRows(
		sqlmock.NewRows([]string{"id", "user_id", "object_key", "status", "error", "created_at", "updated_at"}).
			AddRow(id.String(), uuid.NewString(), "cv.pdf", StatusCompleted, nil, now, now))
	mock.ExpectQuery("FROM recommendation_results").WithArgs(id).WillReturnRows(
		sqlmock.NewRows([]string{"id", "run_id", "analysis", "search", "warnings", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), id.String(), []byte(`{"summary":"s"}`), []byte(`{"jobs":[]}`), []byte(`[]`), now, now))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+id.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q,"status":"completed","analysis":{"summary":"s"},"search":{"jobs":[]},"warnings":[]}`, id), rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecommendation_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	srv := newTestServer(&fakeRunner{}, database.New(db)).router()
	id := uuid.New()

	mock.ExpectQuery("FROM recommendation_runs").WithArgs(id).WillReturnError(sql.ErrNoRows)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRecommendation_DisabledWithoutDatabase(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&fakeRunner{}, nil).router().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
