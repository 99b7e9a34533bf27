package apify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadolammi/jobrecommender/internal/errs"
)

type fakeApify struct {
	t          *testing.T
	startReply string
	pollReply  string
	items      string
	polls      atomic.Int32

	mu        sync.Mutex
	lastInput runInput
}

func (f *fakeApify) input() runInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastInput
}

func (f *fakeApify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "Bearer secret", r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v2/acts/"+DefaultActorID+"/runs":
		assert.Equal(f.t, "60", r.URL.Query().Get("waitForFinish"))
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		assert.NoError(f.t, json.Unmarshal(body, &f.lastInput))
		f.mu.Unlock()
		_, _ = io.WriteString(w, f.startReply)
	case r.Method == http.MethodGet && r.URL.Path == "/v2/actor-runs/run-1":
		f.polls.Add(1)
		_, _ = io.WriteString(w, f.pollReply)
	case r.Method == http.MethodGet && r.URL.Path == "/v2/datasets/ds-1/items":
		assert.Equal(f.t, "true", r.URL.Query().Get("clean"))
		_, _ = io.WriteString(w, f.items)
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func fastPolls(t *testing.T, d time.Duration) {
	t.Helper()
	prev := pollInterval
	pollInterval = d
	t.Cleanup(func() { pollInterval = prev })
}

func newTestClient(t *testing.T, f *fakeApify) *Client {
	f.t = t
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(Config{Token: "secret", BaseURL: srv.URL})
}

func TestClient_Search(t *testing.T) {
	f := &fakeApify{
		startReply: `{"data":{"id":"run-1","status":"SUCCEEDED","defaultDatasetId":"ds-1"}}`,
		items:      `[{"title":"Data Analyst","companyName":"Acme","location":"Pune","link":"https://jobs/1"},{"title":"BI Analyst"}]`,
	}
	c := newTestClient(t, f)

	got, err := c.Search(context.Background(), "Data Analyst", "India", 60)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme", got[0].Company())
	assert.Equal(t, "https://jobs/1", got[0].URL())
	assert.Equal(t, int32(0), f.polls.Load())

	assert.Equal(t, runInput{
		Title:      "Data Analyst",
		Location:   "India",
		Rows:       60,
		SortBy:     "relevance",
		Freshness:  "all",
		Experience: "all",
		Proxy:      proxyConfig{UseApifyProxy: true, ApifyProxyGroups: []string{"RESIDENTIAL"}},
	}, f.input())
}

func TestClient_SearchPollsUntilFinished(t *testing.T) {
	f := &fakeApify{
		startReply: `{"data":{"id":"run-1","status":"RUNNING"}}`,
		pollReply:  `{"data":{"id":"run-1","status":"SUCCEEDED","defaultDatasetID":"ds-1"}}`,
		items:      `[]`,
	}
	fastPolls(t, time.Millisecond)
	c := newTestClient(t, f)

	got, err := c.Search(context.Background(), "SRE", "Remote", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(1), f.polls.Load())
}

func TestClient_SearchErrors(t *testing.T) {
	testCases := []struct {
		name        string
		startReply  string
		pollReply   string
		expectedErr string
	}{
		{
			name:        "run failed",
			startReply:  `{"data":{"id":"run-1","status":"FAILED","defaultDatasetId":"ds-1"}}`,
			expectedErr: "ended with status FAILED",
		},
		{
			name:        "no dataset id",
			startReply:  `{"data":{"id":"run-1","status":"SUCCEEDED"}}`,
			expectedErr: "did not return a dataset ID",
		},
		{
			name:        "malformed response",
			startReply:  `not json`,
			expectedErr: "decode response",
		},
		{
			name:        "no run id",
			startReply:  `{"data":{"status":"RUNNING"}}`,
			expectedErr: "run has no id",
		},
		{
			name:        "no status",
			startReply:  `{"data":{"id":"run-1"}}`,
			expectedErr: "run run-1 has no status",
		},
		{
			name:        "empty poll reply",
			startReply:  `{"data":{"id":"run-1","status":"RUNNING"}}`,
			pollReply:   `{}`,
			expectedErr: "poll actor run run-1: run has no id",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fastPolls(t, time.Millisecond)
			c := newTestClient(t, &fakeApify{startReply: tc.startReply, pollReply: tc.pollReply})

			_, err := c.Search(context.Background(), "Go", "India", 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrProvider)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func TestClient_SearchSpacesPollsUntilDeadline(t *testing.T) {
	fastPolls(t, 20*time.Millisecond)
	f := &fakeApify{
		startReply: `{"data":{"id":"run-1","status":"RUNNING"}}`,
		pollReply:  `{"data":{"id":"run-1","status":"RUNNING"}}`,
	}
	c := newTestClient(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	_, err := c.Search(ctx, "Go", "India", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrProvider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, f.polls.Load(), int32(6))
}

func TestClient_SearchHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"type":"user-or-token-not-found"}}`)
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{Token: "bad", BaseURL: srv.URL}).Search(context.Background(), "Go", "India", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrProvider)
	assert.Contains(t, err.Error(), "apify status 401")
}

func TestClient_SearchWithoutToken(t *testing.T) {
	_, err := New(Config{}).Search(context.Background(), "Go", "India", 10)
	assert.ErrorIs(t, err, errs.ErrProvider)
	assert.Contains(t, err.Error(), "APIFY_API_TOKEN")
}

func TestNew_ActorPathEscaping(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, _ = New(Config{Token: "t", ActorID: "bebity/linkedin-jobs-scraper", BaseURL: srv.URL}).Search(context.Background(), "Go", "", 10)
	assert.Equal(t, "/v2/acts/bebity~linkedin-jobs-scraper/runs", <-paths)
}
