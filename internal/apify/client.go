// Package apify searches LinkedIn job listings through an Apify scraper actor.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/jobrecommender/internal/errs"
	"github.com/muhammadolammi/jobrecommender/internal/jobs"
)

const (
	DefaultBaseURL = "https://api.apify.com"
	// DefaultActorID is the LinkedIn jobs scraper the service was built against.
	DefaultActorID = "BHzefUZlZRKWxkTck"

	// waitSeconds is the longest wait the run endpoints accept per request.
	waitSeconds = 60
)

// pollInterval spaces run polls when the server answers before the run
// finishes without honouring waitForFinish.
var pollInterval = 2 * time.Second

// Run statuses, see https://docs.apify.com/platform/actors/running/runs-and-builds
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborted   = "ABORTED"
	StatusTimedOut  = "TIMED-OUT"
)

type Config struct {
	Token   string
	ActorID string
	BaseURL string
	// HTTPClient defaults to a client without timeout; actor runs take minutes
	// and the caller's context bounds them.
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client calls the actor once per search, waits for the run and reads the
// run's default dataset.
type Client struct {
	token   string
	actorID string
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

func New(cfg Config) *Client {
	c := &Client{
		token:   cfg.Token,
		actorID: cfg.ActorID,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		log:     cfg.Logger,
	}
	if c.actorID == "" {
		c.actorID = DefaultActorID
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c
}

type proxyConfig struct {
	UseApifyProxy    bool     `json:"useApifyProxy"`
	ApifyProxyGroups []string `json:"apifyProxyGroups"`
}

type runInput struct {
	Title      string      `json:"title"`
	Location   string      `json:"location"`
	Rows       int         `json:"rows"`
	SortBy     string      `json:"sortby"`
	Freshness  string      `json:"freshness"`
	Experience string      `json:"experience"`
	Proxy      proxyConfig `json:"proxy"`
}

// actorRun is the subset of the run object we read. Older API responses spell
// the dataset key defaultDatasetID.
type actorRun struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
	LegacyDatasetID  string `json:"defaultDatasetID"`
}

func (r actorRun) datasetID() string {
	if r.DefaultDatasetID != "" {
		return r.DefaultDatasetID
	}
	return r.LegacyDatasetID
}

// validate rejects run objects that cannot be polled or judged.
func (r actorRun) validate() error {
	if r.ID == "" {
		return errors.New("run has no id")
	}
	if r.Status == "" {
		return fmt.Errorf("run %s has no status", r.ID)
	}
	return nil
}

func (r actorRun) finished() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusTimedOut:
		return true
	}
	return false
}

type runEnvelope struct {
	Data actorRun `json:"data"`
}

// Search runs the actor for one query. Every failure wraps errs.ErrProvider.
func (c *Client) Search(ctx context.Context, query, location string, maxResults int) ([]jobs.Posting, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: APIFY_API_TOKEN is not set", errs.ErrProvider)
	}
	start := time.Now()

	run, err := c.startRun(ctx, runInput{
		Title:      query,
		Location:   location,
		Rows:       maxResults,
		SortBy:     "relevance",
		Freshness:  "all",
		Experience: "all",
		Proxy:      proxyConfig{UseApifyProxy: true, ApifyProxyGroups: []string{"RESIDENTIAL"}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: start actor run: %w", errs.ErrProvider, err)
	}
	if err := run.validate(); err != nil {
		return nil, fmt.Errorf("%w: start actor run: %w", errs.ErrProvider, err)
	}

	runID := run.ID
	for !run.finished() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for run %s: %w", errs.ErrProvider, runID, ctx.Err())
		case <-time.After(pollInterval):
		}
		run, err = c.waitRun(ctx, runID)
		if err == nil {
			err = run.validate()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: poll actor run %s: %w", errs.ErrProvider, runID, err)
		}
	}
	if run.Status != StatusSucceeded {
		return nil, fmt.Errorf("%w: actor run %s ended with status %s", errs.ErrProvider, run.ID, run.Status)
	}

	datasetID := run.datasetID()
	if datasetID == "" {
		return nil, fmt.Errorf("%w: apify run did not return a dataset ID", errs.ErrProvider)
	}
	items, err := c.datasetItems(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("%w: read dataset %s: %w", errs.ErrProvider, datasetID, err)
	}

	c.log.WithFields(logrus.Fields{
		"query":    query,
		"location": location,
		"run_id":   run.ID,
		"items":    len(items),
		"duration": time.Since(start),
	}).Debug("apify search finished")
	return items, nil
}

func (c *Client) startRun(ctx context.Context, in runInput) (actorRun, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return actorRun{}, err
	}
	// Actor ids of the form user/name are addressed as user~name.
	actor := url.PathEscape(strings.ReplaceAll(c.actorID, "/", "~"))
	endpoint := fmt.Sprintf("%s/v2/acts/%s/runs?waitForFinish=%d", c.baseURL, actor, waitSeconds)

	var env runEnvelope
	if err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), &env); err != nil {
		return actorRun{}, err
	}
	return env.Data, nil
}

func (c *Client) waitRun(ctx context.Context, runID string) (actorRun, error) {
	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s?waitForFinish=%d", c.baseURL, url.PathEscape(runID), waitSeconds)

	var env runEnvelope
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
		return actorRun{}, err
	}
	return env.Data, nil
}

func (c *Client) datasetItems(ctx context.Context, datasetID string) ([]jobs.Posting, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("clean", strconv.FormatBool(true))
	endpoint := fmt.Sprintf("%s/v2/datasets/%s/items?%s", c.baseURL, url.PathEscape(datasetID), q.Encode())

	var items []jobs.Posting
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("apify status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
