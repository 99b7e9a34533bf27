package recommender

import (
	"github.com/muhammadolammi/jobrecommender/internal/errs"
	"github.com/muhammadolammi/jobrecommender/internal/jobs"
)

const (
	DefaultLocation = "India"
	DefaultRows     = 60
	MinRows         = 10
	MaxRows         = 100
)

// SearchOptions controls the job search half of a run.
type SearchOptions struct {
	Location string
	Rows     int
	// Parallel issues the per-query searches concurrently.
	Parallel bool
}

func (o SearchOptions) normalized() SearchOptions {
	if o.Location == "" {
		o.Location = DefaultLocation
	}
	switch {
	case o.Rows == 0:
		o.Rows = DefaultRows
	case o.Rows < MinRows:
		o.Rows = MinRows
	case o.Rows > MaxRows:
		o.Rows = MaxRows
	}
	return o
}

type Analysis struct {
	ResumeText string `json:"-"`
	Summary    string `json:"summary"`
	Gaps       string `json:"gaps"`
	Roadmap    string `json:"roadmap"`
}

type QueryOutcome struct {
	Query string `json:"query"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type JobSearch struct {
	RawKeywords string         `json:"raw_keywords"`
	Queries     []string       `json:"queries"`
	Location    string         `json:"location"`
	Rows        int            `json:"rows"`
	Outcomes    []QueryOutcome `json:"outcomes"`
	Jobs        []jobs.Posting `json:"jobs"`
}

// Report is the result of one run.
type Report struct {
	Analysis Analysis           `json:"analysis"`
	Search   JobSearch          `json:"search"`
	Warnings []*errs.StageError `json:"-"`
}

// Warning is the display form of a recoverable stage error.
type Warning struct {
	Stage   string `json:"stage"`
	Query   string `json:"query,omitempty"`
	Message string `json:"message"`
}

// WarningMessages renders the warnings for display and storage.
func (r *Report) WarningMessages() []Warning {
	out := make([]Warning, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, Warning{Stage: w.Stage, Query: w.Query, Message: w.Err.Error()})
	}
	return out
}
