// Package recommender sequences resume analysis and job search: text
// extraction, four LLM prompts, query planning, per-query job fetches and
// result consolidation.
package recommender

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/jobrecommender/internal/errs"
	"github.com/muhammadolammi/jobrecommender/internal/jobs"
	"github.com/muhammadolammi/jobrecommender/internal/llm"
)

// TextSource extracts resume text from document bytes.
type TextSource interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// JobProvider searches one query.
type JobProvider interface {
	Search(ctx context.Context, query, location string, maxResults int) ([]jobs.Posting, error)
}

// Stage names a pipeline step.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageSummary  Stage = "summary"
	StageGaps     Stage = "gaps"
	StageRoadmap  Stage = "roadmap"
	StageKeywords Stage = "keywords"
	StageFetch    Stage = "fetch"
)

// stagePolicy decides which failures abort a run. Only steps without a
// usable substitute are fatal.
var stagePolicy = map[Stage]errs.Severity{
	StageExtract:  errs.Fatal,
	StageSummary:  errs.Fatal,
	StageGaps:     errs.Recoverable,
	StageRoadmap:  errs.Recoverable,
	StageKeywords: errs.Recoverable,
	StageFetch:    errs.Recoverable,
}

// SeverityOf returns the failure policy of a stage.
func SeverityOf(s Stage) errs.Severity {
	return stagePolicy[s]
}

func stageError(s Stage, query string, err error) *errs.StageError {
	return &errs.StageError{Stage: string(s), Severity: SeverityOf(s), Query: query, Err: err}
}

// Pipeline holds the collaborators of one recommender. It keeps no state
// between runs and is safe for concurrent use when its collaborators are.
type Pipeline struct {
	text    TextSource
	llm     llm.Gateway
	jobs    JobProvider
	planner jobs.Planner
	log     logrus.FieldLogger
}

type Option func(*Pipeline)

// WithPlanner overrides the query planner settings.
func WithPlanner(pl jobs.Planner) Option {
	return func(p *Pipeline) { p.planner = pl }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.log = l }
}

func New(text TextSource, gateway llm.Gateway, provider JobProvider, opts ...Option) *Pipeline {
	p := &Pipeline{
		text: text,
		llm:  gateway,
		jobs: provider,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run analyzes the document and searches jobs for it. A fatal stage error
// is returned alone, without partial analysis. Recoverable failures are
// listed in Report.Warnings.
func (p *Pipeline) Run(ctx context.Context, document []byte, opts SearchOptions) (*Report, error) {
	analysis, warnings, err := p.analyze(ctx, document)
	if err != nil {
		return nil, err
	}
	search, fetchWarnings := p.Recommend(ctx, analysis.Summary, opts)

	return &Report{
		Analysis: analysis,
		Search:   search,
		Warnings: append(warnings, fetchWarnings...),
	}, nil
}

// Analyze runs extraction, summary, gap analysis and roadmap generation.
// The error is a fatal *errs.StageError; gap and roadmap failures are
// returned as warnings with the partial analysis.
func (p *Pipeline) Analyze(ctx context.Context, document []byte) (Analysis, []*errs.StageError, error) {
	return p.analyze(ctx, document)
}

func (p *Pipeline) analyze(ctx context.Context, document []byte) (Analysis, []*errs.StageError, error) {
	var warnings []*errs.StageError

	p.log.WithField("bytes", len(document)).Info("extracting text from resume")
	resumeText, err := p.text.Extract(ctx, document)
	if err != nil {
		se := stageError(StageExtract, "", err)
		p.log.WithError(err).Error("failed to read resume")
		return Analysis{}, nil, se
	}

	vars := map[string]string{llm.VarResumeText: resumeText}

	summary, se := p.complete(ctx, StageSummary, llm.SummaryPrompt, vars)
	if se != nil {
		return Analysis{}, nil, se
	}
	gaps, se := p.complete(ctx, StageGaps, llm.GapsPrompt, vars)
	if se != nil {
		warnings = append(warnings, se)
	}
	roadmap, se := p.complete(ctx, StageRoadmap, llm.RoadmapPrompt, vars)
	if se != nil {
		warnings = append(warnings, se)
	}

	return Analysis{
		ResumeText: resumeText,
		Summary:    summary,
		Gaps:       gaps,
		Roadmap:    roadmap,
	}, warnings, nil
}

// complete runs one prompt. On a recoverable failure it returns "" and the
// warning; callers only need to stop on a fatal one.
func (p *Pipeline) complete(ctx context.Context, stage Stage, prompt llm.Prompt, vars map[string]string) (string, *errs.StageError) {
	log := p.log.WithField("stage", stage)
	log.Info("calling language model")

	out, err := p.llm.Complete(ctx, prompt, vars)
	if err == nil {
		return out, nil
	}
	se := stageError(stage, "", err)
	if se.Severity == errs.Fatal {
		log.WithError(err).Error("stage failed")
	} else {
		log.WithError(err).Warn("stage failed, continuing without it")
	}
	return "", se
}

// Recommend derives queries from the summary and searches each of them.
// It never fails as a whole: keyword and per-query failures come back as
// warnings and at worst yield an empty job list.
func (p *Pipeline) Recommend(ctx context.Context, summary string, opts SearchOptions) (JobSearch, []*errs.StageError) {
	opts = opts.normalized()
	var warnings []*errs.StageError

	keywords, se := p.complete(ctx, StageKeywords, llm.KeywordsPrompt, map[string]string{llm.VarSummary: summary})
	if se != nil {
		warnings = append(warnings, se)
	}
	queries := p.planner.Plan(llm.StripCodeFence(keywords))
	p.log.WithFields(logrus.Fields{
		"raw_keywords": keywords,
		"queries":      queries,
	}).Debug("planned job queries")

	results := p.fetch(ctx, queries, opts)

	groups := make([][]jobs.Posting, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			warnings = append(warnings, r.err)
			continue
		}
		groups = append(groups, r.postings)
	}
	merged := jobs.Merge(groups...)

	outcomes := make([]QueryOutcome, len(results))
	for i, r := range results {
		outcomes[i] = QueryOutcome{Query: r.query, Count: len(r.postings)}
		if r.err != nil {
			outcomes[i].Error = r.err.Err.Error()
		}
	}

	p.log.WithFields(logrus.Fields{
		"queries": len(queries),
		"jobs":    len(merged),
	}).Info("job search finished")

	return JobSearch{
		RawKeywords: keywords,
		Queries:     queries,
		Location:    opts.Location,
		Rows:        opts.Rows,
		Outcomes:    outcomes,
		Jobs:        merged,
	}, warnings
}

type fetchResult struct {
	query    string
	postings []jobs.Posting
	err      *errs.StageError
}

// fetch searches every query. Results are indexed by query position so the
// merge order does not depend on completion order.
func (p *Pipeline) fetch(ctx context.Context, queries []string, opts SearchOptions) []fetchResult {
	results := make([]fetchResult, len(queries))
	one := func(i int) {
		q := queries[i]
		results[i] = fetchResult{query: q}
		defer func() {
			if r := recover(); r != nil {
				p.log.WithField("query", q).Errorf("job provider panicked: %v", r)
				results[i].postings = nil
				results[i].err = stageError(StageFetch, q, fmt.Errorf("%w: panic: %v", errs.ErrProvider, r))
			}
		}()
		postings, err := p.jobs.Search(ctx, q, opts.Location, opts.Rows)
		if err != nil {
			p.log.WithError(err).WithField("query", q).Warn("job query failed, skipping")
			results[i].err = stageError(StageFetch, q, err)
			return
		}
		p.log.WithFields(logrus.Fields{"query": q, "jobs": len(postings)}).Debug("job query finished")
		results[i].postings = postings
	}

	if !opts.Parallel {
		for i := range queries {
			one(i)
		}
		return results
	}

	var wg sync.WaitGroup
	for i := range queries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			one(i)
		}(i)
	}
	wg.Wait()
	return results
}
