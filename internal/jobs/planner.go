// Package jobs turns LLM keyword output into job-search queries and
// consolidates the postings those queries return.
package jobs

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxQueries = 3
	MinQueryLength    = 2
	MaxQueryLength    = 40
	DefaultQuery      = "Data Analyst"
)

// Planner converts a comma-separated keyword list into search queries.
// The zero value uses DefaultMaxQueries and DefaultQuery.
type Planner struct {
	MaxQueries int
	Fallback   string
}

// Plan returns between 1 and MaxQueries queries, each 2 to 40 runes long,
// case-insensitively distinct and ordered by first appearance. It never
// returns an empty list: with no usable keyword it returns the fallback.
func (pl Planner) Plan(raw string) []string {
	limit := pl.MaxQueries
	if limit <= 0 {
		limit = DefaultMaxQueries
	}
	fallback := pl.Fallback
	if fallback == "" {
		fallback = DefaultQuery
	}

	seen := make(map[string]struct{})
	queries := make([]string, 0, limit)
	for _, piece := range strings.Split(raw, ",") {
		q := strings.TrimSpace(piece)
		if q == "" {
			continue
		}
		if n := utf8.RuneCountInString(q); n < MinQueryLength || n > MaxQueryLength {
			continue
		}
		folded := strings.ToLower(q)
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		queries = append(queries, q)
		if len(queries) == limit {
			break
		}
	}

	if len(queries) == 0 {
		return []string{fallback}
	}
	return queries
}

// PlanQueries plans with the default settings.
func PlanQueries(raw string) []string {
	return Planner{}.Plan(raw)
}
