package jobs

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPlanQueries(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "duplicates, short and long keywords are dropped",
			raw:      "Data Analyst, data analyst, ML Engineer, a, Generative AI Specialist With Very Long Title",
			expected: []string{"Data Analyst", "ML Engineer"},
		},
		{
			name:     "empty input falls back",
			raw:      "",
			expected: []string{DefaultQuery},
		},
		{
			name:     "only commas and blanks fall back",
			raw:      " , ,,  ,",
			expected: []string{DefaultQuery},
		},
		{
			name:     "everything filtered falls back",
			raw:      "a, b, " + strings.Repeat("x", 41),
			expected: []string{DefaultQuery},
		},
		{
			name:     "capped at three in first-seen order",
			raw:      "Go Developer, Backend Engineer, SRE, Platform Engineer, DevOps",
			expected: []string{"Go Developer", "Backend Engineer", "SRE"},
		},
		{
			name:     "cap counts survivors not pieces",
			raw:      "x, Go Developer, go developer, GO DEVELOPER, SRE, y, DevOps, Cloud",
			expected: []string{"Go Developer", "SRE", "DevOps"},
		},
		{
			name:     "boundary lengths are inclusive",
			raw:      "ab, " + strings.Repeat("z", 40),
			expected: []string{"ab", strings.Repeat("z", 40)},
		},
		{
			name:     "length is counted in runes",
			raw:      "Développeur Back-end Sénior Spécialisé",
			expected: []string{"Développeur Back-end Sénior Spécialisé"},
		},
		{
			name:     "long prose without commas is dropped",
			raw:      "Here are some keywords you could use for your job search today",
			expected: []string{DefaultQuery},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, PlanQueries(tc.raw))
		})
	}
}

func TestPlanner_CustomLimitAndFallback(t *testing.T) {
	pl := Planner{MaxQueries: 1, Fallback: "Software Engineer"}

	assert.Equal(t, []string{"Go Developer"}, pl.Plan("Go Developer, SRE"))
	assert.Equal(t, []string{"Software Engineer"}, pl.Plan(""))
}

func TestPlanQueries_Invariants(t *testing.T) {
	words := []string{"Data Analyst", "data analyst", "ML", "a", "", " ", "SRE", "sre",
		"Generative AI Specialist With Very Long Title", "Go", "Backend Engineer", "BI Developer", "\t"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := rng.Intn(8)
		pieces := make([]string, n)
		for j := range pieces {
			pieces[j] = words[rng.Intn(len(words))]
		}
		raw := strings.Join(pieces, ",")

		got := PlanQueries(raw)

		assert.GreaterOrEqual(t, len(got), 1, raw)
		assert.LessOrEqual(t, len(got), DefaultMaxQueries, raw)
		seen := map[string]bool{}
		lastIdx := -1
		for _, q := range got {
			n := utf8.RuneCountInString(q)
			assert.True(t, n >= MinQueryLength && n <= MaxQueryLength, q)
			assert.False(t, seen[strings.ToLower(q)], "duplicate %q in %q", q, raw)
			seen[strings.ToLower(q)] = true
			if q == DefaultQuery && len(got) == 1 {
				continue
			}
			idx := indexOfPiece(pieces, q)
			assert.Greater(t, idx, lastIdx, "order for %q", raw)
			lastIdx = idx
		}
	}
}

func indexOfPiece(pieces []string, q string) int {
	for i, p := range pieces {
		if strings.TrimSpace(p) == q {
			return i
		}
	}
	return -1
}
