package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageErrorUnwrapsKind(t *testing.T) {
	cause := fmt.Errorf("quota exceeded: %w", ErrGateway)
	err := fmt.Errorf("run: %w", &StageError{Stage: "summary", Severity: Fatal, Err: cause})

	assert.True(t, errors.Is(err, ErrGateway))
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "summary (fatal)")
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(ErrProvider))
	assert.False(t, IsFatal(&StageError{Stage: "fetch", Severity: Recoverable, Query: "Go", Err: ErrProvider}))
}

func TestStageErrorMessageIncludesQuery(t *testing.T) {
	err := &StageError{Stage: "fetch", Query: "ML Engineer", Err: ErrProvider}
	assert.Equal(t, `fetch (recoverable) query "ML Engineer": job provider failed`, err.Error())
}

func TestConfiguration(t *testing.T) {
	err := Configuration("DB_URL")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.EqualError(t, err, "configuration error: DB_URL is not set")
}
