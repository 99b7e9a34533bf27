// Package errs holds the error kinds shared by the recommendation pipeline
// and its collaborators.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrExtraction    = errors.New("text extraction failed")
	ErrGateway       = errors.New("language model gateway failed")
	ErrProvider      = errors.New("job provider failed")
	ErrConfiguration = errors.New("configuration error")
)

// Severity tells the pipeline whether a failed stage aborts the run.
type Severity int

const (
	Recoverable Severity = iota
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// StageError is a failure of one pipeline stage. Query is set only for
// per-query job fetches.
type StageError struct {
	Stage    string
	Severity Severity
	Query    string
	Err      error
}

func (e *StageError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("%s (%s) query %q: %v", e.Stage, e.Severity, e.Query, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Severity, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a fatal StageError.
func IsFatal(err error) bool {
	var se *StageError
	return errors.As(err, &se) && se.Severity == Fatal
}

// Configuration builds a missing-setting error.
func Configuration(key string) error {
	return fmt.Errorf("%w: %s is not set", ErrConfiguration, key)
}
