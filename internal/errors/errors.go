// Package errors defines the triage engine's error taxonomy (spec.md §3, §7).
//
// Two regimes exist: signal-level (non-fatal) diagnostics recorded as
// TriageError values on the artifact, and run-level (fatal) conditions that
// still return a fully-formed artifact with at least one such record. No
// stage is permitted to panic for a mere format mismatch; this package is
// the vocabulary stage drivers convert internal errors into before they
// reach the orchestrator.
package errors

import (
	"fmt"
	"time"
)

// Kind enumerates the stable TriageError classifications from spec.md §3.
type Kind string

const (
	ShortRead          Kind = "ShortRead"
	BadMagic           Kind = "BadMagic"
	IncoherentFields   Kind = "IncoherentFields"
	UnsupportedVariant Kind = "UnsupportedVariant"
	Truncated          Kind = "Truncated"
	BudgetExceeded     Kind = "BudgetExceeded"
	ParserMismatch     Kind = "ParserMismatch"
	SnifferMismatch    Kind = "SnifferMismatch"
	Other              Kind = "Other"
)

// TriageError is the non-fatal diagnostic record attached to an artifact.
// It also doubles as the run-level fatal error value: a fatal condition is
// simply a TriageError returned alongside an artifact whose verdicts may be
// empty (spec.md §7).
type TriageError struct {
	Kind       Kind
	Message    string
	Stage      string // which pipeline stage recorded this, for debugging
	Underlying error
	Timestamp  time.Time
}

// New creates a TriageError of the given kind with a formatted message.
func New(kind Kind, stage, format string, args ...any) *TriageError {
	return &TriageError{
		Kind:      kind,
		Stage:     stage,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	}
}

// Wrap creates a TriageError of the given kind wrapping an underlying error.
func Wrap(kind Kind, stage string, err error) *TriageError {
	if err == nil {
		return nil
	}
	return &TriageError{
		Kind:       kind,
		Stage:      stage,
		Message:    err.Error(),
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface.
func (e *TriageError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *TriageError) Unwrap() error {
	return e.Underlying
}

// Fatal reports whether this kind of error, on its own, should be treated as
// a run-level failure that short-circuits remaining stages. BudgetExceeded
// always short-circuits; the rest are signal-level and the pipeline
// continues collecting partial output (spec.md §7).
func (e *TriageError) Fatal() bool {
	return e.Kind == BudgetExceeded
}

// MultiError aggregates multiple TriageErrors accumulated over a run,
// specialized to the fixed TriageError type rather than a generic error
// slice.
type MultiError struct {
	Errors []*TriageError
}

// NewMultiError filters nils and returns an aggregate.
func NewMultiError(errs []*TriageError) *MultiError {
	filtered := make([]*TriageError, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors: %v", len(m.Errors), m.Errors)
	}
}

// Add appends a non-nil error.
func (m *MultiError) Add(err *TriageError) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasFatal reports whether any accumulated error is fatal.
func (m *MultiError) HasFatal() bool {
	for _, e := range m.Errors {
		if e.Fatal() {
			return true
		}
	}
	return false
}
