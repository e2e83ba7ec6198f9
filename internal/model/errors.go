package model

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Fatal kinds abort the run; recoverable
// kinds are resolved locally and recorded as annotations on their artifact.
type Kind string

const (
	KindSchemaViolation          Kind = "schema_violation"           // artifact failed shape validation at a boundary
	KindDedupeExhausted          Kind = "dedupe_exhausted"           // no candidate survives even the forced fallback
	KindVerificationFailure      Kind = "verification_failure"       // per-line, recovered via rewrite/drop
	KindTimingInvariantViolation Kind = "timing_invariant_violation" // beat sheet failed a structural invariant
	KindResolverExhausted        Kind = "resolver_exhausted"         // per-slot, slot flagged unresolved
	KindLedgerWriteConflict      Kind = "ledger_write_conflict"      // duplicate run ID on commit, no-op
)

// Fatal reports whether the kind aborts the run.
func (k Kind) Fatal() bool {
	switch k {
	case KindSchemaViolation, KindDedupeExhausted, KindTimingInvariantViolation:
		return true
	}
	return false
}

// Error is a classified pipeline error with the stage that produced it.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Stage, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Stage, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error for the given stage.
func NewError(kind Kind, stage, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// WrapError wraps an underlying error with a classification.
func WrapError(kind Kind, stage string, err error, msg string) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg, Err: err}
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the classification of err, or "" if it is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
