package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an extraction attempt failed.
type ErrorKind string

const (
	KindInvalidDocumentReference ErrorKind = "InvalidDocumentReference"
	KindInvalidIdentifiers       ErrorKind = "InvalidIdentifiers"
	KindJobTerminalFailure       ErrorKind = "JobTerminalFailure"
	KindJobTimeout               ErrorKind = "JobTimeout"
	KindNoAssistantResponse      ErrorKind = "NoAssistantResponse"
	KindEmptyResponse            ErrorKind = "EmptyResponse"
	KindMalformedExtraction      ErrorKind = "MalformedExtraction"
	KindPersistenceFailure       ErrorKind = "PersistenceFailure"
	KindEngineFailure            ErrorKind = "EngineFailure"
	KindNotFound                 ErrorKind = "NotFound"
	KindInvalidInput             ErrorKind = "InvalidInput"
)

// Sentinels for errors.Is; matching is by kind only.
var (
	ErrInvalidDocumentReference = &Error{Kind: KindInvalidDocumentReference}
	ErrInvalidIdentifiers       = &Error{Kind: KindInvalidIdentifiers}
	ErrJobTerminalFailure       = &Error{Kind: KindJobTerminalFailure}
	ErrJobTimeout               = &Error{Kind: KindJobTimeout}
	ErrNoAssistantResponse      = &Error{Kind: KindNoAssistantResponse}
	ErrEmptyResponse            = &Error{Kind: KindEmptyResponse}
	ErrMalformedExtraction      = &Error{Kind: KindMalformedExtraction}
	ErrPersistenceFailure       = &Error{Kind: KindPersistenceFailure}
	ErrEngineFailure            = &Error{Kind: KindEngineFailure}
	ErrNotFound                 = &Error{Kind: KindNotFound}
	ErrInvalidInput             = &Error{Kind: KindInvalidInput}
)

// Error is the structured failure surfaced to callers of the extraction pipeline.
type Error struct {
	Kind ErrorKind
	Msg  string
	// Status is set for JobTerminalFailure.
	Status JobStatus
	Err    error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf builds a kind-tagged error. A trailing %w operand becomes the wrapped cause.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: wrapped.Error(), Err: errors.Unwrap(wrapped)}
}

// Wrap tags err with kind, keeping err reachable through errors.Unwrap.
func Wrap(kind ErrorKind, msg string, err error) *Error {
	if err == nil {
		return &Error{Kind: kind, Msg: msg}
	}
	return &Error{Kind: kind, Msg: msg + ": " + err.Error(), Err: err}
}

// TerminalFailure reports a job that ended in a non-success terminal state.
func TerminalFailure(jobID string, status JobStatus) *Error {
	return &Error{
		Kind:   KindJobTerminalFailure,
		Msg:    fmt.Sprintf("job %s finished with status %s", jobID, status),
		Status: status,
	}
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
