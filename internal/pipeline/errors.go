package pipeline

import (
	"errors"
	"fmt"
)

// Fatal load errors. A dataset whose sources fail with one of these is not
// built at all.
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrMalformedTable = errors.New("malformed table")
)

// Selector boundary errors.
var (
	ErrUnknownChart    = errors.New("unknown chart")
	ErrUnknownDataset  = errors.New("unknown dataset")
	ErrInvalidSelector = errors.New("invalid selector")
)

// ErrEmptyJoin marks a merge that kept no keys. It is reported in
// diagnostics and never returned from Build.
var ErrEmptyJoin = errors.New("empty join result")

// SourceError ties a load or reshape failure to the source that caused it.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func sourceErr(source string, kind error, format string, args ...any) error {
	return &SourceError{Source: source, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}
