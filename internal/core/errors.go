package core

import (
	"errors"
	"fmt"
)

// ErrEmptyLog reports a snapshot with no observations. It means "no data
// yet" and is not a fault.
var ErrEmptyLog = errors.New("observation log is empty")

// ErrStore marks failures of the log store collaborator (append or read).
var ErrStore = errors.New("log store failure")

// ErrNegativeCount is returned when a detector count below zero is observed.
var ErrNegativeCount = errors.New("count must be non-negative")

// MissingFieldError reports a required column absent from a fetched row set.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("column %q not found in observation log", e.Field)
}

// MalformedRowError reports a row whose timestamp or count could not be
// parsed. Such rows are skipped rather than failing the snapshot.
type MalformedRowError struct {
	Index int
	Field string
	Value string
	Err   error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: malformed %s %q: %v", e.Index, e.Field, e.Value, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

// storeError wraps a collaborator error so that errors.Is(err, ErrStore)
// holds while the original cause stays reachable.
type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *storeError) Unwrap() []error {
	return []error{ErrStore, e.err}
}

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStore) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &storeError{op: op, err: err}
}
