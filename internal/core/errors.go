package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Session lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateLead is returned by Session.InsertLead when another writer
// stored the same lead key first.
var ErrDuplicateLead = errors.New("lead already exists for key")

// ErrCycleInProgress is returned when a cycle is requested while another
// one holds the cycle lock.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// StoreError wraps any failure talking to the relational store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MalformedRowError reports a row that cannot be processed beyond the
// defined fallbacks, such as one whose cells panic a normalizer. The row is
// recorded as failed and the cycle continues.
type MalformedRowError struct {
	Row    int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %d: %s", e.Row, e.Reason)
}

// storeErr wraps err unless it is nil or one of the sentinel results a
// Session is expected to return.
func storeErr(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateLead) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
