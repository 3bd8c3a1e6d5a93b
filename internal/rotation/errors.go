package rotation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidObservation marks a raw record that was dropped during normalisation.
	ErrInvalidObservation = errors.New("invalid observation")
	// ErrEmptyDataset is returned when no usable observation reaches aggregation.
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrInsufficientHistory is returned when the matrix is shorter than the lookback window.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrInsufficientOverlap is returned per indicator when too few months align with the matrix.
	ErrInsufficientOverlap = errors.New("insufficient overlap")
	// ErrInvalidLookback is returned by Classify for a negative lookback.
	ErrInvalidLookback = errors.New("invalid lookback")
	// ErrInvalidIndicator is returned for a blank or repeated macro series name.
	ErrInvalidIndicator = errors.New("invalid indicator")
)

// InvalidObservationError describes one rejected raw record.
type InvalidObservationError struct {
	Index  int
	Ticker string
	Reason string
}

func (e *InvalidObservationError) Error() string {
	return fmt.Sprintf("observation %d (%q): %s", e.Index, e.Ticker, e.Reason)
}

func (e *InvalidObservationError) Unwrap() error { return ErrInvalidObservation }

// InsufficientHistoryError reports how many months classification needed.
type InsufficientHistoryError struct {
	Required  int
	Available int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: need %d months, have %d", e.Required, e.Available)
}

func (e *InsufficientHistoryError) Unwrap() error { return ErrInsufficientHistory }

// InsufficientOverlapError reports an indicator that shares too few months with the matrix.
type InsufficientOverlapError struct {
	Indicator string
	Overlap   int
	Required  int
}

func (e *InsufficientOverlapError) Error() string {
	return fmt.Sprintf("insufficient overlap for %q: %d months, need %d", e.Indicator, e.Overlap, e.Required)
}

func (e *InsufficientOverlapError) Unwrap() error { return ErrInsufficientOverlap }
