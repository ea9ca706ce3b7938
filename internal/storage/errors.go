package storage

import "errors"

// Sentinel errors shared by every backend. Callers match with errors.Is.
var (
	// ErrNotFound is returned when a run or summary lookup misses.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a key is written twice. Predictions,
	// runs, daily records and summaries are append-only.
	ErrDuplicateKey = errors.New("duplicate key: backtest stores are append-only")

	// ErrInvalidInput is returned for nil rows or empty key fields.
	ErrInvalidInput = errors.New("invalid input")
)
