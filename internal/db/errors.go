package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrNotFound         = errors.New("db: record not found")
	ErrUnknownDriver    = errors.New("db: unknown driver")
	ErrCollectionAbsent = errors.New("db: collection not found")
)

// Op constants name the store call for error context.
const (
	OpPing        = "PING"
	OpBegin       = "BEGIN"
	OpCommit      = "COMMIT"
	OpSelect      = "SELECT"
	OpInsert      = "INSERT"
	OpCount       = "COUNT"
	OpPointsCount = "POINTS.COUNT"
	OpSearch      = "FT.SEARCH"
	OpScan        = "SCAN"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
