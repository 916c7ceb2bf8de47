package board

import (
	"context"
	"errors"
)

// Sentinel errors for board operations.
var (
	ErrTableNotFound = errors.New("table file not found")
	ErrNoData        = errors.New("no pending data")
)

// Store defines persistence operations for the message table.
type Store interface {
	// Append writes a record at the end of the table and returns the number of
	// bytes written. Any error leaves the table in an unknown state and must
	// be treated as fatal by the caller.
	Append(ctx context.Context, rec Record) (int, error)
	// ScanFrom returns, in stored order, the records of the fetch window
	// starting at the first one whose timestamp is at least threshold.
	ScanFrom(ctx context.Context, threshold uint32) ([]Record, error)
}
