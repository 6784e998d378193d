package sheets

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized  = errors.New("google sheets unauthorized")
	ErrRateLimited   = errors.New("google sheets rate limited")
	ErrUnknownSheet  = errors.New("unknown sheet")
	ErrRowOutOfRange = errors.New("row index out of range")
)

// Store is the tabular backend. Row indexes are 1-based sheet row numbers,
// the same numbers RowsToObjects reports in Record.Row.
type Store interface {
	GetRows(ctx context.Context, sheet string) ([][]string, error)
	AppendRow(ctx context.Context, sheet string, values []string) error
	UpdateRow(ctx context.Context, sheet string, rowIndex int, values []string) error
}
