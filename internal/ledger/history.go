package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Operation is one recorded CLI operation.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	Detail     string
}

// History records mutating operations (document edits, exports, imports).
type History interface {
	Start(ctx context.Context, operation, parameters string, at time.Time) (int64, error)
	Finish(ctx context.Context, id int64, status, detail string, at time.Time) error
	List(ctx context.Context, limit int) ([]*Operation, error)
	Close() error
}

// GetHistory returns the most recent operations, newest first.
func (s *LedgerService) GetHistory(ctx context.Context, limit int) ([]*Operation, error) {
	ops, err := s.history.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
