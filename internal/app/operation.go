package app

import "time"

// Operation status values written to the history.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks a CLI operation that may change the ledger.
// Operations are created in memory with ID=0. Only mutating commands
// persist them, which gives them an id from the history database.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	Status     string
	Detail     string
}

// NewOperation creates a new in-memory operation.
func NewOperation(operation, parameters string, startedAt time.Time) *Operation {
	return &Operation{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the history.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Record marks the operation failed when err is non-nil. The first error
// wins; later successes do not clear it.
func (op *Operation) Record(err error) {
	if err == nil || op.Status == StatusError {
		return
	}
	op.Status = StatusError
	op.Detail = err.Error()
}
