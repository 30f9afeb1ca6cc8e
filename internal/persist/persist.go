// Package persist defines the server-of-record contract for bracket
// orders and its implementations: a remote HTTP gateway, a Postgres
// repository, and an in-memory fake for tests and development.
package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonhee/bracket/internal/contracts"
)

// API is the persistence contract consumed by the engine. Update returns
// the full updated order: the server is authoritative and the caller must
// fully replace local state with the response.
type API interface {
	// Create persists a validated draft and returns it with a server
	// identifier and status.
	Create(ctx context.Context, draft *contracts.BracketOrder) (*contracts.BracketOrder, error)

	// List returns the session's orders, optionally filtered by symbol.
	List(ctx context.Context, symbol string) ([]*contracts.BracketOrder, error)

	// Update applies a partial leg mutation and echoes the full order.
	Update(ctx context.Context, orderID string, patch contracts.OrderPatch) (*contracts.BracketOrder, error)

	// Cancel cancels the whole order.
	Cancel(ctx context.Context, orderID string) error
}

// ErrNotFound signals an unknown order id at the server of record.
var ErrNotFound = errors.New("order not found")

// ErrConflict signals a mutation rejected by the server's own lifecycle
// rules (terminal status, invalid leg set).
var ErrConflict = errors.New("order mutation rejected")

// RetryableError marks transient failures (network, 5xx) after which the
// caller reverts optimistic state and may retry the whole operation.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable persistence failure: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient persistence failure.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
