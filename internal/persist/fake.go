package persist

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/validation"
)

// Fake is an in-memory server of record for tests and the dev serve mode.
// It applies the same lifecycle rules as the real backends and supports
// failure injection.
type Fake struct {
	mu     sync.Mutex
	orders map[string]*contracts.BracketOrder

	// failNext, when set, makes the next call fail with this error.
	failNext error
}

// NewFake creates an empty fake.
func NewFake() *Fake {
	return &Fake{orders: make(map[string]*contracts.BracketOrder)}
}

// FailNext makes the next API call return err.
func (f *Fake) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = err
}

func (f *Fake) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

// Create assigns an id and stores the draft as pending.
func (f *Fake) Create(ctx context.Context, draft *contracts.BracketOrder) (*contracts.BracketOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	order := draft.Clone()
	order.ID = uuid.NewString()
	order.Status = contracts.StatusPending
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.RemainingQuantity = order.Quantity

	f.orders[order.ID] = order
	return order.Clone(), nil
}

// List returns stored orders newest first.
func (f *Fake) List(ctx context.Context, symbol string) ([]*contracts.BracketOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	out := make([]*contracts.BracketOrder, 0, len(f.orders))
	for _, o := range f.orders {
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update applies a patch with re-validation and echoes the full order.
func (f *Fake) Update(ctx context.Context, orderID string, patch contracts.OrderPatch) (*contracts.BracketOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	current, ok := f.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Status.Terminal() {
		return nil, fmt.Errorf("%w: order %s is %s", ErrConflict, orderID, current.Status)
	}
	if patch.EntryPrice != nil && current.Status != contracts.StatusPending {
		return nil, fmt.Errorf("%w: entry price is only editable while pending", ErrConflict)
	}

	updated := patch.ApplyTo(current)
	if updated.EntryPrice > 0 {
		res := validation.OrderPrices(updated.Side, updated.EntryPrice, updated.StopLossPrice, updated.TakeProfitPrices())
		if !res.Valid {
			return nil, fmt.Errorf("%w: %s", ErrConflict, res.Reason)
		}
	}

	f.orders[orderID] = updated
	return updated.Clone(), nil
}

// Cancel marks the order cancelled.
func (f *Fake) Cancel(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return err
	}

	current, ok := f.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	if current.Status.Terminal() {
		return fmt.Errorf("%w: order %s is %s", ErrConflict, orderID, current.Status)
	}

	current.Status = contracts.StatusCancelled
	return nil
}

// SetStatus drives externally-reported fills in tests.
func (f *Fake) SetStatus(orderID string, status contracts.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if o, ok := f.orders[orderID]; ok {
		o.Status = status
	}
}
