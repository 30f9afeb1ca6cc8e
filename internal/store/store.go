// Package store owns the authoritative in-memory bracket order collection
// for the active session. All mutation funnels through its methods; the
// store is handed to collaborators by reference, never reached through
// ambient globals. Single-writer, last-write-wins per order id.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/wonhee/bracket/internal/contracts"
)

// ErrNotFound signals a lookup miss. Leg-identifier misses are an
// internal-consistency signal under correct UI wiring and are logged by
// callers before aborting without side effects.
var ErrNotFound = errors.New("order not found")

// Store is the session order collection.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*contracts.BracketOrder
}

// New creates an empty store.
func New() *Store {
	return &Store{
		orders: make(map[string]*contracts.BracketOrder),
	}
}

// Add inserts an order keyed by its id.
func (s *Store) Add(order *contracts.BracketOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = order.Clone()
}

// ReplaceAll swaps the whole collection for a bulk load from persistence.
func (s *Store) ReplaceAll(orders []*contracts.BracketOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[string]*contracts.BracketOrder, len(orders))
	for _, o := range orders {
		s.orders[o.ID] = o.Clone()
	}
}

// Remove deletes an order. Returns ErrNotFound if absent.
func (s *Store) Remove(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return ErrNotFound
	}
	delete(s.orders, orderID)
	return nil
}

// Replace fully replaces the stored order with a server echo. The server
// is authoritative: whatever it returns wins over any locally staged
// merge, including array-shape changes a shallow merge could get wrong.
func (s *Store) Replace(order *contracts.BracketOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return ErrNotFound
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

// Merge applies a shallow field patch for a locally-optimistic update
// before server confirmation. Returns the merged order.
func (s *Store) Merge(orderID string, patch contracts.OrderPatch) (*contracts.BracketOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}

	merged := patch.ApplyTo(current)
	s.orders[orderID] = merged
	return merged.Clone(), nil
}

// Promote replaces a provisional optimistic entry with the confirmed
// server order, dropping the provisional id.
func (s *Store) Promote(provisionalID string, confirmed *contracts.BracketOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[provisionalID]; !ok {
		return ErrNotFound
	}
	delete(s.orders, provisionalID)
	s.orders[confirmed.ID] = confirmed.Clone()
	return nil
}

// Get returns a copy of one order.
func (s *Store) Get(orderID string) (*contracts.BracketOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return order.Clone(), nil
}

// List returns copies of all orders, optionally filtered by symbol,
// newest first.
func (s *Store) List(symbol string) []*contracts.BracketOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*contracts.BracketOrder, 0, len(s.orders))
	for _, o := range s.orders {
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		out = append(out, o.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// Len returns the number of stored orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// FindByLegRef resolves a typed leg reference to its owning order.
func (s *Store) FindByLegRef(ref contracts.LegRef) (*contracts.BracketOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[ref.OrderID]
	if !ok {
		return nil, ErrNotFound
	}
	return order.Clone(), nil
}

// FindByLineID resolves the flat UI line id "order-<orderId>-<legType>".
// Order ids containing hyphens parse correctly: the final segment is the
// leg type, everything between the prefix and it is the id.
func (s *Store) FindByLineID(lineID string) (*contracts.BracketOrder, contracts.LegType, error) {
	ref, err := contracts.ParseLineID(lineID)
	if err != nil {
		return nil, "", err
	}

	order, lookupErr := s.FindByLegRef(ref)
	if lookupErr != nil {
		return nil, "", lookupErr
	}
	return order, ref.LegType, nil
}

// Lines projects every stored order into trading lines for rendering.
func (s *Store) Lines() []contracts.TradingLine {
	orders := s.List("")

	lines := make([]contracts.TradingLine, 0, len(orders)*4)
	for _, o := range orders {
		lines = append(lines, contracts.LinesFor(o)...)
	}
	return lines
}
