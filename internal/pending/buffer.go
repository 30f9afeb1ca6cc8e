// Package pending batches uncommitted leg-price edits (typically from
// interactive dragging) until they are explicitly applied or cancelled.
// Nothing here mutates an order until ApplyAll commits a group; staged
// changes hold only a side-table of proposed prices referencing orders
// by id.
package pending

import (
	"sync"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/persist"
	"github.com/wonhee/bracket/internal/store"
	"github.com/wonhee/bracket/pkg/logger"
)

// Change is one staged leg-price edit. CommittedPrice is the price that
// was live before any dragging began in this batch; it is the revert
// target no matter how many times the proposal is overwritten.
type Change struct {
	Ref            contracts.LegRef `json:"ref"`
	CommittedPrice float64          `json:"committed_price"`
	ProposedPrice  float64          `json:"proposed_price"`
}

// Revert tells the caller to snap a leg back to its committed price.
type Revert struct {
	Ref   contracts.LegRef `json:"ref"`
	Price float64          `json:"price"`
}

// Buffer accumulates staged changes keyed by leg identifier.
type Buffer struct {
	mu      sync.Mutex
	changes map[string]*Change // keyed by LegRef.LineID()

	store   *store.Store
	persist persist.API
	logger  *logger.Logger
}

// New creates an empty buffer bound to the session store and the server
// of record.
func New(st *store.Store, api persist.API, log *logger.Logger) *Buffer {
	return &Buffer{
		changes: make(map[string]*Change),
		store:   st,
		persist: api,
		logger:  log,
	}
}

// Stage records a proposed price for one leg. Re-staging the same leg
// overwrites the proposal but preserves the original committed price, so
// revert always restores the pre-drag price, never an intermediate drag
// position.
func (b *Buffer) Stage(ref contracts.LegRef, committedPrice, proposedPrice float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := ref.LineID()
	if existing, ok := b.changes[key]; ok {
		existing.ProposedPrice = proposedPrice
		return
	}

	b.changes[key] = &Change{
		Ref:            ref,
		CommittedPrice: committedPrice,
		ProposedPrice:  proposedPrice,
	}
}

// Staged returns a copy of the current staged changes.
func (b *Buffer) Staged() []Change {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Change, 0, len(b.changes))
	for _, c := range b.changes {
		out = append(out, *c)
	}
	return out
}

// Len returns the number of staged changes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}

// CancelAll discards every staged change and returns the reverts the
// caller needs to repaint. Calling it again with an empty buffer is a
// no-op.
func (b *Buffer) CancelAll() []Revert {
	b.mu.Lock()
	defer b.mu.Unlock()

	reverts := make([]Revert, 0, len(b.changes))
	for _, c := range b.changes {
		reverts = append(reverts, Revert{Ref: c.Ref, Price: c.CommittedPrice})
	}
	b.changes = make(map[string]*Change)
	return reverts
}

// CancelOne discards the staged change for one leg, returning its revert.
func (b *Buffer) CancelOne(ref contracts.LegRef) (Revert, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := ref.LineID()
	c, ok := b.changes[key]
	if !ok {
		return Revert{}, false
	}
	delete(b.changes, key)
	return Revert{Ref: c.Ref, Price: c.CommittedPrice}, true
}
