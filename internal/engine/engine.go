// Package engine coordinates the session's bracket orders: it owns the
// optimistic local store, stages interactive leg drags, and reconciles
// every mutation against the server of record. Handlers and commands
// talk to the engine; they never touch the store or persistence
// directly.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/wonhee/bracket/internal/bracket"
	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/pending"
	"github.com/wonhee/bracket/internal/persist"
	"github.com/wonhee/bracket/internal/store"
	"github.com/wonhee/bracket/pkg/logger"
)

// ErrApplyInProgress rejects a batch apply while a previous one is still
// talking to the server of record.
var ErrApplyInProgress = errors.New("batch apply already in progress")

// PriceSource supplies the current market price for a symbol. The candle
// cache satisfies this; tests substitute a fixed quote.
type PriceSource interface {
	LastClose(symbol string) (float64, bool)
}

// Engine is the session coordinator.
type Engine struct {
	store   *store.Store
	buffer  *pending.Buffer
	persist persist.API
	prices  PriceSource
	logger  *logger.Logger

	applying atomic.Bool
}

// New creates an engine. prices may be nil when no market feed is
// configured; market drafts then skip the directional pre-check the same
// way the server does without a quote.
func New(st *store.Store, buf *pending.Buffer, api persist.API, prices PriceSource, log *logger.Logger) *Engine {
	return &Engine{
		store:   st,
		buffer:  buf,
		persist: api,
		prices:  prices,
		logger:  log,
	}
}

// LoadOrders replaces the session collection with the server's order
// list. Any staged-but-unapplied drags are discarded first so nothing
// references orders the reload may drop.
func (e *Engine) LoadOrders(ctx context.Context, symbol string) ([]*contracts.BracketOrder, error) {
	orders, err := e.persist.List(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	e.buffer.CancelAll()
	e.store.ReplaceAll(orders)

	e.logger.WithFields(map[string]interface{}{
		"count":  len(orders),
		"symbol": symbol,
	}).Info("Loaded orders from server")

	return e.store.List(symbol), nil
}

// CreateOrder validates a draft, inserts it optimistically under a
// provisional id, and promotes it to the confirmed server order. On
// persistence failure the provisional entry is removed again so the
// session never shows an order the server does not have.
func (e *Engine) CreateOrder(ctx context.Context, input bracket.DraftInput) (*contracts.BracketOrder, error) {
	draft, err := bracket.NewDraft(input, e.referencePrice(input))
	if err != nil {
		return nil, err
	}

	draft.ID = contracts.ProvisionalPrefix + uuid.NewString()
	e.store.Add(draft)

	confirmed, err := e.persist.Create(ctx, draft)
	if err != nil {
		if removeErr := e.store.Remove(draft.ID); removeErr != nil {
			e.logger.WithError(removeErr).Warn("Failed to roll back provisional order")
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := e.store.Promote(draft.ID, confirmed); err != nil {
		// The provisional entry vanished underneath us (e.g. a reload ran
		// concurrently). The confirmed order is still real; keep it.
		e.store.Add(confirmed)
	}

	e.logger.WithFields(map[string]interface{}{
		"order_id": confirmed.ID,
		"symbol":   confirmed.Symbol,
		"side":     confirmed.Side,
	}).Info("Order created")

	return confirmed.Clone(), nil
}

// UpdateLeg is the edit-submit path: one leg changes price and the
// change commits immediately. The proposal is validated against the
// order's committed leg set, written to the server, and the server echo
// replaces local state.
func (e *Engine) UpdateLeg(ctx context.Context, ref contracts.LegRef, newPrice float64) (*contracts.BracketOrder, error) {
	order, err := e.store.FindByLegRef(ref)
	if err != nil {
		return nil, err
	}

	update, err := bracket.ProposeLegUpdate(order, ref.LegType, newPrice)
	if err != nil {
		return nil, err
	}

	return e.commitPatch(ctx, order.ID, update.Patch)
}

// RemoveLeg cancels a single protective leg. Removing TP1 promotes TP2
// into its slot; the entry leg is never removable on its own.
func (e *Engine) RemoveLeg(ctx context.Context, ref contracts.LegRef) (*contracts.BracketOrder, error) {
	order, err := e.store.FindByLegRef(ref)
	if err != nil {
		return nil, err
	}

	patch, err := bracket.RemoveLeg(order, ref.LegType)
	if err != nil {
		return nil, err
	}

	// A staged drag for a leg that no longer exists would dangle.
	e.buffer.CancelOne(ref)

	updated, err := e.commitPatch(ctx, order.ID, patch)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"order_id": order.ID,
		"leg":      ref.LegType,
	}).Info("Leg removed")

	return updated, nil
}

// CancelOrder cancels the whole bracket at the server and drops it from
// the session, along with any of its staged drags.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	order, err := e.store.Get(orderID)
	if err != nil {
		return err
	}
	if order.Status.Terminal() {
		return bracket.ErrOrderTerminal
	}

	if err := e.persist.Cancel(ctx, orderID); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	for _, c := range e.buffer.Staged() {
		if c.Ref.OrderID == orderID {
			e.buffer.CancelOne(c.Ref)
		}
	}

	if err := e.store.Remove(orderID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	e.logger.WithField("order_id", orderID).Info("Order cancelled")
	return nil
}

// StageLegDrag records an interactive drag without committing it. The
// proposed price is pre-checked against the order's committed legs so an
// obviously invalid drop position is rejected immediately; the committed
// price captured on first stage is the revert target for cancel.
func (e *Engine) StageLegDrag(ref contracts.LegRef, proposedPrice float64) error {
	order, err := e.store.FindByLegRef(ref)
	if err != nil {
		return err
	}

	if _, err := bracket.ProposeLegUpdate(order, ref.LegType, proposedPrice); err != nil {
		return err
	}

	e.buffer.Stage(ref, legPrice(order, ref.LegType), proposedPrice)
	return nil
}

// StageLegDragByLineID resolves a flat UI line id and stages the drag.
func (e *Engine) StageLegDragByLineID(lineID string, proposedPrice float64) error {
	ref, err := contracts.ParseLineID(lineID)
	if err != nil {
		return err
	}
	return e.StageLegDrag(ref, proposedPrice)
}

// PendingChanges returns the staged, uncommitted drags.
func (e *Engine) PendingChanges() []pending.Change {
	return e.buffer.Staged()
}

// ApplyPending commits every staged drag, one validated write per order.
// Overlapping applies are rejected rather than queued; the caller
// retries once the in-flight batch settles.
func (e *Engine) ApplyPending(ctx context.Context) (pending.BatchResult, error) {
	if !e.applying.CompareAndSwap(false, true) {
		return pending.BatchResult{}, ErrApplyInProgress
	}
	defer e.applying.Store(false)

	result := e.buffer.ApplyAll(ctx)

	e.logger.WithFields(map[string]interface{}{
		"status": result.Status,
		"orders": len(result.Outcomes),
	}).Info("Applied pending changes")

	return result, nil
}

// CancelPending discards every staged drag and returns the reverts.
func (e *Engine) CancelPending() []pending.Revert {
	return e.buffer.CancelAll()
}

// CancelPendingOne discards a single staged drag.
func (e *Engine) CancelPendingOne(ref contracts.LegRef) (pending.Revert, bool) {
	return e.buffer.CancelOne(ref)
}

// Orders lists the session's orders, optionally filtered by symbol.
func (e *Engine) Orders(symbol string) []*contracts.BracketOrder {
	return e.store.List(symbol)
}

// Order returns one order by id.
func (e *Engine) Order(orderID string) (*contracts.BracketOrder, error) {
	return e.store.Get(orderID)
}

// Lines projects every order into chart lines, with staged drag prices
// overlaid so the UI renders the in-progress position, not the committed
// one.
func (e *Engine) Lines() []contracts.TradingLine {
	lines := e.store.Lines()

	staged := e.buffer.Staged()
	if len(staged) == 0 {
		return lines
	}

	proposed := make(map[string]float64, len(staged))
	for _, c := range staged {
		proposed[c.Ref.LineID()] = c.ProposedPrice
	}

	for i := range lines {
		if price, ok := proposed[lines[i].ID]; ok {
			lines[i].Price = price
		}
	}
	return lines
}

// commitPatch writes one patch to the server of record and installs the
// authoritative echo locally.
func (e *Engine) commitPatch(ctx context.Context, orderID string, patch contracts.OrderPatch) (*contracts.BracketOrder, error) {
	updated, err := e.persist.Update(ctx, orderID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if err := e.store.Replace(updated); err != nil {
		e.store.Add(updated)
	}
	return updated.Clone(), nil
}

// referencePrice resolves the market price used to pre-check market
// drafts. Zero means no quote is available and the check is skipped.
func (e *Engine) referencePrice(input bracket.DraftInput) float64 {
	if input.EntryType != contracts.EntryMarket || e.prices == nil {
		return 0
	}
	price, ok := e.prices.LastClose(input.Symbol)
	if !ok {
		return 0
	}
	return price
}

func legPrice(o *contracts.BracketOrder, leg contracts.LegType) float64 {
	switch leg {
	case contracts.LegEntry:
		return o.EntryPrice
	case contracts.LegStop:
		return o.StopLossPrice
	case contracts.LegTP1:
		if len(o.TakeProfitLevels) > 0 {
			return o.TakeProfitLevels[0].Price
		}
	case contracts.LegTP2:
		if len(o.TakeProfitLevels) > 1 {
			return o.TakeProfitLevels[1].Price
		}
	}
	return 0
}
