// Package bracket holds the lifecycle rules for one bracket order: draft
// construction, single-leg update proposals and leg removal. Every
// mutation re-runs the price validator before it is accepted; nothing
// here applies changes to stored state, that is the caller's job.
package bracket

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/validation"
)

var (
	// ErrEntryLegImmutable rejects attempts to cancel the entry leg on its
	// own; only whole-order cancellation removes the entry.
	ErrEntryLegImmutable = errors.New("entry line cannot be cancelled, delete the order instead")

	// ErrOrderTerminal rejects mutation of filled/cancelled/rejected orders.
	ErrOrderTerminal = errors.New("order is in a terminal status")

	// ErrLegNotPresent rejects updates addressing a leg the order does not have.
	ErrLegNotPresent = errors.New("leg not present on order")
)

// ValidationError carries a structured validator rejection as an error.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	return e.Result.Reason
}

// AsValidation unwraps a ValidationError if err is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// DraftInput is an order construction request before validation.
type DraftInput struct {
	Symbol           string                      `json:"symbol"`
	Side             contracts.OrderSide         `json:"side"`
	Quantity         float64                     `json:"quantity"`
	EntryType        contracts.EntryType         `json:"entry_type"`
	EntryPrice       float64                     `json:"entry_price,omitempty"`
	StopLossPrice    float64                     `json:"stop_loss_price,omitempty"`
	TakeProfitLevels []contracts.TakeProfitLevel `json:"take_profit_levels"`
}

// NewDraft validates input over the complete proposed leg set and returns
// an unidentified order ready for persistence. Identifier assignment
// belongs to whichever collaborator persists the order. referencePrice is
// the current market price, used in place of the entry price for market
// entries; pass 0 when unavailable to skip directional checks the way the
// server of record does.
func NewDraft(input DraftInput, referencePrice float64) (*contracts.BracketOrder, error) {
	if !input.Side.Valid() {
		return nil, fmt.Errorf("invalid side %q", input.Side)
	}
	if input.EntryType != contracts.EntryMarket && input.EntryType != contracts.EntryLimit {
		return nil, fmt.Errorf("invalid entry type %q", input.EntryType)
	}
	if input.Quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	if len(input.TakeProfitLevels) > 2 {
		return nil, errors.New("at most 2 take profit levels allowed")
	}

	totalTPQty := 0.0
	for i, tp := range input.TakeProfitLevels {
		if tp.Price <= 0 {
			return nil, fmt.Errorf("take profit %d price must be positive", i+1)
		}
		if tp.Quantity <= 0 {
			return nil, fmt.Errorf("take profit %d quantity must be positive", i+1)
		}
		totalTPQty += tp.Quantity
	}
	if totalTPQty > input.Quantity {
		return nil, errors.New("total take profit quantities cannot exceed order quantity")
	}

	reference := referencePrice
	if input.EntryType == contracts.EntryLimit {
		if input.EntryPrice <= 0 {
			return nil, errors.New("entry price is required for limit orders")
		}
		reference = input.EntryPrice
	}

	if reference > 0 {
		res := validation.OrderPrices(input.Side, reference, input.StopLossPrice, tpPrices(input.TakeProfitLevels))
		if !res.Valid {
			return nil, &ValidationError{Result: res}
		}
	}

	order := &contracts.BracketOrder{
		Symbol:            input.Symbol,
		Side:              input.Side,
		Quantity:          input.Quantity,
		Status:            contracts.StatusPending,
		EntryType:         input.EntryType,
		EntryPrice:        input.EntryPrice,
		StopLossPrice:     input.StopLossPrice,
		TakeProfitLevels:  append([]contracts.TakeProfitLevel(nil), input.TakeProfitLevels...),
		CreatedAt:         time.Now().UTC(),
		RemainingQuantity: input.Quantity,
	}

	return order, nil
}

// LegUpdate is a validated, not-yet-applied single-leg price change.
type LegUpdate struct {
	Ref      contracts.LegRef
	NewPrice float64
	Patch    contracts.OrderPatch
}

// ProposeLegUpdate validates newPrice for one leg against the order's
// current committed state and returns the update payload. It never
// mutates the order; callers batch proposals and commit them explicitly.
func ProposeLegUpdate(o *contracts.BracketOrder, leg contracts.LegType, newPrice float64) (*LegUpdate, error) {
	if o.Status.Terminal() {
		return nil, ErrOrderTerminal
	}
	if !leg.Valid() {
		return nil, fmt.Errorf("unknown leg type %q", leg)
	}
	if err := requireLeg(o, leg); err != nil {
		return nil, err
	}

	res := validation.LegUpdate(o.Side, leg, newPrice, o.EntryPrice, o.StopLossPrice, o.TakeProfitPrices())
	if !res.Valid {
		return nil, &ValidationError{Result: res}
	}

	update := &LegUpdate{
		Ref:      contracts.LegRef{OrderID: o.ID, LegType: leg},
		NewPrice: newPrice,
	}

	switch leg {
	case contracts.LegEntry:
		update.Patch.EntryPrice = contracts.Float64Ptr(newPrice)
	case contracts.LegStop:
		update.Patch.StopLossPrice = contracts.Float64Ptr(newPrice)
	case contracts.LegTP1, contracts.LegTP2:
		levels := append([]contracts.TakeProfitLevel(nil), o.TakeProfitLevels...)
		idx := 0
		if leg == contracts.LegTP2 {
			idx = 1
		}
		levels[idx].Price = newPrice
		update.Patch.TakeProfitLevels = &levels
	}

	return update, nil
}

// RemoveLeg produces the patch that removes the addressed leg. The entry
// leg can never be removed on its own. Removing TP1 while TP2 exists
// promotes TP2 into the TP1 slot, which preserves the between-targets
// ordering invariant automatically since only one level remains.
func RemoveLeg(o *contracts.BracketOrder, leg contracts.LegType) (contracts.OrderPatch, error) {
	if o.Status.Terminal() {
		return contracts.OrderPatch{}, ErrOrderTerminal
	}

	switch leg {
	case contracts.LegEntry:
		return contracts.OrderPatch{}, ErrEntryLegImmutable

	case contracts.LegStop:
		if !o.HasStopLoss() {
			return contracts.OrderPatch{}, ErrLegNotPresent
		}
		return contracts.OrderPatch{StopLossPrice: contracts.Float64Ptr(0)}, nil

	case contracts.LegTP1:
		if len(o.TakeProfitLevels) == 0 {
			return contracts.OrderPatch{}, ErrLegNotPresent
		}
		levels := append([]contracts.TakeProfitLevel(nil), o.TakeProfitLevels[1:]...)
		return contracts.OrderPatch{TakeProfitLevels: &levels}, nil

	case contracts.LegTP2:
		if len(o.TakeProfitLevels) < 2 {
			return contracts.OrderPatch{}, ErrLegNotPresent
		}
		levels := append([]contracts.TakeProfitLevel(nil), o.TakeProfitLevels[:1]...)
		return contracts.OrderPatch{TakeProfitLevels: &levels}, nil
	}

	return contracts.OrderPatch{}, fmt.Errorf("unknown leg type %q", leg)
}

func requireLeg(o *contracts.BracketOrder, leg contracts.LegType) error {
	switch leg {
	case contracts.LegStop:
		if !o.HasStopLoss() {
			return ErrLegNotPresent
		}
	case contracts.LegTP1:
		if len(o.TakeProfitLevels) < 1 {
			return ErrLegNotPresent
		}
	case contracts.LegTP2:
		if len(o.TakeProfitLevels) < 2 {
			return ErrLegNotPresent
		}
	}
	return nil
}

func tpPrices(levels []contracts.TakeProfitLevel) []float64 {
	prices := make([]float64, 0, len(levels))
	for _, tp := range levels {
		prices = append(prices, tp.Price)
	}
	return prices
}
