// Package validation checks directional price-ordering invariants for
// bracket order legs. All functions are pure: failures come back as
// structured results, never as errors or panics, because callers display
// them without halting.
package validation

import (
	"fmt"
	"math"

	"github.com/wonhee/bracket/internal/contracts"
)

// Result is the outcome of a price validation.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`

	// Leg names the offending leg when invalid.
	Leg contracts.LegType `json:"leg,omitempty"`
}

func ok() Result {
	return Result{Valid: true}
}

func fail(leg contracts.LegType, format string, args ...interface{}) Result {
	return Result{Valid: false, Leg: leg, Reason: fmt.Sprintf(format, args...)}
}

// OrderPrices validates a complete candidate leg set against the
// directional ordering invariants:
//
//	buy:  stop < entry < tp1 (< tp2)
//	sell: stop > entry > tp1 (> tp2)
//
// A take-profit price of 0 means the slot is unset and is skipped; the
// same convention the UI uses for half-filled forms.
func OrderPrices(side contracts.OrderSide, entryPrice, stopLossPrice float64, takeProfitPrices []float64) Result {
	if math.IsNaN(entryPrice) || math.IsInf(entryPrice, 0) || entryPrice <= 0 {
		return fail(contracts.LegEntry, "invalid entry price")
	}

	if side == contracts.SideBuy {
		if stopLossPrice > 0 && stopLossPrice >= entryPrice {
			return fail(contracts.LegStop,
				"stop loss (%.2f) must be below entry price (%.2f) for buy orders",
				stopLossPrice, entryPrice)
		}

		for i, tp := range takeProfitPrices {
			if tp > 0 && tp <= entryPrice {
				return fail(tpLeg(i),
					"take profit %d (%.2f) must be above entry price (%.2f) for buy orders",
					i+1, tp, entryPrice)
			}
			if i == 1 && takeProfitPrices[0] > 0 && tp > 0 && tp <= takeProfitPrices[0] {
				return fail(contracts.LegTP2,
					"take profit 2 (%.2f) must be higher than take profit 1 (%.2f)",
					tp, takeProfitPrices[0])
			}
		}
		return ok()
	}

	// Sell: mirror inequalities.
	if stopLossPrice > 0 && stopLossPrice <= entryPrice {
		return fail(contracts.LegStop,
			"stop loss (%.2f) must be above entry price (%.2f) for sell orders",
			stopLossPrice, entryPrice)
	}

	for i, tp := range takeProfitPrices {
		if tp > 0 && tp >= entryPrice {
			return fail(tpLeg(i),
				"take profit %d (%.2f) must be below entry price (%.2f) for sell orders",
				i+1, tp, entryPrice)
		}
		if i == 1 && takeProfitPrices[0] > 0 && tp > 0 && tp >= takeProfitPrices[0] {
			return fail(contracts.LegTP2,
				"take profit 2 (%.2f) must be lower than take profit 1 (%.2f)",
				tp, takeProfitPrices[0])
		}
	}

	return ok()
}

// LegUpdate validates a single-leg price change by substituting the
// proposed price into the current committed leg set and delegating to
// OrderPrices. Keeping one source of truth here prevents the create and
// edit paths from drifting apart.
func LegUpdate(side contracts.OrderSide, leg contracts.LegType, proposedPrice float64,
	currentEntry, currentStop float64, currentTakeProfits []float64,
) Result {
	entry := currentEntry
	stop := currentStop
	tps := make([]float64, len(currentTakeProfits))
	copy(tps, currentTakeProfits)

	switch leg {
	case contracts.LegEntry:
		entry = proposedPrice
	case contracts.LegStop:
		stop = proposedPrice
	case contracts.LegTP1:
		if len(tps) == 0 {
			tps = append(tps, 0)
		}
		tps[0] = proposedPrice
	case contracts.LegTP2:
		for len(tps) < 2 {
			tps = append(tps, 0)
		}
		tps[1] = proposedPrice
	default:
		return fail(leg, "unknown leg type %q", leg)
	}

	return OrderPrices(side, entry, stop, tps)
}

func tpLeg(i int) contracts.LegType {
	if i == 1 {
		return contracts.LegTP2
	}
	return contracts.LegTP1
}
