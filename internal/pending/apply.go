package pending

import (
	"context"
	"sort"

	"github.com/wonhee/bracket/internal/contracts"
	"github.com/wonhee/bracket/internal/persist"
	"github.com/wonhee/bracket/internal/validation"
)

// OutcomeStatus classifies one order group's result in a batch apply.
type OutcomeStatus string

const (
	OutcomeApplied       OutcomeStatus = "applied"
	OutcomeInvalid       OutcomeStatus = "invalid"
	OutcomePersistFailed OutcomeStatus = "persist_failed"
)

// OrderOutcome reports what happened to one order's staged group.
type OrderOutcome struct {
	OrderID   string        `json:"order_id"`
	Status    OutcomeStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`

	// Reverts is populated for failed groups: every leg in the group
	// snaps back to its committed price.
	Reverts []Revert `json:"reverts,omitempty"`
}

// BatchStatus distinguishes total success, partial success and total
// failure across order groups.
type BatchStatus string

const (
	BatchApplied BatchStatus = "applied"
	BatchPartial BatchStatus = "partial"
	BatchFailed  BatchStatus = "failed"
	BatchEmpty   BatchStatus = "empty"
)

// BatchResult is the outcome of one ApplyAll.
type BatchResult struct {
	Status   BatchStatus    `json:"status"`
	Outcomes []OrderOutcome `json:"outcomes"`
}

// ApplyAll commits every staged change, grouped by order. Each group is
// composed into one aggregated patch, validated once over the complete
// resulting price set, and written to the server of record in a single
// update. Groups are independent: one order's validation or network
// failure reverts only that order's legs while the rest proceed. The
// buffer is drained regardless of outcome; failed groups come back as
// reverts so the UI can snap lines back to committed prices.
func (b *Buffer) ApplyAll(ctx context.Context) BatchResult {
	b.mu.Lock()
	groups := make(map[string][]*Change)
	for _, c := range b.changes {
		groups[c.Ref.OrderID] = append(groups[c.Ref.OrderID], c)
	}
	b.changes = make(map[string]*Change)
	b.mu.Unlock()

	if len(groups) == 0 {
		return BatchResult{Status: BatchEmpty}
	}

	// Deterministic order for logs and tests.
	orderIDs := make([]string, 0, len(groups))
	for id := range groups {
		orderIDs = append(orderIDs, id)
	}
	sort.Strings(orderIDs)

	result := BatchResult{Outcomes: make([]OrderOutcome, 0, len(groups))}
	applied, failed := 0, 0

	for _, orderID := range orderIDs {
		outcome := b.applyGroup(ctx, orderID, groups[orderID])
		if outcome.Status == OutcomeApplied {
			applied++
		} else {
			failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	switch {
	case failed == 0:
		result.Status = BatchApplied
	case applied == 0:
		result.Status = BatchFailed
	default:
		result.Status = BatchPartial
	}

	return result
}

// applyGroup validates and persists one order's staged legs as a unit.
func (b *Buffer) applyGroup(ctx context.Context, orderID string, group []*Change) OrderOutcome {
	reverts := make([]Revert, 0, len(group))
	for _, c := range group {
		reverts = append(reverts, Revert{Ref: c.Ref, Price: c.CommittedPrice})
	}

	order, err := b.store.Get(orderID)
	if err != nil {
		b.logger.WithField("order_id", orderID).Warn("Staged changes reference unknown order")
		return OrderOutcome{
			OrderID: orderID,
			Status:  OutcomeInvalid,
			Reason:  "order not found",
			Reverts: reverts,
		}
	}

	// Compose the hypothetical full price set with every staged leg
	// replaced, then validate once for the whole order.
	entry := order.EntryPrice
	stop := order.StopLossPrice
	tps := order.TakeProfitPrices()

	patch := contracts.OrderPatch{}
	levels := append([]contracts.TakeProfitLevel(nil), order.TakeProfitLevels...)
	touchedTP := false

	for _, c := range group {
		switch c.Ref.LegType {
		case contracts.LegEntry:
			entry = c.ProposedPrice
			patch.EntryPrice = contracts.Float64Ptr(c.ProposedPrice)
		case contracts.LegStop:
			stop = c.ProposedPrice
			patch.StopLossPrice = contracts.Float64Ptr(c.ProposedPrice)
		case contracts.LegTP1:
			if len(tps) == 0 {
				tps = append(tps, 0)
				levels = append(levels, contracts.TakeProfitLevel{})
			}
			tps[0] = c.ProposedPrice
			levels[0].Price = c.ProposedPrice
			touchedTP = true
		case contracts.LegTP2:
			for len(tps) < 2 {
				tps = append(tps, 0)
				levels = append(levels, contracts.TakeProfitLevel{})
			}
			tps[1] = c.ProposedPrice
			levels[1].Price = c.ProposedPrice
			touchedTP = true
		}
	}
	if touchedTP {
		patch.TakeProfitLevels = &levels
	}

	res := validation.OrderPrices(order.Side, entry, stop, tps)
	if !res.Valid {
		b.logger.WithFields(map[string]interface{}{
			"order_id": orderID,
			"reason":   res.Reason,
		}).Info("Batch group rejected by validation")
		return OrderOutcome{
			OrderID: orderID,
			Status:  OutcomeInvalid,
			Reason:  res.Reason,
			Reverts: reverts,
		}
	}

	// One persistence write per order group; a failure here reverts the
	// whole group rather than applying a subset of its legs.
	updated, err := b.persist.Update(ctx, orderID, patch)
	if err != nil {
		b.logger.WithError(err).WithField("order_id", orderID).Warn("Batch group persistence failed")
		return OrderOutcome{
			OrderID:   orderID,
			Status:    OutcomePersistFailed,
			Reason:    err.Error(),
			Retryable: persist.IsRetryable(err),
			Reverts:   reverts,
		}
	}

	// Server echo is authoritative.
	if err := b.store.Replace(updated); err != nil {
		b.store.Add(updated)
	}

	return OrderOutcome{OrderID: orderID, Status: OutcomeApplied}
}
