package bracket

import (
	"errors"
	"testing"

	"github.com/wonhee/bracket/internal/contracts"
)

func draftInput() DraftInput {
	return DraftInput{
		Symbol:        "BTC-USDT",
		Side:          contracts.SideBuy,
		Quantity:      1,
		EntryType:     contracts.EntryLimit,
		EntryPrice:    45000,
		StopLossPrice: 44000,
		TakeProfitLevels: []contracts.TakeProfitLevel{
			{Price: 47000, Quantity: 0.5},
			{Price: 49000, Quantity: 0.5},
		},
	}
}

func activeOrder() *contracts.BracketOrder {
	return &contracts.BracketOrder{
		ID:            "ord-1",
		Symbol:        "BTC-USDT",
		Side:          contracts.SideBuy,
		Quantity:      1,
		Status:        contracts.StatusActive,
		EntryType:     contracts.EntryLimit,
		EntryPrice:    45000,
		StopLossPrice: 44000,
		TakeProfitLevels: []contracts.TakeProfitLevel{
			{Price: 47000, Quantity: 0.5},
			{Price: 49000, Quantity: 0.5},
		},
	}
}

func TestNewDraft(t *testing.T) {
	order, err := NewDraft(draftInput(), 0)
	if err != nil {
		t.Fatalf("NewDraft failed: %v", err)
	}

	if order.ID != "" {
		t.Errorf("draft must not carry an id, got %q", order.ID)
	}
	if order.Status != contracts.StatusPending {
		t.Errorf("Status = %s, want pending", order.Status)
	}
	if order.RemainingQuantity != 1 {
		t.Errorf("RemainingQuantity = %v, want 1", order.RemainingQuantity)
	}
}

func TestNewDraft_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DraftInput)
	}{
		{"invalid side", func(in *DraftInput) { in.Side = "long" }},
		{"invalid entry type", func(in *DraftInput) { in.EntryType = "stop_limit" }},
		{"zero quantity", func(in *DraftInput) { in.Quantity = 0 }},
		{"negative quantity", func(in *DraftInput) { in.Quantity = -1 }},
		{"three take profits", func(in *DraftInput) {
			in.TakeProfitLevels = append(in.TakeProfitLevels, contracts.TakeProfitLevel{Price: 50000, Quantity: 0.1})
		}},
		{"zero tp price", func(in *DraftInput) { in.TakeProfitLevels[0].Price = 0 }},
		{"zero tp quantity", func(in *DraftInput) { in.TakeProfitLevels[0].Quantity = 0 }},
		{"tp quantities exceed order", func(in *DraftInput) {
			in.TakeProfitLevels[0].Quantity = 0.8
			in.TakeProfitLevels[1].Quantity = 0.8
		}},
		{"limit without entry price", func(in *DraftInput) { in.EntryPrice = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := draftInput()
			tt.mutate(&in)
			if _, err := NewDraft(in, 0); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewDraft_PriceOrdering(t *testing.T) {
	in := draftInput()
	in.StopLossPrice = 46000 // above entry on a buy

	_, err := NewDraft(in, 0)
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Result.Leg != contracts.LegStop {
		t.Errorf("Leg = %s, want stop", ve.Result.Leg)
	}
}

func TestNewDraft_MarketUsesReferencePrice(t *testing.T) {
	in := draftInput()
	in.EntryType = contracts.EntryMarket
	in.EntryPrice = 0

	// Reference price below the stop makes the buy bracket invalid.
	if _, err := NewDraft(in, 43000); err == nil {
		t.Error("expected rejection against reference price")
	}

	// A sane reference passes.
	if _, err := NewDraft(in, 45000); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// No reference available: directional checks are deferred to the server.
	if _, err := NewDraft(in, 0); err != nil {
		t.Errorf("unexpected error without reference: %v", err)
	}
}

func TestProposeLegUpdate(t *testing.T) {
	o := activeOrder()

	update, err := ProposeLegUpdate(o, contracts.LegStop, 44500)
	if err != nil {
		t.Fatalf("ProposeLegUpdate failed: %v", err)
	}

	if update.Ref.OrderID != "ord-1" || update.Ref.LegType != contracts.LegStop {
		t.Errorf("unexpected ref %+v", update.Ref)
	}
	if update.Patch.StopLossPrice == nil || *update.Patch.StopLossPrice != 44500 {
		t.Errorf("unexpected patch %+v", update.Patch)
	}
	// Proposal never mutates the order.
	if o.StopLossPrice != 44000 {
		t.Errorf("order mutated: stop = %v", o.StopLossPrice)
	}
}

func TestProposeLegUpdate_TakeProfitPatchKeepsQuantities(t *testing.T) {
	o := activeOrder()

	update, err := ProposeLegUpdate(o, contracts.LegTP2, 50000)
	if err != nil {
		t.Fatalf("ProposeLegUpdate failed: %v", err)
	}

	levels := *update.Patch.TakeProfitLevels
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[1].Price != 50000 || levels[1].Quantity != 0.5 {
		t.Errorf("unexpected tp2 %+v", levels[1])
	}
	if levels[0].Price != 47000 {
		t.Errorf("tp1 changed: %+v", levels[0])
	}
}

func TestProposeLegUpdate_Rejections(t *testing.T) {
	t.Run("terminal order", func(t *testing.T) {
		o := activeOrder()
		o.Status = contracts.StatusFilled
		if _, err := ProposeLegUpdate(o, contracts.LegStop, 44500); !errors.Is(err, ErrOrderTerminal) {
			t.Errorf("err = %v, want ErrOrderTerminal", err)
		}
	})

	t.Run("absent leg", func(t *testing.T) {
		o := activeOrder()
		o.TakeProfitLevels = o.TakeProfitLevels[:1]
		if _, err := ProposeLegUpdate(o, contracts.LegTP2, 50000); !errors.Is(err, ErrLegNotPresent) {
			t.Errorf("err = %v, want ErrLegNotPresent", err)
		}
	})

	t.Run("invalid ordering", func(t *testing.T) {
		o := activeOrder()
		_, err := ProposeLegUpdate(o, contracts.LegStop, 46000)
		if _, ok := AsValidation(err); !ok {
			t.Errorf("err = %v, want validation error", err)
		}
	})

	t.Run("unknown leg", func(t *testing.T) {
		o := activeOrder()
		if _, err := ProposeLegUpdate(o, "trailing", 1); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRemoveLeg_Entry(t *testing.T) {
	o := activeOrder()
	if _, err := RemoveLeg(o, contracts.LegEntry); !errors.Is(err, ErrEntryLegImmutable) {
		t.Errorf("err = %v, want ErrEntryLegImmutable", err)
	}
}

func TestRemoveLeg_Stop(t *testing.T) {
	o := activeOrder()

	patch, err := RemoveLeg(o, contracts.LegStop)
	if err != nil {
		t.Fatalf("RemoveLeg failed: %v", err)
	}
	if patch.StopLossPrice == nil || *patch.StopLossPrice != 0 {
		t.Errorf("expected pointer-to-zero stop, got %+v", patch.StopLossPrice)
	}

	o.StopLossPrice = 0
	if _, err := RemoveLeg(o, contracts.LegStop); !errors.Is(err, ErrLegNotPresent) {
		t.Errorf("err = %v, want ErrLegNotPresent", err)
	}
}

func TestRemoveLeg_TP1PromotesTP2(t *testing.T) {
	o := activeOrder()

	patch, err := RemoveLeg(o, contracts.LegTP1)
	if err != nil {
		t.Fatalf("RemoveLeg failed: %v", err)
	}

	levels := *patch.TakeProfitLevels
	if len(levels) != 1 {
		t.Fatalf("expected 1 level, got %d", len(levels))
	}
	// The former TP2 now occupies the TP1 slot.
	if levels[0].Price != 49000 {
		t.Errorf("promoted price = %v, want 49000", levels[0].Price)
	}
}

func TestRemoveLeg_TP2(t *testing.T) {
	o := activeOrder()

	patch, err := RemoveLeg(o, contracts.LegTP2)
	if err != nil {
		t.Fatalf("RemoveLeg failed: %v", err)
	}

	levels := *patch.TakeProfitLevels
	if len(levels) != 1 || levels[0].Price != 47000 {
		t.Errorf("unexpected levels %+v", levels)
	}

	o.TakeProfitLevels = o.TakeProfitLevels[:1]
	if _, err := RemoveLeg(o, contracts.LegTP2); !errors.Is(err, ErrLegNotPresent) {
		t.Errorf("err = %v, want ErrLegNotPresent", err)
	}
}

func TestRemoveLeg_Terminal(t *testing.T) {
	o := activeOrder()
	o.Status = contracts.StatusCancelled
	if _, err := RemoveLeg(o, contracts.LegStop); !errors.Is(err, ErrOrderTerminal) {
		t.Errorf("err = %v, want ErrOrderTerminal", err)
	}
}
