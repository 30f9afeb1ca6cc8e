package store

import (
	"errors"
	"testing"
	"time"

	"github.com/wonhee/bracket/internal/contracts"
)

func order(id string, createdAt time.Time) *contracts.BracketOrder {
	return &contracts.BracketOrder{
		ID:            id,
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
		CreatedAt: createdAt,
	}
}

func TestStore_AddGet(t *testing.T) {
	s := New()
	o := order("a", time.Now())
	s.Add(o)

	got, err := s.Get("a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.EntryPrice != 45000 {
		t.Errorf("EntryPrice = %v", got.EntryPrice)
	}

	// Returned copies are isolated from stored state.
	got.TakeProfitLevels[0].Price = 1
	again, _ := s.Get("a")
	if again.TakeProfitLevels[0].Price != 47000 {
		t.Error("Get returned a shared reference")
	}

	// So is the input.
	o.EntryPrice = 2
	again, _ = s.Get("a")
	if again.EntryPrice != 45000 {
		t.Error("Add kept a shared reference")
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Replace(t *testing.T) {
	s := New()
	s.Add(order("a", time.Now()))

	echo := order("a", time.Now())
	echo.StopLossPrice = 0
	echo.TakeProfitLevels = echo.TakeProfitLevels[:1]
	echo.Status = contracts.StatusPartiallyFilled

	if err := s.Replace(echo); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	got, _ := s.Get("a")
	if got.StopLossPrice != 0 {
		t.Errorf("StopLossPrice = %v, want 0", got.StopLossPrice)
	}
	if len(got.TakeProfitLevels) != 1 {
		t.Errorf("levels = %d, want 1", len(got.TakeProfitLevels))
	}
	if got.Status != contracts.StatusPartiallyFilled {
		t.Errorf("Status = %s", got.Status)
	}

	if err := s.Replace(order("missing", time.Now())); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Merge(t *testing.T) {
	s := New()
	s.Add(order("a", time.Now()))

	merged, err := s.Merge("a", contracts.OrderPatch{EntryPrice: contracts.Float64Ptr(46000)})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.EntryPrice != 46000 {
		t.Errorf("EntryPrice = %v, want 46000", merged.EntryPrice)
	}
	// Untouched fields survive a merge, unlike a replace.
	if merged.StopLossPrice != 44000 || len(merged.TakeProfitLevels) != 2 {
		t.Error("merge dropped unpatched fields")
	}

	got, _ := s.Get("a")
	if got.EntryPrice != 46000 {
		t.Error("merge not stored")
	}

	if _, err := s.Merge("missing", contracts.OrderPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Promote(t *testing.T) {
	s := New()
	s.Add(order("tmp-1", time.Now()))

	confirmed := order("srv-9", time.Now())
	if err := s.Promote("tmp-1", confirmed); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	if _, err := s.Get("tmp-1"); !errors.Is(err, ErrNotFound) {
		t.Error("provisional entry still present")
	}
	if _, err := s.Get("srv-9"); err != nil {
		t.Errorf("confirmed entry missing: %v", err)
	}

	if err := s.Promote("tmp-1", confirmed); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Remove(t *testing.T) {
	s := New()
	s.Add(order("a", time.Now()))

	if err := s.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Remove("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_ReplaceAll(t *testing.T) {
	s := New()
	s.Add(order("old", time.Now()))

	s.ReplaceAll([]*contracts.BracketOrder{
		order("n1", time.Now()),
		order("n2", time.Now()),
	})

	if _, err := s.Get("old"); !errors.Is(err, ErrNotFound) {
		t.Error("old entry survived ReplaceAll")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestStore_List(t *testing.T) {
	s := New()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s.Add(order("oldest", base))
	s.Add(order("newest", base.Add(2*time.Hour)))
	s.Add(order("middle", base.Add(time.Hour)))

	other := order("other", base.Add(3*time.Hour))
	other.Symbol = "ETH-USDT"
	s.Add(other)

	got := s.List("BTC-USDT")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].ID != "newest" || got[1].ID != "middle" || got[2].ID != "oldest" {
		t.Errorf("order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}

	if len(s.List("")) != 4 {
		t.Error("empty symbol should return everything")
	}
}

func TestStore_FindByLineID(t *testing.T) {
	s := New()
	s.Add(order("abc-123", time.Now()))

	o, leg, err := s.FindByLineID("order-abc-123-stop")
	if err != nil {
		t.Fatalf("FindByLineID failed: %v", err)
	}
	if o.ID != "abc-123" {
		t.Errorf("ID = %q, want abc-123", o.ID)
	}
	if leg != contracts.LegStop {
		t.Errorf("leg = %s, want stop", leg)
	}

	if _, _, err := s.FindByLineID("order-missing-stop"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, _, err := s.FindByLineID("garbage"); err == nil {
		t.Error("expected parse error")
	}
}

func TestStore_Lines(t *testing.T) {
	s := New()
	s.Add(order("a", time.Now()))

	lines := s.Lines()
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
}
