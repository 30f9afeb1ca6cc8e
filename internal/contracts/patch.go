package contracts

// OrderPatch is a partial mutation of one order's legs. Nil fields are
// untouched; a pointer to zero clears the field (used when removing the
// stop-loss leg). Fill bookkeeping and status are never patched from the
// client side.
type OrderPatch struct {
	EntryPrice       *float64           `json:"entry_price,omitempty"`
	StopLossPrice    *float64           `json:"stop_loss_price,omitempty"`
	TakeProfitLevels *[]TakeProfitLevel `json:"take_profit_levels,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p OrderPatch) Empty() bool {
	return p.EntryPrice == nil && p.StopLossPrice == nil && p.TakeProfitLevels == nil
}

// ApplyTo returns a copy of the order with the patch merged in.
func (p OrderPatch) ApplyTo(o *BracketOrder) *BracketOrder {
	out := o.Clone()
	if p.EntryPrice != nil {
		out.EntryPrice = *p.EntryPrice
	}
	if p.StopLossPrice != nil {
		out.StopLossPrice = *p.StopLossPrice
	}
	if p.TakeProfitLevels != nil {
		out.TakeProfitLevels = make([]TakeProfitLevel, len(*p.TakeProfitLevels))
		copy(out.TakeProfitLevels, *p.TakeProfitLevels)
	}
	return out
}

// Float64Ptr is a convenience for building patches.
func Float64Ptr(v float64) *float64 {
	return &v
}
