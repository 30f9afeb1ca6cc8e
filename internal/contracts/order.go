package contracts

import "time"

// BracketOrder is the aggregate root for one multi-leg conditional order:
// an entry leg plus optional stop-loss and up to two take-profit legs.
type BracketOrder struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	Side      OrderSide   `json:"side"`
	Quantity  float64     `json:"quantity"`
	Status    OrderStatus `json:"status"`
	EntryType EntryType   `json:"entry_type"`

	// EntryPrice is required for limit entries; for market entries it is
	// set by the server once the entry fills.
	EntryPrice    float64 `json:"entry_price,omitempty"`
	StopLossPrice float64 `json:"stop_loss_price,omitempty"`

	// TakeProfitLevels is ordered: index 0 is TP1, index 1 is TP2.
	// The position within the slice is semantically meaningful.
	TakeProfitLevels []TakeProfitLevel `json:"take_profit_levels"`

	CreatedAt time.Time `json:"created_at"`

	// Fill bookkeeping is owned by the server of record; the engine only
	// displays these values and never computes them.
	EntryFilledQuantity float64 `json:"entry_filled_quantity"`
	TotalFilledQuantity float64 `json:"total_filled_quantity"`
	RemainingQuantity   float64 `json:"remaining_quantity"`
}

// TakeProfitLevel is one take-profit target with its allocated quantity.
type TakeProfitLevel struct {
	Price          float64 `json:"price"`
	Quantity       float64 `json:"quantity"`
	FilledQuantity float64 `json:"filled_quantity,omitempty"`
}

// OrderSide represents buy or sell.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Valid reports whether the side is a known value.
func (s OrderSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// EntryType represents market or limit entry.
type EntryType string

const (
	EntryMarket EntryType = "market"
	EntryLimit  EntryType = "limit"
)

// OrderStatus represents the lifecycle state of a bracket order.
// Transitions are driven exclusively by the server of record; the engine
// reads and displays status but never computes fill transitions.
type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusActive          OrderStatus = "active"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// TakeProfitPrices returns the TP prices in slot order.
func (o *BracketOrder) TakeProfitPrices() []float64 {
	prices := make([]float64, 0, len(o.TakeProfitLevels))
	for _, tp := range o.TakeProfitLevels {
		prices = append(prices, tp.Price)
	}
	return prices
}

// HasStopLoss reports whether a stop-loss leg is present.
func (o *BracketOrder) HasStopLoss() bool {
	return o.StopLossPrice > 0
}

// Clone returns a deep copy of the order.
func (o *BracketOrder) Clone() *BracketOrder {
	cp := *o
	cp.TakeProfitLevels = make([]TakeProfitLevel, len(o.TakeProfitLevels))
	copy(cp.TakeProfitLevels, o.TakeProfitLevels)
	return &cp
}

// ProvisionalPrefix marks client-assigned identifiers for optimistic
// entries awaiting server confirmation.
const ProvisionalPrefix = "tmp-"

// Provisional reports whether the order carries a client-assigned id.
func (o *BracketOrder) Provisional() bool {
	return len(o.ID) > len(ProvisionalPrefix) && o.ID[:len(ProvisionalPrefix)] == ProvisionalPrefix
}
