// Package feed consumes OHLC candles from the market-data collaborator
// and caches the most recent candle per symbol. The engine only ever
// reads the latest close as "current price"; historical aggregation is
// not this package's responsibility.
package feed

import "time"

// Candle is one OHLC bar keyed by its open time.
type Candle struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
