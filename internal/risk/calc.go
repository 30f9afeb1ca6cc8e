// Package risk derives position sizing and reward figures from account
// balance and leg prices. Every function is total: degenerate input
// (zero stop distance, non-positive prices, out-of-range risk) yields 0
// rather than NaN or Inf, so callers never special-case non-finite
// results.
package risk

import "math"

// Amount returns the currency amount at risk for a balance and a risk
// percentage in (0, 100].
func Amount(balance, riskPct float64) float64 {
	if balance <= 0 || riskPct <= 0 || riskPct > 100 {
		return 0
	}
	return balance * riskPct / 100
}

// PositionSize returns the position size such that a move from entry to
// stop loses exactly the risk amount.
func PositionSize(entryPrice, stopLossPrice, balance, riskPct float64) float64 {
	if entryPrice <= 0 || stopLossPrice <= 0 {
		return 0
	}

	distance := math.Abs(entryPrice - stopLossPrice)
	if distance == 0 {
		return 0
	}

	size := Amount(balance, riskPct) / distance
	if math.IsNaN(size) || math.IsInf(size, 0) {
		return 0
	}
	return math.Max(0, size)
}

// RewardRatio returns reward-to-risk: |target-entry| / |entry-stop|.
func RewardRatio(entryPrice, stopLossPrice, targetPrice float64) float64 {
	if entryPrice <= 0 || stopLossPrice <= 0 || targetPrice <= 0 {
		return 0
	}

	riskDist := math.Abs(entryPrice - stopLossPrice)
	if riskDist == 0 {
		return 0
	}

	ratio := math.Abs(targetPrice-entryPrice) / riskDist
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return ratio
}
