// Package engine contains the position lifecycle core: threshold math, the
// instrument catalog, the per-broker position book, the exit/trail decision
// rules, and the poll cycle that drives them.
package engine

import (
	"math"

	"listingbot/internal/domain"
)

// PercentChange returns value adjusted by percent: a negative percent
// produces a decrease, a positive percent an increase. Every derived
// threshold goes through this one function.
func PercentChange(value, percent float64) float64 {
	return value + (percent/100)*value
}

// Thresholds holds the exit thresholds derived for a position at open time.
type Thresholds struct {
	TakeProfit      float64
	StopLoss        float64
	TrailingStopMax float64
	TrailingStop    float64
}

// OpenThresholds derives the initial thresholds from an entry price and the
// broker's percentage configuration. With trailing enabled the fixed
// take-profit is disabled (+Inf) because the trailing rule supersedes it.
// TrailingStopMax starts at -Inf, which makes the derived trailing stop
// unreachable until a new high first raises the max.
func OpenThresholds(entryPrice float64, cfg domain.BrokerConfig) Thresholds {
	t := Thresholds{
		StopLoss:        PercentChange(entryPrice, -cfg.StopLossPercent),
		TrailingStopMax: math.Inf(-1),
		// PercentChange of a -Inf max is NaN (-Inf + Inf), which would
		// poison the snapshot encoding, so the unreachable initial trail is
		// pinned to -Inf directly.
		TrailingStop: math.Inf(-1),
	}
	if cfg.TrailingEnabled {
		t.TakeProfit = math.Inf(1)
	} else {
		t.TakeProfit = PercentChange(entryPrice, cfg.TakeProfitPercent)
	}
	return t
}

// RaiseTrailingStop recalculates the trailing threshold after a new high.
// The max never decreases: the new max is the higher of the current price
// and the entry price, and callers only invoke this when currentPrice is
// above the stored max.
func RaiseTrailingStop(p domain.Position, currentPrice, trailingPercent float64) domain.Position {
	p.TrailingStopMax = math.Max(currentPrice, p.EntryPrice)
	p.TrailingStop = PercentChange(p.TrailingStopMax, -trailingPercent)
	return p
}
