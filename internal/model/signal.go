package model

import "time"

// Recommendation is a per-bar trading decision.
type Recommendation string

const (
	// Stateless classification vocabulary.
	RecBuy  Recommendation = "buy"
	RecSell Recommendation = "sell"
	RecHold Recommendation = "hold"

	// Stateful trade-trace vocabulary.
	RecEnter Recommendation = "enter"
	RecExit  Recommendation = "exit"
)

// SignalRow is one decision snapshot for a bar, produced by the rule engine.
type SignalRow struct {
	Time  time.Time
	Close float64

	MomentumTrend int
	MeanReversion int
	Volume        int
	Score         int

	Recommendation Recommendation
	InPosition     bool

	// Informational ATR-based risk levels; zero when ATR is undefined.
	StopLevel       float64
	TakeProfitLevel float64
}
