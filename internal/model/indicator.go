package model

import "time"

// IndicatorRow holds the computed indicator values for one bar. Pointer
// fields are nil while the indicator's lookback window is unsatisfied.
type IndicatorRow struct {
	Time   time.Time
	Close  float64
	Volume float64

	EMA12      *float64
	EMA26      *float64
	SMA50      *float64
	SMA200     *float64
	RSI14      *float64
	MACD       *float64
	MACDSignal *float64
	ATR14      *float64
	ADX        *float64
	OBV        *float64
}

// Float returns a pointer to v, for building optional indicator values.
func Float(v float64) *float64 { return &v }
