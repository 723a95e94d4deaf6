// Package rules converts an indicator time series into per-bar trading
// decisions. Two engines are provided: GenerateTrace simulates a single
// long-only position with explicit enter/exit rules, and Classify produces
// a stateless per-bar buy/sell/hold label.
package rules

import (
	"fmt"
	"sort"

	"stocklens/internal/model"
)

// Config holds the rule thresholds.
type Config struct {
	RSILow         float64
	RSIHigh        float64
	VolumeWindow   int
	ATRMult        float64
	EnterThreshold int
	ADXThreshold   float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		RSILow:         30,
		RSIHigh:        70,
		VolumeWindow:   20,
		ATRMult:        2.0,
		EnterThreshold: 2,
		ADXThreshold:   20,
	}
}

type column struct {
	name string
	get  func(*model.IndicatorRow) *float64
}

var traceColumns = []column{
	{"ema_12", func(r *model.IndicatorRow) *float64 { return r.EMA12 }},
	{"sma_50", func(r *model.IndicatorRow) *float64 { return r.SMA50 }},
	{"sma_200", func(r *model.IndicatorRow) *float64 { return r.SMA200 }},
	{"rsi_14", func(r *model.IndicatorRow) *float64 { return r.RSI14 }},
	{"macd", func(r *model.IndicatorRow) *float64 { return r.MACD }},
	{"macd_signal", func(r *model.IndicatorRow) *float64 { return r.MACDSignal }},
	{"atr_14", func(r *model.IndicatorRow) *float64 { return r.ATR14 }},
}

var classifyColumns = []column{
	{"rsi_14", func(r *model.IndicatorRow) *float64 { return r.RSI14 }},
	{"macd", func(r *model.IndicatorRow) *float64 { return r.MACD }},
	{"macd_signal", func(r *model.IndicatorRow) *float64 { return r.MACDSignal }},
	{"adx", func(r *model.IndicatorRow) *float64 { return r.ADX }},
	{"obv", func(r *model.IndicatorRow) *float64 { return r.OBV }},
}

// requireColumns fails when a required indicator is absent on every row.
// Leading warm-up nils are expected and allowed.
func requireColumns(rows []model.IndicatorRow, cols []column) error {
	var missing []string
	for _, c := range cols {
		present := false
		for i := range rows {
			if c.get(&rows[i]) != nil {
				present = true
				break
			}
		}
		if !present {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required indicator columns: %v", missing)
	}
	return nil
}

// gt reports a > x; false when a is undefined.
func gt(a *float64, x float64) bool { return a != nil && *a > x }

// lt reports a < x; false when a is undefined.
func lt(a *float64, x float64) bool { return a != nil && *a < x }

// above reports a > b; false when either side is undefined.
func above(a, b *float64) bool { return a != nil && b != nil && *a > *b }

// crossUp reports a crossing up through b between the previous and current
// row. The first row of a series has no predecessor and never crosses.
func crossUp(prevA, prevB, a, b *float64) bool {
	return prevA != nil && prevB != nil && a != nil && b != nil &&
		*prevA <= *prevB && *a > *b
}

// crossDown is the mirror of crossUp.
func crossDown(prevA, prevB, a, b *float64) bool {
	return prevA != nil && prevB != nil && a != nil && b != nil &&
		*prevA >= *prevB && *a < *b
}

// rollingMean computes a trailing simple moving average including the
// current value. Entries are nil until minPeriods values have accumulated.
func rollingMean(values []float64, window, minPeriods int) []*float64 {
	out := make([]*float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		n := i + 1
		if n > window {
			sum -= values[i-window]
			n = window
		}
		if n >= minPeriods {
			avg := sum / float64(n)
			out[i] = &avg
		}
	}
	return out
}

// GenerateTrace runs the stateful long-only engine over rows (ascending by
// timestamp) and returns one decision per row. The position flag at row i
// depends only on rows 0..i.
func GenerateTrace(rows []model.IndicatorRow, cfg Config) ([]model.SignalRow, error) {
	if err := requireColumns(rows, traceColumns); err != nil {
		return nil, err
	}

	volumes := make([]float64, len(rows))
	for i := range rows {
		volumes[i] = rows[i].Volume
	}
	minPeriods := cfg.VolumeWindow / 3
	if minPeriods < 3 {
		minPeriods = 3
	}
	volMA := rollingMean(volumes, cfg.VolumeWindow, minPeriods)

	out := make([]model.SignalRow, len(rows))
	inPosition := false

	for i := range rows {
		r := &rows[i]
		var prev *model.IndicatorRow
		if i > 0 {
			prev = &rows[i-1]
		}

		trendUp := above(r.SMA50, r.SMA200)
		momentumUp := above(r.MACD, r.MACDSignal)
		momentumCrossUp := false
		momentumCrossDown := false
		oscillatorRebound := false
		if prev != nil {
			momentumCrossUp = crossUp(prev.MACD, prev.MACDSignal, r.MACD, r.MACDSignal)
			momentumCrossDown = crossDown(prev.MACD, prev.MACDSignal, r.MACD, r.MACDSignal)
			oscillatorRebound = crossUp(prev.RSI14, &cfg.RSILow, r.RSI14, &cfg.RSILow)
		}
		oversold := lt(r.RSI14, cfg.RSILow)
		volumeOK := volMA[i] != nil && r.Volume > *volMA[i]

		momo := 0
		if trendUp && (momentumUp || momentumCrossUp) && gt(r.RSI14, 50) {
			momo = 1
		}
		mr := 0
		if oversold && (oscillatorRebound || (r.EMA12 != nil && r.Close > *r.EMA12)) {
			mr = 1
		}
		vol := 0
		if volumeOK {
			vol = 1
		}

		// Momentum is the primary trend confirmation and weighs double.
		score := 2*momo + mr + vol

		enter := (momo == 1 && vol == 1) || (mr == 1 && vol == 1) || score >= cfg.EnterThreshold
		exit := momentumCrossDown || (r.SMA50 != nil && r.Close < *r.SMA50)

		rec := model.RecHold
		if !inPosition && enter {
			inPosition = true
			rec = model.RecEnter
		} else if inPosition && exit {
			inPosition = false
			rec = model.RecExit
		}

		row := model.SignalRow{
			Time:           r.Time,
			Close:          r.Close,
			MomentumTrend:  momo,
			MeanReversion:  mr,
			Volume:         vol,
			Score:          score,
			Recommendation: rec,
			InPosition:     inPosition,
		}
		if r.ATR14 != nil {
			row.StopLevel = r.Close - cfg.ATRMult**r.ATR14
			row.TakeProfitLevel = r.Close + cfg.ATRMult**r.ATR14
		}
		out[i] = row
	}
	return out, nil
}

// Classify runs the stateless per-bar engine over rows: momentum requires
// MACD above its signal with a trending ADX, mean-reversion maps RSI
// extremes to +1/-1, volume follows the OBV delta. Positive scores label
// buy, negative sell, zero hold. No position memory.
func Classify(rows []model.IndicatorRow, cfg Config) ([]model.SignalRow, error) {
	if err := requireColumns(rows, classifyColumns); err != nil {
		return nil, err
	}

	out := make([]model.SignalRow, len(rows))
	for i := range rows {
		r := &rows[i]

		momo := 0
		if above(r.MACD, r.MACDSignal) && gt(r.ADX, cfg.ADXThreshold) {
			momo = 1
		}
		mr := 0
		if lt(r.RSI14, cfg.RSILow) {
			mr = 1
		} else if gt(r.RSI14, cfg.RSIHigh) {
			mr = -1
		}
		vol := 0
		if i > 0 && r.OBV != nil && rows[i-1].OBV != nil && *r.OBV > *rows[i-1].OBV {
			vol = 1
		}

		score := momo + mr + vol
		rec := model.RecHold
		if score > 0 {
			rec = model.RecBuy
		} else if score < 0 {
			rec = model.RecSell
		}

		out[i] = model.SignalRow{
			Time:           r.Time,
			Close:          r.Close,
			MomentumTrend:  momo,
			MeanReversion:  mr,
			Volume:         vol,
			Score:          score,
			Recommendation: rec,
		}
	}
	return out, nil
}
