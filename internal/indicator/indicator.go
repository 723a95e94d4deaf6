// Package indicator derives technical indicator series from OHLCV bars.
// Values are nil while an indicator's lookback window is unsatisfied, so a
// series' leading rows carry partial data.
package indicator

import "stocklens/internal/model"

// Periods used throughout the system; the rule engine's column contract
// depends on this exact set.
const (
	emaFastPeriod   = 12
	emaSlowPeriod   = 26
	smaFastPeriod   = 50
	smaSlowPeriod   = 200
	rsiPeriod       = 14
	macdSignalSpan  = 9
	atrPeriod       = 14
	adxPeriod       = 14
)

// Compute derives all indicator series from bars, ascending by timestamp,
// returning one row per input bar.
func Compute(bars []model.Bar) []model.IndicatorRow {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ema12 := EMA(closes, emaFastPeriod)
	ema26 := EMA(closes, emaSlowPeriod)
	sma50 := SMA(closes, smaFastPeriod)
	sma200 := SMA(closes, smaSlowPeriod)
	rsi := RSI(closes, rsiPeriod)
	macd, macdSignal := MACD(closes, emaFastPeriod, emaSlowPeriod, macdSignalSpan)
	atr := ATR(bars, atrPeriod)
	adx := ADX(bars, adxPeriod)
	obv := OBV(bars)

	rows := make([]model.IndicatorRow, len(bars))
	for i, b := range bars {
		rows[i] = model.IndicatorRow{
			Time:       b.Time,
			Close:      b.Close,
			Volume:     b.Volume,
			EMA12:      ema12[i],
			EMA26:      ema26[i],
			SMA50:      sma50[i],
			SMA200:     sma200[i],
			RSI14:      rsi[i],
			MACD:       macd[i],
			MACDSignal: macdSignal[i],
			ATR14:      atr[i],
			ADX:        adx[i],
			OBV:        obv[i],
		}
	}
	return rows
}
