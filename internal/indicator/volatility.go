package indicator

import (
	"math"

	"stocklens/internal/model"
)

// trueRanges returns the true range series; the first entry is high−low.
func trueRanges(bars []model.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(hl, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return tr
}

// ATR computes the Wilder-smoothed average true range series. Entries are
// nil until period true ranges have accumulated.
func ATR(bars []model.Bar, period int) []*float64 {
	out := make([]*float64, len(bars))
	if period <= 0 || len(bars) < period+1 {
		return out
	}
	tr := trueRanges(bars)

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	out[period] = ptr(atr)

	for i := period + 1; i < len(bars); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = ptr(atr)
	}
	return out
}

// ADX computes the Wilder average directional index series. Entries are nil
// until two full smoothing windows have accumulated.
func ADX(bars []model.Bar, period int) []*float64 {
	out := make([]*float64, len(bars))
	if period <= 0 || len(bars) < 2*period+1 {
		return out
	}

	tr := trueRanges(bars)
	plusDM := make([]float64, len(bars))
	minusDM := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	// Wilder-smoothed TR and directional movement over the first window.
	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := make([]float64, 0, len(bars))
	for i := period + 1; i < len(bars); i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]

		if smTR == 0 {
			dx = append(dx, 0)
			continue
		}
		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		if plusDI+minusDI == 0 {
			dx = append(dx, 0)
			continue
		}
		dx = append(dx, 100*math.Abs(plusDI-minusDI)/(plusDI+minusDI))
	}

	// ADX is the Wilder average of DX: seeded with the mean of the first
	// period DX values, defined from bar index 2*period onwards.
	if len(dx) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += dx[i]
	}
	adx := sum / float64(period)
	out[2*period] = ptr(adx)

	for i := period; i < len(dx); i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		out[i+period+1] = ptr(adx)
	}
	return out
}
