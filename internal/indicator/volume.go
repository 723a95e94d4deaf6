package indicator

import "stocklens/internal/model"

// OBV computes the on-balance volume series, starting from zero. Defined
// for every bar.
func OBV(bars []model.Bar) []*float64 {
	out := make([]*float64, len(bars))
	obv := 0.0
	for i, b := range bars {
		if i > 0 {
			switch {
			case b.Close > bars[i-1].Close:
				obv += b.Volume
			case b.Close < bars[i-1].Close:
				obv -= b.Volume
			}
		}
		out[i] = ptr(obv)
	}
	return out
}
