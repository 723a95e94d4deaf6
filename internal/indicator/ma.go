package indicator

// SMA computes a simple moving average series. Entries are nil until the
// window is full.
func SMA(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			avg := sum / float64(period)
			out[i] = &avg
		}
	}
	return out
}

// EMA computes an exponential moving average series seeded with the SMA of
// the first period values. Entries are nil until the seed window is full.
func EMA(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out[period-1] = ptr(ema)

	for i := period; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
		out[i] = ptr(ema)
	}
	return out
}

// MACD computes the MACD line (EMA fast − EMA slow) and its signal line
// (EMA of the MACD line over signalPeriod). Entries are nil while the
// underlying EMAs are undefined.
func MACD(values []float64, fast, slow, signalPeriod int) (line, signal []*float64) {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	line = make([]*float64, len(values))
	signal = make([]*float64, len(values))

	// The MACD line exists only where both EMAs do; collect that defined
	// tail to seed the signal EMA.
	var defined []float64
	start := -1
	for i := range values {
		if emaFast[i] == nil || emaSlow[i] == nil {
			continue
		}
		line[i] = ptr(*emaFast[i] - *emaSlow[i])
		if start < 0 {
			start = i
		}
		defined = append(defined, *line[i])
	}
	if start < 0 {
		return line, signal
	}

	sig := EMA(defined, signalPeriod)
	for i, v := range sig {
		signal[start+i] = v
	}
	return line, signal
}

func ptr(v float64) *float64 { return &v }
