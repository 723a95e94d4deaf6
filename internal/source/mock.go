package source

import (
	"time"

	"stocklens/internal/model"
)

// Mock returns controllable fixed data for development and testing.
type Mock struct {
	SourceName string
	Bars       []model.Bar
	Err        error
	Calls      int
}

func (m *Mock) Name() string {
	if m.SourceName != "" {
		return m.SourceName
	}
	return "mock"
}

func (m *Mock) FetchBars(symbol, interval string, req Request) ([]model.Bar, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	bars := m.Bars
	if bars == nil {
		bars = GenerateBars(symbol, m.Name(), interval, 100, time.Now())
	}
	if req.Count > 0 && len(bars) > req.Count {
		bars = bars[len(bars)-req.Count:]
	}
	return bars, nil
}

// GenerateBars produces count synthetic daily-spaced bars ending at end.
func GenerateBars(symbol, source, interval string, count int, end time.Time) []model.Bar {
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := 100 * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Symbol:   symbol,
			Source:   source,
			Interval: interval,
			Time:     end.AddDate(0, 0, -(count - 1 - i)).UTC(),
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			Volume:   1000000,
		}
	}
	return bars
}
