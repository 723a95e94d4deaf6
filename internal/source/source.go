package source

import (
	"errors"
	"fmt"

	"stocklens/internal/model"
)

// ErrNoData marks a fetch that succeeded but returned zero bars. Callers
// treat this as a valid, non-error outcome for the series as a whole.
var ErrNoData = errors.New("source returned no data")

// ErrTransient marks a retryable failure (network trouble, rate limiting).
// Permanent failures (bad symbol, bad parameters) are plain errors.
var ErrTransient = errors.New("transient source error")

// Request describes how much data to fetch. Count-based sources (binance)
// require Count; period-based sources (yahoo) require Period. A source may
// use Count to trim a period-based result.
type Request struct {
	Count  int
	Period string
}

// Source fetches OHLCV bars from one market-data provider. Returned bars
// are ascending by timestamp.
type Source interface {
	Name() string
	FetchBars(symbol, interval string, req Request) ([]model.Bar, error)
}

// Registry routes a source name to its provider implementation.
type Registry map[string]Source

// NewRegistry builds a registry from the given sources, keyed by Name().
func NewRegistry(sources ...Source) Registry {
	r := make(Registry, len(sources))
	for _, s := range sources {
		r[s.Name()] = s
	}
	return r
}

// Lookup returns the source for name, or an error for unknown sources.
func (r Registry) Lookup(name string) (Source, error) {
	s, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unsupported data source: %q", name)
	}
	return s, nil
}
