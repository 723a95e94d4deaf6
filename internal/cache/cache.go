package cache

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"stocklens/internal/model"
	"stocklens/internal/source"
)

// DefaultMaxAge is the absolute staleness ceiling: even a slow-interval
// series must be refreshed once its newest bar is older than this.
const DefaultMaxAge = 24 * time.Hour

// topUpFloor is the minimum fetch size when refreshing a stale but
// volume-sufficient cache.
const topUpFloor = 100

// BarStore is the slice of the persistent store the cache needs.
type BarStore interface {
	LatestTimestamp(symbol, source, interval string) (time.Time, bool, error)
	CountBars(symbol, source, interval string) (int, error)
	RecentBars(symbol, source, interval string, limit int) ([]model.Bar, error)
	UpsertBars(bars []model.Bar) (int, error)
}

// Cache decides how much new data must be fetched to bring a cached series
// up to date, merges fetched bars with cached bars, and persists the result.
type Cache struct {
	store   BarStore
	sources source.Registry
	maxAge  time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxAge overrides the absolute staleness ceiling.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over the given store and source registry.
func New(store BarStore, sources source.Registry, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		sources: sources,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decision is the outcome of DecideDownload: whether the cached series is
// usable, how many bars to fetch, and the incremental anchor if any.
type Decision struct {
	UseCache   bool
	FetchCount int
	Anchor     time.Time
	HasAnchor  bool
}

// ParseIntervalMinutes converts an interval string to minutes. Suffixes m,
// h, d and w are recognized; anything else is treated as daily.
func ParseIntervalMinutes(interval string) int {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return 1440
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 1440
	}
	switch interval[len(interval)-1] {
	case 'm':
		return n
	case 'h':
		return n * 60
	case 'd':
		return n * 1440
	case 'w':
		return n * 10080
	default:
		return 1440
	}
}

// IsStale reports whether a series whose newest bar is at latest needs a
// refresh: older than twice the bar interval, or older than the absolute
// ceiling, whichever triggers first.
func (c *Cache) IsStale(latest time.Time, interval string) bool {
	age := c.now().Sub(latest)
	expectedDelay := time.Duration(ParseIntervalMinutes(interval)) * time.Minute * 2
	return age > expectedDelay || age > c.maxAge
}

// DecideDownload computes the minimal fetch needed to serve requested bars
// for the key.
func (c *Cache) DecideDownload(symbol, src, interval string, requested int) (Decision, error) {
	latest, ok, err := c.store.LatestTimestamp(symbol, src, interval)
	if err != nil {
		return Decision{}, fmt.Errorf("latest timestamp: %w", err)
	}
	if !ok {
		// Cold cache: fetch everything the caller asked for.
		return Decision{UseCache: false, FetchCount: requested}, nil
	}

	cached, err := c.store.CountBars(symbol, src, interval)
	if err != nil {
		return Decision{}, fmt.Errorf("count bars: %w", err)
	}

	if cached >= requested {
		if !c.IsStale(latest, interval) {
			return Decision{UseCache: true, FetchCount: 0, Anchor: latest, HasAnchor: true}, nil
		}
		// Enough volume but stale: top up with a small recent batch
		// instead of refetching the whole window.
		n := requested / 10
		if n < topUpFloor {
			n = topUpFloor
		}
		return Decision{UseCache: true, FetchCount: n, Anchor: latest, HasAnchor: true}, nil
	}

	// Short on volume: fetch the shortfall plus a 10% margin to tolerate
	// provider-side gaps.
	missing := requested - cached
	n := int(math.Ceil(float64(missing) * 1.1))
	return Decision{UseCache: true, FetchCount: n}, nil
}

// Merge combines cached and freshly fetched bars, deduplicating by
// timestamp with fresh bars winning (providers may restate a bar). The
// result is ascending by timestamp; when limit > 0 only the most recent
// limit bars survive.
func Merge(cached, fresh []model.Bar, limit int) []model.Bar {
	byTime := make(map[int64]model.Bar, len(cached)+len(fresh))
	for _, b := range cached {
		byTime[b.Time.Unix()] = b
	}
	for _, b := range fresh {
		byTime[b.Time.Unix()] = b
	}

	merged := make([]model.Bar, 0, len(byTime))
	for _, b := range byTime {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })

	if limit > 0 && len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged
}

// SeriesRequest asks for the desired most-recent bars of one key. Period is
// passed through to period-based sources (yahoo); count-based sources use
// the computed fetch count.
type SeriesRequest struct {
	Symbol   string
	Source   string
	Interval string
	Desired  int
	Period   string
}

// GetSeries returns up to req.Desired most-recent bars for the key,
// fetching only what the cache is missing. Fetched bars are always
// persisted, whether or not they fall inside the returned window. A failed
// fetch propagates without touching the store; an empty fetch result
// returns the cached series unchanged.
func (c *Cache) GetSeries(req SeriesRequest) ([]model.Bar, error) {
	decision, err := c.DecideDownload(req.Symbol, req.Source, req.Interval, req.Desired)
	if err != nil {
		return nil, err
	}

	var cached []model.Bar
	if decision.UseCache {
		cached, err = c.store.RecentBars(req.Symbol, req.Source, req.Interval, req.Desired)
		if err != nil {
			return nil, fmt.Errorf("load cached bars: %w", err)
		}
	}

	if decision.UseCache && decision.FetchCount == 0 {
		log.Printf("[INFO] cache hit for %s/%s/%s: %d bars, no fetch needed",
			req.Symbol, req.Source, req.Interval, len(cached))
		return cached, nil
	}

	src, err := c.sources.Lookup(req.Source)
	if err != nil {
		return nil, err
	}

	fetched, err := src.FetchBars(req.Symbol, req.Interval, source.Request{
		Count:  decision.FetchCount,
		Period: req.Period,
	})
	if errors.Is(err, source.ErrNoData) {
		log.Printf("[WARN] %s returned no data for %s/%s, serving cache",
			req.Source, req.Symbol, req.Interval)
		return Merge(cached, nil, req.Desired), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s/%s: %w", req.Symbol, req.Source, req.Interval, err)
	}

	if _, err := c.store.UpsertBars(fetched); err != nil {
		return nil, fmt.Errorf("persist fetched bars: %w", err)
	}

	merged := Merge(cached, fetched, req.Desired)
	log.Printf("[INFO] series for %s/%s/%s: %d cached + %d fetched -> %d returned",
		req.Symbol, req.Source, req.Interval, len(cached), len(fetched), len(merged))
	return merged, nil
}
