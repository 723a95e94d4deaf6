// Package pipeline orchestrates the full per-asset analysis: series
// retrieval through the cache, indicator computation, signal generation,
// persistence, and the final agent run. A failure on one asset never stops
// the batch.
package pipeline

import (
	"fmt"
	"log"
	"time"

	"stocklens/internal/agent"
	"stocklens/internal/cache"
	"stocklens/internal/config"
	"stocklens/internal/indicator"
	"stocklens/internal/model"
	"stocklens/internal/rules"
)

// SignalStore is the slice of the persistent store the pipeline writes
// derived rows to.
type SignalStore interface {
	UpsertIndicators(symbol, source, interval string, rows []model.IndicatorRow) (int, error)
	UpsertSignals(symbol, source, interval string, rows []model.SignalRow) (int, error)
}

// Failure describes one asset that could not be processed.
type Failure struct {
	Symbol string
	Err    error
}

// Summary aggregates one pipeline run.
type Summary struct {
	Processed int
	Failed    int
	Failures  []Failure
	Run       model.AgentRun
}

// Pipeline wires the cache, rule engine, store and agent together.
type Pipeline struct {
	cache  *cache.Cache
	store  SignalStore
	agent  *agent.Local
	rules  rules.Config
	assets []config.Asset
}

// New creates a Pipeline for the configured assets.
func New(c *cache.Cache, store SignalStore, ag *agent.Local, rulesCfg rules.Config, assets []config.Asset) *Pipeline {
	return &Pipeline{
		cache:  c,
		store:  store,
		agent:  ag,
		rules:  rulesCfg,
		assets: assets,
	}
}

// RunAll processes every configured asset and records one agent run with
// the aggregate result. Per-asset errors are logged and counted.
func (p *Pipeline) RunAll() (Summary, error) {
	started := time.Now()
	var results []agent.Result
	var failures []Failure

	for _, a := range p.assets {
		log.Printf("[INFO] processing %s (%s, %s)", a.Symbol, a.Source, a.Interval)
		res, err := p.runAsset(a)
		if err != nil {
			log.Printf("[ERROR] %s: %v", a.Symbol, err)
			failures = append(failures, Failure{Symbol: a.Symbol, Err: err})
			continue
		}
		results = append(results, res)
	}

	run, err := p.agent.Record(results, len(failures), time.Since(started))
	if err != nil {
		return Summary{}, fmt.Errorf("record agent run: %w", err)
	}

	sum := Summary{
		Processed: len(results),
		Failed:    len(failures),
		Failures:  failures,
		Run:       run,
	}
	log.Printf("[INFO] pipeline finished: %d processed, %d failed, status %s",
		sum.Processed, sum.Failed, run.Status)
	return sum, nil
}

// runAsset executes the full chain for one asset and returns its latest
// decision.
func (p *Pipeline) runAsset(a config.Asset) (agent.Result, error) {
	bars, err := p.cache.GetSeries(cache.SeriesRequest{
		Symbol:   a.Symbol,
		Source:   a.Source,
		Interval: a.Interval,
		Desired:  a.Limit,
		Period:   a.Period,
	})
	if err != nil {
		return agent.Result{}, fmt.Errorf("get series: %w", err)
	}
	if len(bars) == 0 {
		return agent.Result{}, fmt.Errorf("no bars available")
	}

	rows := indicator.Compute(bars)
	if _, err := p.store.UpsertIndicators(a.Symbol, a.Source, a.Interval, rows); err != nil {
		return agent.Result{}, fmt.Errorf("persist indicators: %w", err)
	}

	signals, err := rules.GenerateTrace(rows, p.rules)
	if err != nil {
		return agent.Result{}, fmt.Errorf("generate signals: %w", err)
	}
	if _, err := p.store.UpsertSignals(a.Symbol, a.Source, a.Interval, signals); err != nil {
		return agent.Result{}, fmt.Errorf("persist signals: %w", err)
	}

	return agent.Result{
		Symbol:     a.Symbol,
		Signal:     signals[len(signals)-1],
		Indicators: rows[len(rows)-1],
	}, nil
}
