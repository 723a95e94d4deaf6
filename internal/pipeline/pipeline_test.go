package pipeline

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"stocklens/internal/agent"
	"stocklens/internal/cache"
	"stocklens/internal/config"
	"stocklens/internal/model"
	"stocklens/internal/rules"
	"stocklens/internal/source"
	"stocklens/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunAll(t *testing.T) {
	st := openTestStore(t)

	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	good := &source.Mock{
		SourceName: "mock",
		Bars:       source.GenerateBars("BTCUSDT", "mock", "1d", 250, end),
	}
	bad := &source.Mock{
		SourceName: "flaky",
		Err:        fmt.Errorf("connection reset: %w", source.ErrTransient),
	}

	c := cache.New(st, source.NewRegistry(good, bad))
	p := New(c, st, agent.NewLocal(st), rules.DefaultConfig(), []config.Asset{
		{Symbol: "BTCUSDT", Source: "mock", Interval: "1d", Limit: 250},
		{Symbol: "ETHUSDT", Source: "flaky", Interval: "1d", Limit: 250},
	})

	sum, err := p.RunAll()
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if sum.Processed != 1 || sum.Failed != 1 {
		t.Fatalf("summary = (%d processed, %d failed), want (1, 1)", sum.Processed, sum.Failed)
	}
	if sum.Run.Status != model.RunPartial {
		t.Errorf("run status = %s, want partial", sum.Run.Status)
	}
	if len(sum.Failures) != 1 || sum.Failures[0].Symbol != "ETHUSDT" {
		t.Errorf("failures = %+v, want ETHUSDT only", sum.Failures)
	}

	// The full chain persisted bars, derived rows and a recommendation.
	if n, _ := st.CountBars("BTCUSDT", "mock", "1d"); n != 250 {
		t.Errorf("store holds %d bars, want 250", n)
	}
	recs, err := st.RecommendationHistory("BTCUSDT", 10)
	if err != nil {
		t.Fatalf("RecommendationHistory: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	if recs[0].Rationale == "" {
		t.Error("recommendation carries no rationale")
	}

	sums, err := st.AgentRunSummaries(5)
	if err != nil {
		t.Fatalf("AgentRunSummaries: %v", err)
	}
	if len(sums) != 1 || sums[0].Recommendations != 1 {
		t.Errorf("run summaries = %+v, want one run with one recommendation", sums)
	}
}

func TestRunAllSecondPassUsesCache(t *testing.T) {
	st := openTestStore(t)

	end := time.Now().UTC().Add(-time.Hour)
	good := &source.Mock{
		SourceName: "mock",
		Bars:       source.GenerateBars("BTCUSDT", "mock", "1d", 250, end),
	}

	c := cache.New(st, source.NewRegistry(good))
	p := New(c, st, agent.NewLocal(st), rules.DefaultConfig(), []config.Asset{
		{Symbol: "BTCUSDT", Source: "mock", Interval: "1d", Limit: 250},
	})

	if _, err := p.RunAll(); err != nil {
		t.Fatalf("first RunAll: %v", err)
	}
	if good.Calls != 1 {
		t.Fatalf("first pass made %d fetches, want 1", good.Calls)
	}

	// The series is now cached and fresh: a rerun must not refetch.
	if _, err := p.RunAll(); err != nil {
		t.Fatalf("second RunAll: %v", err)
	}
	if good.Calls != 1 {
		t.Errorf("second pass refetched (%d calls total)", good.Calls)
	}

	sums, err := st.AgentRunSummaries(5)
	if err != nil {
		t.Fatalf("AgentRunSummaries: %v", err)
	}
	if len(sums) != 2 {
		t.Errorf("got %d runs, want 2", len(sums))
	}
}

func TestRunAllNothingConfigured(t *testing.T) {
	st := openTestStore(t)
	c := cache.New(st, source.NewRegistry())
	p := New(c, st, agent.NewLocal(st), rules.DefaultConfig(), nil)

	sum, err := p.RunAll()
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if sum.Run.Status != model.RunFailed {
		t.Errorf("run status = %s, want failed for an empty batch", sum.Run.Status)
	}
}
