// Package agent turns per-asset signal snapshots into recorded
// recommendations with a human-readable rationale.
package agent

import (
	"fmt"
	"log"
	"strings"
	"time"

	"stocklens/internal/model"
)

// RunStore is the slice of the persistent store the agent writes to.
type RunStore interface {
	CreateAgentRun(run model.AgentRun) (int64, error)
	AddRecommendation(rec model.RecommendationRecord) (int64, error)
}

// Result is the final analyzed state of one asset: its latest signal row
// and the indicator row it was derived from.
type Result struct {
	Symbol     string
	Signal     model.SignalRow
	Indicators model.IndicatorRow
}

// Local is the rule-based analysis agent. It needs no external provider;
// its rationale is assembled from the indicator values that drove the
// latest decision.
type Local struct {
	store RunStore
}

// NewLocal creates a local agent writing to store.
func NewLocal(store RunStore) *Local {
	return &Local{store: store}
}

// Record persists one agent run covering results, with failed counting the
// assets that errored before analysis. Recommendation inserts that fail are
// counted as failures but do not abort the run.
func (a *Local) Record(results []Result, failed int, elapsed time.Duration) (model.AgentRun, error) {
	run := model.AgentRun{
		RunAt:           time.Now().UTC(),
		Kind:            model.AgentLocal,
		AssetsProcessed: len(results),
		AssetsFailed:    failed,
		Duration:        elapsed,
	}
	switch {
	case len(results) == 0:
		run.Status = model.RunFailed
		run.ErrorMessage = "no assets produced signals"
	case failed > 0:
		run.Status = model.RunPartial
	default:
		run.Status = model.RunSuccess
	}

	id, err := a.store.CreateAgentRun(run)
	if err != nil {
		return run, fmt.Errorf("create agent run: %w", err)
	}
	run.ID = id

	for _, res := range results {
		price := res.Signal.Close
		rec := model.RecommendationRecord{
			RunID:          id,
			Symbol:         res.Symbol,
			Recommendation: normalize(res.Signal.Recommendation),
			Rationale:      Explain(res.Signal, res.Indicators),
			Price:          &price,
		}
		if _, err := a.store.AddRecommendation(rec); err != nil {
			log.Printf("[ERROR] record recommendation for %s: %v", res.Symbol, err)
		}
	}
	return run, nil
}

// normalize maps trade-trace vocabulary onto the recommendation relation's
// buy/sell/hold domain.
func normalize(rec model.Recommendation) model.Recommendation {
	switch rec {
	case model.RecEnter:
		return model.RecBuy
	case model.RecExit:
		return model.RecSell
	default:
		return rec
	}
}

// Explain builds a human-readable rationale for a signal row from the
// indicator values behind it.
func Explain(sig model.SignalRow, ind model.IndicatorRow) string {
	var reasons []string

	switch normalize(sig.Recommendation) {
	case model.RecBuy:
		reasons = append(reasons, "buy signal")
	case model.RecSell:
		reasons = append(reasons, "sell signal")
	default:
		reasons = append(reasons, "hold")
	}

	if ind.MACD != nil && ind.MACDSignal != nil {
		if *ind.MACD > *ind.MACDSignal {
			reasons = append(reasons, "MACD above signal (bullish momentum)")
		} else if *ind.MACD < *ind.MACDSignal {
			reasons = append(reasons, "MACD below signal (bearish momentum)")
		}
	}

	if ind.RSI14 != nil {
		if *ind.RSI14 < 30 {
			reasons = append(reasons, fmt.Sprintf("RSI %.0f (oversold)", *ind.RSI14))
		} else if *ind.RSI14 > 70 {
			reasons = append(reasons, fmt.Sprintf("RSI %.0f (overbought)", *ind.RSI14))
		}
	}

	if ind.ADX != nil && *ind.ADX >= 25 {
		reasons = append(reasons, "strong trend (ADX >= 25)")
	}

	if sig.InPosition {
		reasons = append(reasons, fmt.Sprintf("in position, stop %.2f / target %.2f",
			sig.StopLevel, sig.TakeProfitLevel))
	}

	return strings.Join(reasons, "; ")
}
