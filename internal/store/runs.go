package store

import (
	"database/sql"
	"fmt"
	"time"

	"stocklens/internal/model"
)

// CreateAgentRun records one completed agent run and returns its id.
func (s *Store) CreateAgentRun(run model.AgentRun) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO agent_runs
		 (run_ts, agent_kind, llm_provider, llm_model, assets_processed,
		  assets_failed, execution_seconds, status, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunAt.Unix(), string(run.Kind),
		nullString(run.LLMProvider), nullString(run.LLMModel),
		run.AssetsProcessed, run.AssetsFailed,
		run.Duration.Seconds(), string(run.Status), nullString(run.ErrorMessage),
	)
	if err != nil {
		return 0, fmt.Errorf("insert agent run: %w", err)
	}
	return res.LastInsertId()
}

// AddRecommendation records one per-symbol recommendation for a run.
func (s *Store) AddRecommendation(rec model.RecommendationRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO recommendations
		 (agent_run_id, symbol, recommendation, rationale, portfolio_analysis,
		  confidence_score, price_at_rec)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Symbol, string(rec.Recommendation),
		rec.Rationale, nullString(rec.PortfolioAnalysis),
		rec.Confidence, rec.Price,
	)
	if err != nil {
		return 0, fmt.Errorf("insert recommendation: %w", err)
	}
	return res.LastInsertId()
}

// RecommendationHistory returns recommendations newest first, joined with
// their owning run. An empty symbol matches all symbols.
func (s *Store) RecommendationHistory(symbol string, limit int) ([]model.RecommendationRecord, error) {
	query := `SELECT r.id, r.agent_run_id, r.symbol, r.recommendation,
			COALESCE(r.rationale, ''), COALESCE(r.portfolio_analysis, ''),
			r.confidence_score, r.price_at_rec, r.created_at,
			ar.agent_kind, COALESCE(ar.llm_provider, ''), COALESCE(ar.llm_model, '')
		FROM recommendations r
		JOIN agent_runs ar ON r.agent_run_id = ar.id`
	args := []any{}
	if symbol != "" {
		query += " WHERE r.symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY r.created_at DESC, r.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendation history: %w", err)
	}
	defer rows.Close()

	var recs []model.RecommendationRecord
	for rows.Next() {
		var r model.RecommendationRecord
		var rec, kind string
		var confidence, price sql.NullFloat64
		var created int64
		if err := rows.Scan(&r.ID, &r.RunID, &r.Symbol, &rec,
			&r.Rationale, &r.PortfolioAnalysis, &confidence, &price, &created,
			&kind, &r.LLMProvider, &r.LLMModel); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		r.Recommendation = model.Recommendation(rec)
		r.AgentKind = model.AgentKind(kind)
		if confidence.Valid {
			r.Confidence = &confidence.Float64
		}
		if price.Valid {
			r.Price = &price.Float64
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// AgentRunSummaries returns recent runs newest first, each with its
// recommendation count.
func (s *Store) AgentRunSummaries(limit int) ([]model.AgentRunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, run_ts, agent_kind,
			COALESCE(llm_provider, ''), COALESCE(llm_model, ''),
			assets_processed, assets_failed, execution_seconds,
			COALESCE(status, ''), COALESCE(error_message, ''),
			(SELECT COUNT(*) FROM recommendations WHERE agent_run_id = agent_runs.id)
		FROM agent_runs
		ORDER BY run_ts DESC, id DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query agent runs: %w", err)
	}
	defer rows.Close()

	var out []model.AgentRunSummary
	for rows.Next() {
		var sum model.AgentRunSummary
		var kind, status string
		var runTS int64
		var seconds float64
		if err := rows.Scan(&sum.ID, &runTS, &kind,
			&sum.LLMProvider, &sum.LLMModel,
			&sum.AssetsProcessed, &sum.AssetsFailed, &seconds,
			&status, &sum.ErrorMessage, &sum.Recommendations); err != nil {
			return nil, fmt.Errorf("scan agent run: %w", err)
		}
		sum.RunAt = time.Unix(runTS, 0).UTC()
		sum.Kind = model.AgentKind(kind)
		sum.Status = model.RunStatus(status)
		sum.Duration = time.Duration(seconds * float64(time.Second))
		out = append(out, sum)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
