package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"stocklens/internal/model"
)

// barID resolves the bars row for an exact (symbol, source, interval, ts)
// key. Returns sql.ErrNoRows when the bar is absent.
func barID(tx *sql.Tx, symbol, source, interval string, ts time.Time) (int64, error) {
	var id int64
	err := tx.QueryRow(
		`SELECT id FROM bars WHERE symbol = ? AND source = ? AND interval = ? AND ts = ?`,
		symbol, source, interval, ts.Unix(),
	).Scan(&id)
	return id, err
}

// UpsertIndicators writes indicator rows for the key, matching each row to
// its owning bar by exact timestamp. Rows with no matching bar are logged
// and skipped. Returns the number of rows written.
func (s *Store) UpsertIndicators(symbol, source, interval string, rows []model.IndicatorRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO indicators
		 (bar_id, ema_12, ema_26, sma_50, sma_200, rsi_14, macd, macd_signal, atr_14, adx, obv)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, r := range rows {
		id, err := barID(tx, symbol, source, interval, r.Time)
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[WARN] indicators: no bar for %s/%s/%s @ %s, skipping",
				symbol, source, interval, r.Time.Format(time.RFC3339))
			continue
		}
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("resolve bar for indicators: %w", err)
		}
		if _, err := stmt.Exec(id,
			r.EMA12, r.EMA26, r.SMA50, r.SMA200, r.RSI14,
			r.MACD, r.MACDSignal, r.ATR14, r.ADX, r.OBV,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert indicators: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit indicators: %w", err)
	}
	return written, nil
}

// UpsertSignals writes signal rows for the key, matching each row to its
// owning bar by exact timestamp. Rows with no matching bar are logged and
// skipped. Returns the number of rows written.
func (s *Store) UpsertSignals(symbol, source, interval string, rows []model.SignalRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO signals
		 (bar_id, sig_momentum_trend, sig_mean_reversion, sig_volume, score,
		  recommendation, in_position, stop_level, tp_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, r := range rows {
		id, err := barID(tx, symbol, source, interval, r.Time)
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[WARN] signals: no bar for %s/%s/%s @ %s, skipping",
				symbol, source, interval, r.Time.Format(time.RFC3339))
			continue
		}
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("resolve bar for signals: %w", err)
		}
		if _, err := stmt.Exec(id,
			r.MomentumTrend, r.MeanReversion, r.Volume, r.Score,
			string(r.Recommendation), r.InPosition, r.StopLevel, r.TakeProfitLevel,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert signals: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit signals: %w", err)
	}
	return written, nil
}
