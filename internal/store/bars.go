package store

import (
	"database/sql"
	"fmt"
	"time"

	"stocklens/internal/model"
)

// LatestTimestamp returns the newest bar timestamp for the key. The boolean
// is false when no bars exist.
func (s *Store) LatestTimestamp(symbol, source, interval string) (time.Time, bool, error) {
	var ts sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(ts) FROM bars WHERE symbol = ? AND source = ? AND interval = ?`,
		symbol, source, interval,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest timestamp: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), true, nil
}

// CountBars returns the number of cached bars for the key.
func (s *Store) CountBars(symbol, source, interval string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM bars WHERE symbol = ? AND source = ? AND interval = ?`,
		symbol, source, interval,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return n, nil
}

// UpsertBars inserts bars, silently skipping any whose
// (symbol, source, interval, timestamp) already exists. Returns the number
// of rows actually inserted. Duplicates are never an error.
func (s *Store) UpsertBars(bars []model.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO bars (symbol, source, interval, ts, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bars {
		res, err := stmt.Exec(
			b.Symbol, b.Source, b.Interval, b.Time.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert bar %s@%s: %w", b.Symbol, b.Time.Format(time.RFC3339), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bars: %w", err)
	}
	return inserted, nil
}

// QueryOpts narrows a bar query. Zero values mean "unset".
type QueryOpts struct {
	Start time.Time
	End   time.Time
	Limit int // keep only the most recent Limit rows
}

// QueryBars returns bars for the key ascending by timestamp, optionally
// time-bounded and capped to the most recent Limit rows. An empty result is
// not an error.
func (s *Store) QueryBars(symbol, source, interval string, opts QueryOpts) ([]model.Bar, error) {
	query := `SELECT ts, open, high, low, close, volume
		FROM bars WHERE symbol = ? AND source = ? AND interval = ?`
	args := []any{symbol, source, interval}

	if !opts.Start.IsZero() {
		query += " AND ts >= ?"
		args = append(args, opts.Start.Unix())
	}
	if !opts.End.IsZero() {
		query += " AND ts <= ?"
		args = append(args, opts.End.Unix())
	}

	// Select newest-first to apply the limit from the tail, then reverse.
	query += " ORDER BY ts DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		b := model.Bar{Symbol: symbol, Source: source, Interval: interval}
		var ts int64
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}

	// Restore ascending order.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// RecentBars returns up to limit most recent bars for the key, ascending.
func (s *Store) RecentBars(symbol, source, interval string, limit int) ([]model.Bar, error) {
	return s.QueryBars(symbol, source, interval, QueryOpts{Limit: limit})
}
