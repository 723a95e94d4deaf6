package store

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists bars, indicators, signals, agent runs and recommendations
// in a SQLite database. Writes are serialized with a mutex; SQLite enforces
// the uniqueness invariants so concurrent retries stay idempotent.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode keeps readers (lensctl, dashboards) unblocked while the
	// pipeline writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] store opened: %s", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT    NOT NULL,
			source     TEXT    NOT NULL,
			interval   TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			UNIQUE(symbol, source, interval, ts)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_symbol_ts ON bars(symbol, ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_key ON bars(source, symbol, interval)`,

		`CREATE TABLE IF NOT EXISTS indicators (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			bar_id      INTEGER NOT NULL UNIQUE,
			ema_12      REAL,
			ema_26      REAL,
			sma_50      REAL,
			sma_200     REAL,
			rsi_14      REAL,
			macd        REAL,
			macd_signal REAL,
			atr_14      REAL,
			adx         REAL,
			obv         REAL,
			created_at  INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			FOREIGN KEY (bar_id) REFERENCES bars(id)
		)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			bar_id             INTEGER NOT NULL UNIQUE,
			sig_momentum_trend INTEGER NOT NULL DEFAULT 0,
			sig_mean_reversion INTEGER NOT NULL DEFAULT 0,
			sig_volume         INTEGER NOT NULL DEFAULT 0,
			score              INTEGER NOT NULL DEFAULT 0,
			recommendation     TEXT CHECK(recommendation IN ('buy','sell','hold','enter','exit')),
			in_position        INTEGER NOT NULL DEFAULT 0,
			stop_level         REAL,
			tp_level           REAL,
			created_at         INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			FOREIGN KEY (bar_id) REFERENCES bars(id)
		)`,

		`CREATE TABLE IF NOT EXISTS agent_runs (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_ts            INTEGER NOT NULL,
			agent_kind        TEXT    NOT NULL CHECK(agent_kind IN ('local','llm')),
			llm_provider      TEXT,
			llm_model         TEXT,
			assets_processed  INTEGER NOT NULL DEFAULT 0,
			assets_failed     INTEGER NOT NULL DEFAULT 0,
			execution_seconds REAL,
			status            TEXT CHECK(status IN ('success','partial','failed')),
			error_message     TEXT,
			created_at        INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_runs_ts ON agent_runs(run_ts DESC)`,

		`CREATE TABLE IF NOT EXISTS recommendations (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_run_id       INTEGER NOT NULL,
			symbol             TEXT    NOT NULL,
			recommendation     TEXT    NOT NULL CHECK(recommendation IN ('buy','sell','hold')),
			rationale          TEXT,
			portfolio_analysis TEXT,
			confidence_score   REAL,
			price_at_rec       REAL,
			created_at         INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			FOREIGN KEY (agent_run_id) REFERENCES agent_runs(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_symbol ON recommendations(symbol, created_at DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

// Stats describes the cached data set as a whole.
type Stats struct {
	TotalBars     int
	UniqueSymbols int
	Oldest        time.Time
	Newest        time.Time
}

// Stats returns bar counts and the overall time range of the cache.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT symbol),
		        COALESCE(MIN(ts), 0), COALESCE(MAX(ts), 0)
		 FROM bars`,
	).Scan(&st.TotalBars, &st.UniqueSymbols, &unixTime{&st.Oldest}, &unixTime{&st.Newest})
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	log.Println("[INFO] closing store")
	return s.db.Close()
}

// unixTime scans an INTEGER unix-seconds column into a time.Time.
// Zero scans to the zero time.
type unixTime struct {
	t *time.Time
}

func (u *unixTime) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		if v == 0 {
			*u.t = time.Time{}
		} else {
			*u.t = time.Unix(v, 0).UTC()
		}
		return nil
	case nil:
		*u.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into unix timestamp", src)
	}
}
