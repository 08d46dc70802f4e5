package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"StockAnalyzer/internal/scanner"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			symbol        TEXT NOT NULL,
			horizon_days  INTEGER,
			risk          INTEGER,
			current_price REAL,
			target_price  REAL,
			action        TEXT,
			confidence    REAL,
			sentiment     REAL,
			entry         REAL,
			stop_loss     REAL,
			take_profit   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS arbitrage_checks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol_a    TEXT NOT NULL,
			symbol_b    TEXT NOT NULL,
			points      INTEGER,
			correlation REAL,
			z_score     REAL,
			signal      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_arb_ts ON arbitrage_checks(timestamp)`,

		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			scan_filter TEXT,
			row_count   INTEGER,
			skip_count  INTEGER,
			skip_detail TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS scan_rows (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL REFERENCES scan_runs(run_id),
			position        INTEGER,
			symbol          TEXT NOT NULL,
			current_price   REAL,
			predicted_price REAL,
			delta_pct       REAL,
			signal          TEXT,
			option_type     TEXT,
			strike          REAL,
			expiry          TEXT,
			greek_score     REAL,
			strength        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_rows_run ON scan_rows(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) stamp(t time.Time) int64 {
	if t.IsZero() {
		t = r.now()
	}
	return t.Unix()
}

func (r *SQLiteRecorder) RecordSignal(evt *SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO signals
		(timestamp, symbol, horizon_days, risk, current_price, target_price,
		 action, confidence, sentiment, entry, stop_loss, take_profit)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.stamp(evt.RecordedAt), evt.Symbol, evt.HorizonDays, evt.Risk,
		evt.CurrentPrice, evt.TargetPrice, evt.Action, evt.Confidence, evt.Sentiment,
		evt.Entry, evt.StopLoss, evt.TakeProfit,
	)
	return err
}

func (r *SQLiteRecorder) RecordArbitrage(evt *ArbitrageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO arbitrage_checks
		(timestamp, symbol_a, symbol_b, points, correlation, z_score, signal)
		VALUES (?,?,?,?,?,?,?)`,
		r.stamp(evt.RecordedAt), evt.SymbolA, evt.SymbolB, evt.Points,
		nullable(evt.Correlation), nullable(evt.ZScore), evt.Signal,
	)
	return err
}

// RecordScan stores the run header and its ranked rows in one transaction.
func (r *SQLiteRecorder) RecordScan(rep *scanner.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	skips := make([]string, 0, len(rep.Skipped))
	for _, s := range rep.Skipped {
		skips = append(skips, fmt.Sprintf("%s:%s", s.Symbol, s.Kind))
	}
	if _, err := tx.Exec(`INSERT INTO scan_runs
		(run_id, started_at, finished_at, scan_filter, row_count, skip_count, skip_detail)
		VALUES (?,?,?,?,?,?,?)`,
		rep.RunID, r.stamp(rep.StartedAt), r.stamp(rep.FinishedAt), string(rep.Filter),
		len(rep.Rows), len(rep.Skipped), strings.Join(skips, ","),
	); err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO scan_rows
		(run_id, position, symbol, current_price, predicted_price, delta_pct, signal,
		 option_type, strike, expiry, greek_score, strength)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rep.Rows {
		var optType, expiry any
		var strike any
		if row.Option != nil {
			optType = string(row.Option.Type)
			strike = row.Option.Contract.Strike
			expiry = row.Option.Expiry.Format(time.DateOnly)
		}
		if _, err := stmt.Exec(rep.RunID, i+1, row.Symbol, row.CurrentPrice, row.PredictedPrice,
			row.DeltaPct, string(row.Signal), optType, strike, expiry, row.GreekScore, row.Strength,
		); err != nil {
			return fmt.Errorf("insert scan row %s: %w", row.Symbol, err)
		}
	}
	return tx.Commit()
}

// RecentSignals returns the newest signals first. An empty symbol matches all.
func (r *SQLiteRecorder) RecentSignals(symbol string, limit int) ([]SignalEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT timestamp, symbol, horizon_days, risk, current_price,
		target_price, action, confidence, sentiment, entry, stop_loss, take_profit
		FROM signals WHERE (? = '' OR symbol = ?)
		ORDER BY timestamp DESC, id DESC LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalEvent
	for rows.Next() {
		var e SignalEvent
		var ts int64
		if err := rows.Scan(&ts, &e.Symbol, &e.HorizonDays, &e.Risk, &e.CurrentPrice,
			&e.TargetPrice, &e.Action, &e.Confidence, &e.Sentiment,
			&e.Entry, &e.StopLoss, &e.TakeProfit); err != nil {
			return nil, err
		}
		e.RecordedAt = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
