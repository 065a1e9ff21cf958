package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"ATHWatch/internal/model"
)

// SQLiteRecorder persists metrics history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers (dashboards, ad-hoc queries) run while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metrics_snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp       INTEGER NOT NULL,
			as_of           TEXT NOT NULL,
			currency        TEXT NOT NULL,
			pair            TEXT NOT NULL,
			ath             TEXT,
			ath_date        TEXT,
			factor          TEXT,
			index_source    TEXT,
			from_month      TEXT,
			to_month        TEXT,
			adjusted_ath    TEXT,
			spot            TEXT,
			percent_to_go   TEXT,
			milestone       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_ts ON metrics_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			currency      TEXT,
			spot          TEXT,
			adjusted_ath  TEXT,
			percent_to_go TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordMetrics stores one row per currency, all sharing the same timestamp.
func (r *SQLiteRecorder) RecordMetrics(m *model.MetricsResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	for _, c := range m.Legs() {
		if _, err := tx.Exec(`INSERT INTO metrics_snapshots
			(timestamp, as_of, currency, pair, ath, ath_date, factor, index_source,
			 from_month, to_month, adjusted_ath, spot, percent_to_go, milestone)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			now, m.AsOf.String(), c.Currency, c.Pair, c.ATH.String(), c.ATHDate.String(),
			c.Factor.String(), c.IndexSource, c.FromMonth.String(), c.ToMonth.String(),
			c.AdjustedATH.String(), c.Spot.String(), c.PercentToGo.String(), c.Milestone.String(),
		); err != nil {
			return fmt.Errorf("insert %s snapshot: %w", c.Currency, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordAlert(evt *AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO alerts
		(timestamp, currency, spot, adjusted_ath, percent_to_go)
		VALUES (?,?,?,?,?)`,
		time.Now().UnixNano(), evt.Currency, evt.Spot, evt.AdjustedATH, evt.PercentToGo,
	)
	return err
}

// Recent returns up to limit snapshots, newest first.
func (r *SQLiteRecorder) Recent(limit int) ([]Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT timestamp, as_of, currency, pair, ath, ath_date, factor,
			index_source, from_month, to_month, adjusted_ath, spot, percent_to_go, milestone
		FROM metrics_snapshots
		WHERE timestamp IN (SELECT DISTINCT timestamp FROM metrics_snapshots ORDER BY timestamp DESC LIMIT ?)
		ORDER BY timestamp DESC, id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			ts                                                  int64
			asOf, currency, pair, ath, athDate, factor, source string
			fromMonth, toMonth, adjusted, spot, toGo, milestone string
		)
		if err := rows.Scan(&ts, &asOf, &currency, &pair, &ath, &athDate, &factor,
			&source, &fromMonth, &toMonth, &adjusted, &spot, &toGo, &milestone); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}

		recorded := time.Unix(0, ts)
		if len(out) == 0 || !out[len(out)-1].RecordedAt.Equal(recorded) {
			d, err := civil.ParseDate(asOf)
			if err != nil {
				return nil, fmt.Errorf("snapshot as_of: %w", err)
			}
			out = append(out, Snapshot{RecordedAt: recorded, Metrics: &model.MetricsResult{AsOf: d}})
		}

		cm := model.CurrencyMetrics{Currency: currency, Pair: pair, IndexSource: source}
		for _, f := range []struct {
			col string
			src string
			dst *decimal.Decimal
		}{
			{"ath", ath, &cm.ATH},
			{"factor", factor, &cm.Factor},
			{"adjusted_ath", adjusted, &cm.AdjustedATH},
			{"spot", spot, &cm.Spot},
			{"percent_to_go", toGo, &cm.PercentToGo},
			{"milestone", milestone, &cm.Milestone},
		} {
			v, err := decimal.NewFromString(f.src)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s %s: %w", currency, f.col, err)
			}
			*f.dst = v
		}
		cm.ATHDate, _ = civil.ParseDate(athDate)
		cm.FromMonth, _ = model.ParseMonth(fromMonth)
		cm.ToMonth, _ = model.ParseMonth(toMonth)

		snap := out[len(out)-1].Metrics
		switch currency {
		case "USD":
			snap.USD = cm
		case "EUR":
			snap.EUR = cm
		}
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
