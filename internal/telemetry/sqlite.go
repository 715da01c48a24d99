package telemetry

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder appends outcomes to a local SQLite file.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
// Use ":memory:" for a throwaway database.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("telemetry: sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetch_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			resolution  TEXT NOT NULL,
			from_ts     INTEGER,
			to_ts       INTEGER,
			bars        INTEGER,
			reason      TEXT NOT NULL,
			elapsed_ms  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_ts ON fetch_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_symbol ON fetch_events(symbol, resolution)`,

		`CREATE TABLE IF NOT EXISTS search_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			query       TEXT NOT NULL,
			results     INTEGER,
			reason      TEXT NOT NULL,
			elapsed_ms  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_ts ON search_events(timestamp)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordFetch(evt *FetchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO fetch_events
		(timestamp, symbol, resolution, from_ts, to_ts, bars, reason, elapsed_ms)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.Symbol, evt.Resolution,
		evt.From.Unix(), evt.To.Unix(), evt.Bars,
		string(evt.Reason), evt.Elapsed.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) RecordSearch(evt *SearchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO search_events
		(timestamp, query, results, reason, elapsed_ms)
		VALUES (?,?,?,?,?)`,
		r.now().Unix(), evt.Query, evt.Results,
		string(evt.Reason), evt.Elapsed.Milliseconds(),
	)
	return err
}

// ReasonCounts returns how many fetches ended with each reason.
func (r *SQLiteRecorder) ReasonCounts() (map[Reason]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT reason, COUNT(*) FROM fetch_events GROUP BY reason`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Reason]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[Reason(reason)] = n
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("telemetry: closing sqlite recorder")
	return r.db.Close()
}
