// Package report persists periodic statistics snapshots for offline
// analysis of a bench run: one row per report tick and metric, into a
// SQLite file and/or a CSV file.
package report

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"firestige.xyz/pulse/internal/stats"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at  TEXT    NOT NULL,
	label     TEXT    NOT NULL,
	count     INTEGER NOT NULL,
	min_us    REAL, max_us REAL, mean_us REAL, stdev_us REAL,
	p50_us    REAL, p95_us REAL, p99_us REAL, p999_us REAL, p9999_us REAL
);`

// Recorder writes snapshot rows. Main-thread use only (the stats
// report tick).
type Recorder struct {
	db     *sql.DB
	insert *sql.Stmt
	csv    *os.File
}

// Open creates the recorder. Either dbPath or csvPath may be empty to
// disable that output; both empty yields a no-op recorder.
func Open(dbPath, csvPath string) (*Recorder, error) {
	r := &Recorder{}

	if dbPath != "" {
		db, err := sql.Open("sqlite3", dbPath)
		if err != nil {
			return nil, fmt.Errorf("recorder open %s: %w", dbPath, err)
		}
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("recorder schema: %w", err)
		}
		stmt, err := db.Prepare(`INSERT INTO snapshots
			(taken_at, label, count, min_us, max_us, mean_us, stdev_us,
			 p50_us, p95_us, p99_us, p999_us, p9999_us)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("recorder prepare: %w", err)
		}
		r.db = db
		r.insert = stmt
	}

	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("recorder create %s: %w", csvPath, err)
		}
		if _, err := f.WriteString(stats.CSVHeader()); err != nil {
			r.Close()
			return nil, fmt.Errorf("recorder csv header: %w", err)
		}
		r.csv = f
	}

	return r, nil
}

// Record appends one snapshot row per output.
func (r *Recorder) Record(label string, res stats.Result) error {
	if r.insert != nil {
		_, err := r.insert.Exec(
			time.Now().UTC().Format(time.RFC3339Nano), label, res.Count,
			res.MinUs, res.MaxUs, res.MeanUs, res.StdevUs,
			res.P50Us, res.P95Us, res.P99Us, res.P999Us, res.P9999Us)
		if err != nil {
			return fmt.Errorf("recorder insert: %w", err)
		}
	}
	if r.csv != nil {
		if _, err := r.csv.WriteString(res.CSV(label)); err != nil {
			return fmt.Errorf("recorder csv write: %w", err)
		}
	}
	return nil
}

// Close releases both outputs. Safe on a partially opened recorder.
func (r *Recorder) Close() {
	if r.insert != nil {
		r.insert.Close()
		r.insert = nil
	}
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
	if r.csv != nil {
		r.csv.Close()
		r.csv = nil
	}
}
