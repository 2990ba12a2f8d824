// =============================================================================
// pkg/results/history.go - SQLite Run History
// =============================================================================
//
// An append-only log of run summaries in a single SQLite file, so repeated
// runs against the same machine can be compared over time without scraping
// stdout. One row per run; per-worker detail stays in the JSON/CSV exports.
//
// =============================================================================

package results

import (
	"database/sql"
	"time"

	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at     TEXT    NOT NULL,
	location       TEXT    NOT NULL,
	indices_bytes  INTEGER NOT NULL,
	table_bytes    INTEGER NOT NULL,
	cycle_count    INTEGER NOT NULL,
	thread_count   INTEGER NOT NULL,
	mmap           INTEGER NOT NULL,
	total_accesses INTEGER NOT NULL,
	clock_sum_ms   REAL    NOT NULL,
	clock_max_ms   REAL    NOT NULL,
	throughput_mbs REAL    NOT NULL,
	checksum       INTEGER NOT NULL
);`

// HistoryRow is one stored run summary.
type HistoryRow struct {
	ID            int64
	StartedAt     string
	Location      string
	IndicesBytes  int64
	TableBytes    int64
	CycleCount    int64
	ThreadCount   int64
	Mmap          bool
	TotalAccesses int64
	ClockSumMs    float64
	ClockMaxMs    float64
	ThroughputMBs float64
	Checksum      uint16
}

// History is a handle on the run-history database.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open results db %s", path)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create runs table")
	}
	return &History{db: db}, nil
}

// Append stores one run record's summary.
func (h *History) Append(rec RunRecord) error {
	if rec.Summary == nil {
		return errors.New("run record has no summary")
	}
	_, err := h.db.Exec(
		`INSERT INTO runs (started_at, location, indices_bytes, table_bytes,
			cycle_count, thread_count, mmap, total_accesses,
			clock_sum_ms, clock_max_ms, throughput_mbs, checksum)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.Format(time.RFC3339),
		rec.Location,
		int64(rec.IndicesSize),
		int64(rec.TableSize),
		int64(rec.CycleCount),
		int64(rec.ThreadCount),
		rec.Mmap,
		int64(rec.Summary.TotalAccesses),
		rec.Summary.ClockSumMs,
		rec.Summary.ClockMaxMs,
		rec.Summary.ThroughputMBs,
		int64(rec.Summary.Checksum),
	)
	return errors.Wrap(err, "failed to insert run")
}

// Recent returns up to limit stored runs, newest first.
func (h *History) Recent(limit int) ([]HistoryRow, error) {
	rows, err := h.db.Query(
		`SELECT id, started_at, location, indices_bytes, table_bytes,
			cycle_count, thread_count, mmap, total_accesses,
			clock_sum_ms, clock_max_ms, throughput_mbs, checksum
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var r HistoryRow
		var checksum int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Location, &r.IndicesBytes, &r.TableBytes,
			&r.CycleCount, &r.ThreadCount, &r.Mmap, &r.TotalAccesses,
			&r.ClockSumMs, &r.ClockMaxMs, &r.ThroughputMBs, &checksum); err != nil {
			return nil, errors.Wrap(err, "failed to scan run row")
		}
		r.Checksum = uint16(checksum)
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate runs")
}

// Close closes the database handle.
func (h *History) Close() error {
	return h.db.Close()
}
