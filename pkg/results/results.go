// =============================================================================
// pkg/results/results.go - Run Record Export
// =============================================================================
//
// A RunRecord captures one benchmark run: the effective configuration, the
// per-worker results and the aggregate summary. Records can be exported as a
// JSON document (one run) or as CSV (one row per worker), and appended to a
// SQLite history database (history.go) for tracking runs over time.
//
// =============================================================================

package results

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"

	"github.com/karthikiyer56/table-access-bench/pkg/config"
	"github.com/karthikiyer56/table-access-bench/pkg/engine"
	"github.com/karthikiyer56/table-access-bench/pkg/stats"
)

// RunRecord is the exportable description of one completed run.
type RunRecord struct {
	StartedAt   time.Time             `json:"started_at"`
	Location    string                `json:"location"`
	IndicesSize uint32                `json:"indices_buffer_size"`
	TableSize   uint32                `json:"table_buffer_size"`
	CycleCount  uint32                `json:"cycle_count"`
	ThreadCount int                   `json:"thread_count"`
	Mmap        bool                  `json:"mmap"`
	Workers     []engine.WorkerResult `json:"workers"`
	Summary     *stats.Summary        `json:"summary"`
}

// NewRecord assembles a RunRecord from the run's parts.
func NewRecord(cfg *config.Config, startedAt time.Time, workers []engine.WorkerResult, summary *stats.Summary) RunRecord {
	return RunRecord{
		StartedAt:   startedAt.UTC(),
		Location:    cfg.LocationOfFiles,
		IndicesSize: cfg.IndicesSize,
		TableSize:   cfg.TableSize,
		CycleCount:  cfg.CycleCount,
		ThreadCount: cfg.WorkerCount,
		Mmap:        cfg.UseMmap,
		Workers:     workers,
		Summary:     summary,
	}
}

// WriteJSON writes the record as a single JSON document.
func WriteJSON(path string, rec RunRecord) error {
	data, err := sonnet.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode run record")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ReadJSON reads a record written by WriteJSON.
func ReadJSON(path string) (RunRecord, error) {
	var rec RunRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, errors.Wrapf(err, "failed to read %s", path)
	}
	if err := sonnet.Unmarshal(data, &rec); err != nil {
		return rec, errors.Wrapf(err, "failed to decode %s", path)
	}
	return rec, nil
}

// csvHeader is the column layout of WriteCSV output.
var csvHeader = []string{"started_at", "worker_id", "accesses", "elapsed_ms", "checksum", "pinned"}

// WriteCSV writes one row per worker.
func WriteCSV(path string, rec RunRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	started := rec.StartedAt.Format(time.RFC3339)
	for i := range rec.Workers {
		r := &rec.Workers[i]
		row := []string{
			started,
			strconv.Itoa(r.WorkerID),
			strconv.FormatUint(r.Accesses, 10),
			strconv.FormatFloat(r.ElapsedMs, 'f', 4, 64),
			strconv.FormatUint(uint64(r.Checksum), 10),
			strconv.FormatBool(r.Pinned),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write csv row for worker %d", r.WorkerID)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush csv")
}
