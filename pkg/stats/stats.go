// =============================================================================
// pkg/stats/stats.go - Run Aggregation
// =============================================================================
//
// Turns the per-worker result records of a completed run into the summary the
// report prints. Parallel throughput has no single honest number, so four
// different readings are computed and all four are reported:
//
//   - mean accesses over mean elapsed (the "typical worker")
//   - total accesses over summed elapsed (cumulative thread-time)
//   - total accesses over max elapsed (wall-clock: the run ends when the
//     slowest worker does)
//   - sum of each worker's individual throughput
//
// Times are milliseconds, throughput is MB/s and millions of table accesses
// per second (MT/s). The data volume counts the 2 bytes each access reads
// from the table.
//
// =============================================================================

package stats

import (
	"github.com/pkg/errors"

	"github.com/karthikiyer56/table-access-bench/pkg/engine"
)

// ErrNoResults reports aggregation over an empty result set. Worker counts
// are validated long before a run, so hitting this means a bug upstream.
var ErrNoResults = errors.New("no worker results to aggregate")

// Summary is the aggregate view of one successful run.
type Summary struct {
	Workers       int     `json:"workers"`
	TotalAccesses uint64  `json:"total_accesses"`
	AvgAccesses   uint64  `json:"avg_accesses"` // integer mean, truncated
	ClockSumMs    float64 `json:"clock_sum_ms"`
	ClockMaxMs    float64 `json:"clock_max_ms"`
	ClockAvgMs    float64 `json:"clock_avg_ms"`
	DataBytes     float64 `json:"data_bytes"`

	ThroughputMBs float64 `json:"throughput_mbs"`
	MTsAvgWorker  float64 `json:"mts_avg_worker"`  // avg accesses / avg elapsed
	MTsAllWorkers float64 `json:"mts_all_workers"` // total accesses / summed elapsed
	MTsWallClock  float64 `json:"mts_wall_clock"`  // total accesses / max elapsed
	MTsWorkerSum  float64 `json:"mts_worker_sum"`  // sum of per-worker throughput

	// Checksum is the 16-bit wrapping sum of every worker's checksum. It
	// exists to pin the lookup results into the process exit status, not to
	// mean anything.
	Checksum uint16 `json:"checksum"`

	// Unpinned counts workers that ran without CPU affinity. Nonzero values
	// weaken the result (placement was up to the scheduler).
	Unpinned int `json:"unpinned"`
}

// Aggregate folds per-worker results into a Summary. The result set must not
// be empty. Elapsed times of zero cannot divide: any figure whose divisor is
// not positive is reported as 0.
func Aggregate(results []engine.WorkerResult) (*Summary, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	s := &Summary{Workers: len(results)}
	for i := range results {
		r := &results[i]
		s.TotalAccesses += r.Accesses
		s.ClockSumMs += r.ElapsedMs
		if r.ElapsedMs > s.ClockMaxMs {
			s.ClockMaxMs = r.ElapsedMs
		}
		s.Checksum += r.Checksum
		s.MTsWorkerSum += safeDiv(float64(r.Accesses)/1000.0, r.ElapsedMs)
		if !r.Pinned {
			s.Unpinned++
		}
	}

	s.AvgAccesses = s.TotalAccesses / uint64(len(results))
	s.ClockAvgMs = s.ClockSumMs / float64(len(results))
	s.DataBytes = float64(s.TotalAccesses) * 2

	s.ThroughputMBs = safeDiv(s.DataBytes/1000.0, s.ClockSumMs)
	s.MTsAvgWorker = safeDiv(float64(s.AvgAccesses)/1000.0, s.ClockAvgMs)
	s.MTsAllWorkers = safeDiv(float64(s.TotalAccesses)/1000.0, s.ClockSumMs)
	s.MTsWallClock = safeDiv(float64(s.TotalAccesses)/1000.0, s.ClockMaxMs)

	return s, nil
}

// safeDiv returns num/den, or 0 when the divisor is not positive.
func safeDiv(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
