// report.go
// =============================================================================
// table-access-bench - Report Output
// =============================================================================
//
// The report keeps the historical tool's exact line shapes so existing
// scrapers of its output keep working: a configuration echo before the run,
// then the totals, the four throughput readings on one "transactions:" line,
// and the final "value:" checksum that doubles as the exit status.
//
// =============================================================================

package main

import (
	"github.com/karthikiyer56/table-access-bench/pkg/config"
	"github.com/karthikiyer56/table-access-bench/pkg/logging"
	"github.com/karthikiyer56/table-access-bench/pkg/stats"
)

// reportConfig echoes the effective configuration before the run starts.
func reportConfig(log logging.Logger, cfg *config.Config) {
	log.Info("location of files : %s", cfg.LocationOfFiles)
	log.Info("indices buffer size: %d", cfg.IndicesSize)
	log.Info("table_buffer_size : %d", cfg.TableSize)
	log.Info("table_index_mask : 0x%08X", cfg.IndexMask)
	log.Info("cycle count : %d", cfg.CycleCount)
	log.Info("thread count : %d", cfg.WorkerCount)
}

// reportSummary prints the aggregate figures for a successful run.
func reportSummary(log logging.Logger, s *stats.Summary) {
	log.Info("table accesses: %d", s.TotalAccesses)
	log.Info("clockdiff: %.4f ms", s.ClockSumMs)
	log.Info("data_read_written: %.4f", s.DataBytes)
	log.Info("throughput: %.4f MB/s", s.ThroughputMBs)
	log.Info("transactions: AVG per thread %.4f MT/s (a=%d dt=%.4f), AVG all threads %.4f MT/s (a=%d dt=%.4f), %.4f MT/s (a=%d dt=%.4f) THR sum %.4f MT/s",
		s.MTsAvgWorker, s.AvgAccesses, s.ClockAvgMs,
		s.MTsAllWorkers, s.TotalAccesses, s.ClockSumMs,
		s.MTsWallClock, s.TotalAccesses, s.ClockMaxMs,
		s.MTsWorkerSum)
	if s.Unpinned > 0 {
		log.Info("unpinned workers: %d", s.Unpinned)
	}
	log.Info("value: %d", s.Checksum)
}
