// main.go
// =============================================================================
// table-access-bench - Main Entry Point
// =============================================================================
//
// Micro-benchmark for randomized, indirect memory lookups: N CPU-pinned
// workers sweep a shared indices buffer and chase it into a large lookup
// table, and the aggregate throughput figures characterize the memory
// subsystem (caches, TLBs, interconnect) rather than computing anything
// useful.
//
// USAGE:
// ======
// ./table-access-bench \
//     -l /path/to/input/files \
//     -i 524288 \
//     -t 1073741824 \
//     -c 4 \
//     -d 8
//
// Optional extras: -config profile.toml, -mmap, -log-file/-error-file
// mirrors, -results-json/-results-csv/-results-db exports, and
// -show-history N to print recent runs from the results database.
//
// The process exit status is the combined run checksum (low 8 bits) on
// success, 255 on any fatal error.
//
// =============================================================================

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/karthikiyer56/table-access-bench/helpers"
	"github.com/karthikiyer56/table-access-bench/pkg/buffers"
	"github.com/karthikiyer56/table-access-bench/pkg/config"
	"github.com/karthikiyer56/table-access-bench/pkg/engine"
	"github.com/karthikiyer56/table-access-bench/pkg/logging"
	"github.com/karthikiyer56/table-access-bench/pkg/results"
	"github.com/karthikiyer56/table-access-bench/pkg/stats"
)

// ExitFailure is the status for every fatal error path, matching the
// historical tool's -1.
const ExitFailure = 255

func main() {
	os.Exit(run(os.Args[0], os.Args[1:]))
}

// run is main minus os.Exit, so deferred cleanup actually runs.
func run(progname string, args []string) int {
	// =========================================================================
	// Parse Command-Line Arguments
	// =========================================================================
	var (
		location    string
		indicesSize int64
		tableSize   int64
		cycleCount  int64
		threadCount int
		profilePath string
		useMmap     bool
		logFile     string
		errorFile   string
		resultsJSON string
		resultsCSV  string
		resultsDB   string
		showHistory int
	)

	defaults := config.Defaults()
	fs := flag.NewFlagSet(progname, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			"%s%s [-l <location_of_input_files>] [-i <indices_buffer_size>] [-t <table_buffer_size>] [-c <cycle_count>] [-d <thread_count>] [-h]\n",
			logging.InfoPrefix, progname)
		fs.PrintDefaults()
	}

	fs.StringVar(&location, "l", "", "Directory holding indices.bin and table.bin (required)")
	fs.StringVar(&location, "location-of-files", "", "Alias for -l")
	fs.Int64Var(&indicesSize, "i", defaults.IndicesSize, "Indices buffer size in bytes (rounded up to a power of two, capped at 16 MiB)")
	fs.Int64Var(&indicesSize, "indices-buffer-size", defaults.IndicesSize, "Alias for -i")
	fs.Int64Var(&tableSize, "t", defaults.TableSize, "Table buffer size in bytes (rounded up to a power of two, capped at 1 GiB)")
	fs.Int64Var(&tableSize, "table-buffer-size", defaults.TableSize, "Alias for -t")
	fs.Int64Var(&cycleCount, "c", defaults.CycleCount, "Number of full sweeps over the indices buffer")
	fs.Int64Var(&cycleCount, "cycle-count", defaults.CycleCount, "Alias for -c")
	fs.IntVar(&threadCount, "d", defaults.ThreadCount, "Number of CPU-pinned worker threads (1..256)")
	fs.IntVar(&threadCount, "thread-count", defaults.ThreadCount, "Alias for -d")
	fs.StringVar(&profilePath, "config", "", "Optional TOML profile; explicit flags override it")
	fs.BoolVar(&useMmap, "mmap", false, "Load buffers with mmap + MADV_RANDOM instead of read")
	fs.StringVar(&logFile, "log-file", "", "Mirror informational output into this file")
	fs.StringVar(&errorFile, "error-file", "", "Mirror error output into this file")
	fs.StringVar(&resultsJSON, "results-json", "", "Write the run record as JSON to this path")
	fs.StringVar(&resultsCSV, "results-csv", "", "Write per-worker results as CSV to this path")
	fs.StringVar(&resultsDB, "results-db", "", "Append the run summary to this SQLite database")
	fs.IntVar(&showHistory, "show-history", 0, "Print the most recent N history rows and exit (needs -results-db)")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "%sfailed to parse command line arguments\n", logging.ErrorPrefix)
		return ExitFailure
	}

	// =========================================================================
	// Merge Defaults, Profile and Flags
	// =========================================================================
	//
	// Precedence, lowest first: built-in defaults, TOML profile, explicit
	// flags. fs.Visit reports only the flags the user actually set, which is
	// what lets the profile fill in everything else.
	settings := defaults
	if profilePath != "" {
		profile, err := config.LoadProfile(profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s%v\n", logging.ErrorPrefix, err)
			return ExitFailure
		}
		if err := settings.ApplyProfile(profile); err != nil {
			fmt.Fprintf(os.Stderr, "%s%v\n", logging.ErrorPrefix, err)
			return ExitFailure
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "l", "location-of-files":
			settings.Location = location
		case "i", "indices-buffer-size":
			settings.IndicesSize = indicesSize
		case "t", "table-buffer-size":
			settings.TableSize = tableSize
		case "c", "cycle-count":
			settings.CycleCount = cycleCount
		case "d", "thread-count":
			settings.ThreadCount = threadCount
		case "mmap":
			settings.UseMmap = useMmap
		case "log-file":
			settings.LogFile = logFile
		case "error-file":
			settings.ErrorFile = errorFile
		case "results-json":
			settings.ResultsJSON = resultsJSON
		case "results-csv":
			settings.ResultsCSV = resultsCSV
		case "results-db":
			settings.ResultsDB = resultsDB
		case "show-history":
			settings.ShowHistory = showHistory
		}
	})

	// =========================================================================
	// Logger
	// =========================================================================
	log, err := logging.NewStreamLogger(settings.LogFile, settings.ErrorFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%v\n", logging.ErrorPrefix, err)
		return ExitFailure
	}
	defer log.Close()

	// =========================================================================
	// History Query Mode
	// =========================================================================
	if settings.ShowHistory > 0 {
		if settings.ResultsDB == "" {
			log.Error("-show-history needs -results-db")
			return ExitFailure
		}
		if err := printHistory(log, settings.ResultsDB, settings.ShowHistory); err != nil {
			log.Error("%v", err)
			return ExitFailure
		}
		return 0
	}

	// =========================================================================
	// Finalize Configuration
	// =========================================================================
	cfg, err := settings.Finalize()
	if err != nil {
		log.Error("%v", err)
		return ExitFailure
	}

	reportConfig(log, cfg)

	if usable := engine.UsableCPUs(); cfg.WorkerCount > usable {
		// Pinning targets beyond the affinity set fail; those workers run
		// wherever the scheduler puts them, which weakens the measurement.
		log.Error("thread count %d exceeds the %d usable CPUs; results will include unpinned workers", cfg.WorkerCount, usable)
	}

	// =========================================================================
	// Load Input Buffers
	// =========================================================================
	bufs, err := buffers.Load(cfg.LocationOfFiles, cfg.IndicesSize, cfg.TableSize, cfg.UseMmap)
	if err != nil {
		log.Error("%v", err)
		return ExitFailure
	}
	defer bufs.Release()

	// =========================================================================
	// Run Workers and Aggregate
	// =========================================================================
	startedAt := time.Now()
	pool := engine.NewPool(log)
	workerResults, err := pool.Run(cfg, bufs.Indices, bufs.Table)
	if err != nil {
		log.Error("test failed: %v", err)
		return ExitFailure
	}

	summary, err := stats.Aggregate(workerResults)
	if err != nil {
		log.Error("%v", err)
		return ExitFailure
	}

	reportSummary(log, summary)

	// =========================================================================
	// Export Results
	// =========================================================================
	rec := results.NewRecord(cfg, startedAt, workerResults, summary)
	if cfg.ResultsJSON != "" {
		if err := results.WriteJSON(cfg.ResultsJSON, rec); err != nil {
			log.Error("%v", err)
			return ExitFailure
		}
	}
	if cfg.ResultsCSV != "" {
		if err := results.WriteCSV(cfg.ResultsCSV, rec); err != nil {
			log.Error("%v", err)
			return ExitFailure
		}
	}
	if cfg.ResultsDB != "" {
		if err := appendHistory(cfg.ResultsDB, rec); err != nil {
			log.Error("%v", err)
			return ExitFailure
		}
	}

	log.Sync()
	return int(summary.Checksum & 0xFF)
}

// appendHistory stores the run summary in the results database.
func appendHistory(path string, rec results.RunRecord) error {
	h, err := results.OpenHistory(path)
	if err != nil {
		return err
	}
	defer h.Close()
	return h.Append(rec)
}

// printHistory lists the most recent runs from the results database.
func printHistory(log logging.Logger, path string, limit int) error {
	h, err := results.OpenHistory(path)
	if err != nil {
		return err
	}
	defer h.Close()

	rows, err := h.Recent(limit)
	if err != nil {
		return err
	}
	log.Info("run history (%d of last %d requested):", len(rows), limit)
	for _, r := range rows {
		log.Info("#%d %s threads=%d cycles=%d indices=%s table=%s accesses=%s clock=%.4f ms max=%.4f ms throughput=%.4f MB/s value=%d",
			r.ID, r.StartedAt, r.ThreadCount, r.CycleCount,
			helpers.FormatBytes(r.IndicesBytes), helpers.FormatBytes(r.TableBytes),
			helpers.FormatNumber(r.TotalAccesses), r.ClockSumMs, r.ClockMaxMs, r.ThroughputMBs, r.Checksum)
	}
	return nil
}
