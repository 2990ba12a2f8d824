// =============================================================================
// pkg/engine/engine.go - Benchmark Engine (per-worker lookup loop)
// =============================================================================
//
// Each worker is one goroutine locked to its own OS thread and pinned to the
// logical CPU matching its worker id. The worker sweeps the shared indices
// buffer in batches of four and performs one dependent lookup into the shared
// table per batch slot.
//
// BEHAVIOR (per batch slot k):
//   mixed = (indices[pos+k] XOR indexMixer) + workerID
//   lane[k] = (lane[k] XOR table[mixed AND mask]) AND laneFolder
//   indices[pos+k] = mixed
//
// The four lanes are kept in separate locals on purpose: four independent
// dependency chains stop the CPU from collapsing consecutive lookups into one
// serialized stream, so the measurement reflects genuine random-access
// latency. Each lane's next step depends on its previous table value, which
// keeps the loads from being hoisted or dead-code eliminated. The writeback
// feeds the next cycle's reads, sustaining working-set pressure instead of
// re-touching values that have gone hot.
//
// THREAD SAFETY:
//   All workers read and write the whole indices buffer concurrently with no
//   synchronization. That race is the workload, not a bug: every access is a
//   bounded machine-word read or write, the final buffer contents are
//   explicitly meaningless, and nothing is ever decided from them. Locks or
//   atomics here would change the quantity being measured. The table is never
//   written. A worker's result record is written only by that worker and read
//   only after its join.
//
// =============================================================================

package engine

import (
	"runtime"
	"time"

	"github.com/karthikiyer56/table-access-bench/pkg/config"
	"github.com/karthikiyer56/table-access-bench/pkg/logging"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// laneSeed initializes every accumulator lane.
	laneSeed uint16 = 26849

	// laneFolder bounds each lane after folding in a table value.
	laneFolder uint16 = 41387

	// indexMixer scrambles raw index words before masking.
	indexMixer uint32 = uint32(laneSeed)<<16 | uint32(laneFolder)

	// batchWidth is the number of lanes processed per step.
	batchWidth = 4
)

// =============================================================================
// WorkerResult
// =============================================================================

// WorkerResult is one worker's output record. The orchestrator allocates it
// before the worker starts, the worker fills it exactly once at completion,
// and nothing reads it until the worker has been joined.
type WorkerResult struct {
	WorkerID  int     `json:"worker_id"`
	Accesses  uint64  `json:"accesses"`
	ElapsedMs float64 `json:"elapsed_ms"`
	Checksum  uint16  `json:"checksum"`
	Pinned    bool    `json:"pinned"`
}

// =============================================================================
// Worker
// =============================================================================

// worker carries everything one worker needs. The indices and table slices
// are shared with every other worker.
type worker struct {
	id      int
	cfg     *config.Config
	indices []uint32
	table   []uint16
	result  *WorkerResult
	done    chan struct{}
	log     logging.Logger
}

// run executes one worker from pinning through result writeback. Closing the
// done channel is the join point the orchestrator blocks on.
func (w *worker) run() {
	defer close(w.done)

	// The pinned thread never goes back to the scheduler pool; it dies with
	// the goroutine.
	runtime.LockOSThread()

	pinned := true
	if err := pinToCPU(w.id); err != nil {
		// Degrades validity, not correctness: the loop still runs, the
		// placement is just up to the scheduler.
		pinned = false
		w.log.Error("worker %d: pinning to cpu %d failed: %v", w.id, w.id, err)
	}

	start := time.Now()
	checksum := runCycles(uint32(w.id), w.indices, w.table, w.cfg.IndexMask, w.cfg.CycleCount)
	elapsed := time.Since(start)

	w.result.WorkerID = w.id
	w.result.Accesses = uint64(w.cfg.CycleCount) * uint64(len(w.indices))
	w.result.ElapsedMs = float64(elapsed) / float64(time.Millisecond)
	w.result.Checksum = checksum
	w.result.Pinned = pinned
}

// runCycles is the measured section: cycles full sweeps of the indices buffer
// in batches of four. Only full batches are processed; validation upstream
// guarantees the buffer length is a multiple of four. No allocation, no
// calls, no blocking inside.
func runCycles(id uint32, indices []uint32, table []uint16, mask, cycles uint32) uint16 {
	lane0 := laneSeed
	lane1 := laneSeed
	lane2 := laneSeed
	lane3 := laneSeed

	for cycle := uint32(0); cycle < cycles; cycle++ {
		for pos := 0; pos+batchWidth <= len(indices); pos += batchWidth {
			mixed0 := (indices[pos] ^ indexMixer) + id
			mixed1 := (indices[pos+1] ^ indexMixer) + id
			mixed2 := (indices[pos+2] ^ indexMixer) + id
			mixed3 := (indices[pos+3] ^ indexMixer) + id

			lane0 = (lane0 ^ table[mixed0&mask]) & laneFolder
			lane1 = (lane1 ^ table[mixed1&mask]) & laneFolder
			lane2 = (lane2 ^ table[mixed2&mask]) & laneFolder
			lane3 = (lane3 ^ table[mixed3&mask]) & laneFolder

			indices[pos] = mixed0
			indices[pos+1] = mixed1
			indices[pos+2] = mixed2
			indices[pos+3] = mixed3
		}
	}

	return lane0 ^ lane1 ^ lane2 ^ lane3
}
