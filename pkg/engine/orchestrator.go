// =============================================================================
// pkg/engine/orchestrator.go - Worker Lifecycle
// =============================================================================
//
// The orchestrator runs a flat, fixed pool: one worker per configured thread,
// created sequentially with worker id == creation order == CPU affinity
// target. There is no reuse, no work stealing and no queue.
//
// Creation is a two-phase, all-or-nothing protocol:
//
//   Phase 1: attempt to start workers up to the requested count; stop at the
//            first failure.
//   Phase 2: join every worker that did start, in creation order, whatever
//            happened in phase 1. Resources are always reclaimed.
//
// Only after phase 2 does the verdict fall: a shortfall fails the whole run
// and the partial results are discarded. A report over fewer workers than
// requested would measure a different contention level than the one asked
// for, so a partial run is worth less than a clear failure.
//
// The per-worker done channel is the only synchronization between a worker
// and the orchestrator; a worker's result is read only after its join.
//
// =============================================================================

package engine

import (
	"fmt"

	"github.com/karthikiyer56/table-access-bench/pkg/config"
	"github.com/karthikiyer56/table-access-bench/pkg/logging"
)

// ShortfallError reports that fewer workers started than the run requested.
type ShortfallError struct {
	Created   int
	Requested int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("started only %d of %d workers", e.Created, e.Requested)
}

// Pool orchestrates one run's workers over the shared buffers.
type Pool struct {
	log logging.Logger

	// launch starts one constructed worker. Injectable so partial-creation
	// behavior is testable; the production launcher starts a goroutine and
	// cannot fail.
	launch func(*worker) error
}

// NewPool returns a Pool logging through log.
func NewPool(log logging.Logger) *Pool {
	return &Pool{
		log:    log,
		launch: startWorker,
	}
}

func startWorker(w *worker) error {
	go w.run()
	return nil
}

// Run executes cfg.WorkerCount workers against the shared buffers and returns
// their results. On a creation shortfall every started worker is still joined
// before the run is failed with a ShortfallError; no results are returned in
// that case.
func (p *Pool) Run(cfg *config.Config, indices []uint32, table []uint16) ([]WorkerResult, error) {
	requested := cfg.WorkerCount
	results := make([]WorkerResult, requested)
	workers := make([]*worker, 0, requested)

	for id := 0; id < requested; id++ {
		w := &worker{
			id:      id,
			cfg:     cfg,
			indices: indices,
			table:   table,
			result:  &results[id],
			done:    make(chan struct{}),
			log:     p.log,
		}
		if err := p.launch(w); err != nil {
			p.log.Error("failed to start worker %d: %v", id, err)
			break
		}
		workers = append(workers, w)
	}

	for _, w := range workers {
		<-w.done
	}

	if len(workers) < requested {
		return nil, &ShortfallError{Created: len(workers), Requested: requested}
	}
	return results, nil
}
