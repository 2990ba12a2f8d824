package engine

import (
	"errors"
	"io"
	"testing"

	"github.com/karthikiyer56/table-access-bench/pkg/config"
	"github.com/karthikiyer56/table-access-bench/pkg/logging"
)

func testLogger() logging.Logger {
	return logging.NewWriterLogger(io.Discard, io.Discard)
}

func testConfig(workers int, cycles, mask uint32) *config.Config {
	return &config.Config{
		WorkerCount: workers,
		CycleCount:  cycles,
		IndexMask:   mask,
	}
}

// Hand-computed single-worker run: worker 0, one cycle, indices {0,1,1,1},
// table {0x1111, 0x2222}, mask 1.
//
//   mixed = idx ^ 0x68E1A1AB, so idx 0 hits table[1] and idx 1 hits table[0]
//   lane from table[1]: (0x68E1 ^ 0x2222) & 0xA1AB = 0x0083
//   lane from table[0]: (0x68E1 ^ 0x1111) & 0xA1AB = 0x21A0
//   checksum = 0x0083 ^ 0x21A0 ^ 0x21A0 ^ 0x21A0 = 0x2123
func TestSingleWorkerDeterministic(t *testing.T) {
	indices := []uint32{0, 1, 1, 1}
	table := []uint16{0x1111, 0x2222}

	pool := NewPool(testLogger())
	results, err := pool.Run(testConfig(1, 1, 1), indices, table)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.Accesses != 4 {
		t.Errorf("Accesses = %d, want 4", r.Accesses)
	}
	if r.Checksum != 0x2123 {
		t.Errorf("Checksum = %#04x, want 0x2123", r.Checksum)
	}

	// The writeback is equally deterministic with one worker.
	want := []uint32{0x68E1A1AB, 0x68E1A1AA, 0x68E1A1AA, 0x68E1A1AA}
	for i := range want {
		if indices[i] != want[i] {
			t.Errorf("indices[%d] = %#08x, want %#08x", i, indices[i], want[i])
		}
	}
}

// referenceChecksum recomputes a worker's checksum with a plain per-element
// loop, as a cross-check on the batched implementation. It does not touch
// the caller's indices.
func referenceChecksum(id uint32, indices []uint32, table []uint16, mask, cycles uint32) uint16 {
	scratch := make([]uint32, len(indices))
	copy(scratch, indices)
	lanes := [batchWidth]uint16{laneSeed, laneSeed, laneSeed, laneSeed}
	for cycle := uint32(0); cycle < cycles; cycle++ {
		for pos := range scratch {
			mixed := (scratch[pos] ^ indexMixer) + id
			lanes[pos%batchWidth] = (lanes[pos%batchWidth] ^ table[mixed&mask]) & laneFolder
			scratch[pos] = mixed
		}
	}
	return lanes[0] ^ lanes[1] ^ lanes[2] ^ lanes[3]
}

func TestRunCyclesMatchesReference(t *testing.T) {
	indices := []uint32{7, 1024, 99, 0xFFFFFFFF, 3, 3, 2048, 12345}
	table := make([]uint16, 16)
	for i := range table {
		table[i] = uint16(i * 257)
	}
	mask := uint32(len(table) - 1)

	for _, c := range []struct {
		id     uint32
		cycles uint32
	}{
		{0, 1}, {0, 3}, {1, 1}, {5, 4},
	} {
		scratch := make([]uint32, len(indices))
		copy(scratch, indices)
		got := runCycles(c.id, scratch, table, mask, c.cycles)
		want := referenceChecksum(c.id, indices, table, mask, c.cycles)
		if got != want {
			t.Errorf("runCycles(id=%d, cycles=%d) = %#04x, want %#04x", c.id, c.cycles, got, want)
		}
	}
}

func TestTotalAccesses(t *testing.T) {
	const workers = 3
	const cycles = 5
	indices := make([]uint32, 64)
	table := make([]uint16, 8)

	pool := NewPool(testLogger())
	results, err := pool.Run(testConfig(workers, cycles, uint32(len(table)-1)), indices, table)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var total uint64
	for i, r := range results {
		if r.WorkerID != i {
			t.Errorf("results[%d].WorkerID = %d", i, r.WorkerID)
		}
		if r.Accesses != cycles*uint64(len(indices)) {
			t.Errorf("worker %d: Accesses = %d, want %d", i, r.Accesses, cycles*len(indices))
		}
		if r.ElapsedMs < 0 {
			t.Errorf("worker %d: negative elapsed %f", i, r.ElapsedMs)
		}
		total += r.Accesses
	}
	if want := uint64(workers) * cycles * uint64(len(indices)); total != want {
		t.Errorf("total accesses = %d, want %d", total, want)
	}
}

func TestZeroCyclesDoNoWork(t *testing.T) {
	indices := []uint32{1, 2, 3, 4}
	table := []uint16{9, 9}
	before := make([]uint32, len(indices))
	copy(before, indices)

	pool := NewPool(testLogger())
	results, err := pool.Run(testConfig(1, 0, 1), indices, table)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0].Accesses != 0 {
		t.Errorf("Accesses = %d, want 0", results[0].Accesses)
	}
	// Zero cycles means zero sweeps: the lanes never fold a table value, so
	// the checksum is the four seeds XORed together, which cancels to 0.
	if results[0].Checksum != 0 {
		t.Errorf("Checksum = %#04x, want 0", results[0].Checksum)
	}
	for i := range before {
		if indices[i] != before[i] {
			t.Errorf("indices[%d] changed with zero cycles", i)
		}
	}
}

func TestShortfallFailsRunAndJoinsEverything(t *testing.T) {
	const requested = 4
	const failAt = 2

	indices := make([]uint32, 16)
	table := make([]uint16, 4)

	var launched []*worker
	pool := NewPool(testLogger())
	pool.launch = func(w *worker) error {
		if len(launched) == failAt {
			return errors.New("no more threads")
		}
		launched = append(launched, w)
		return startWorker(w)
	}

	results, err := pool.Run(testConfig(requested, 1, uint32(len(table)-1)), indices, table)
	if results != nil {
		t.Errorf("shortfall run returned results: %v", results)
	}

	var shortfall *ShortfallError
	if !errors.As(err, &shortfall) {
		t.Fatalf("got %v, want ShortfallError", err)
	}
	if shortfall.Created != failAt || shortfall.Requested != requested {
		t.Errorf("ShortfallError = %+v, want Created=%d Requested=%d", shortfall, failAt, requested)
	}

	// Run must not return before every started worker is joined.
	if len(launched) != failAt {
		t.Fatalf("launched %d workers, want %d", len(launched), failAt)
	}
	for i, w := range launched {
		select {
		case <-w.done:
		default:
			t.Errorf("worker %d was not joined", i)
		}
		if w.result.Accesses != uint64(len(indices)) {
			t.Errorf("worker %d did not complete: accesses=%d", i, w.result.Accesses)
		}
	}
}

func TestFirstCreationFailure(t *testing.T) {
	pool := NewPool(testLogger())
	pool.launch = func(*worker) error { return errors.New("no threads at all") }

	_, err := pool.Run(testConfig(2, 1, 0), make([]uint32, 4), make([]uint16, 1))
	var shortfall *ShortfallError
	if !errors.As(err, &shortfall) {
		t.Fatalf("got %v, want ShortfallError", err)
	}
	if shortfall.Created != 0 || shortfall.Requested != 2 {
		t.Errorf("ShortfallError = %+v, want Created=0 Requested=2", shortfall)
	}
}

func TestUsableCPUs(t *testing.T) {
	if n := UsableCPUs(); n < 1 {
		t.Errorf("UsableCPUs() = %d, want at least 1", n)
	}
}

func BenchmarkRunCycles(b *testing.B) {
	indices := make([]uint32, 4096)
	for i := range indices {
		indices[i] = uint32(i) * 2654435761
	}
	table := make([]uint16, 1<<16)
	for i := range table {
		table[i] = uint16(i)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runCycles(0, indices, table, uint32(len(table)-1), 1)
	}
}
