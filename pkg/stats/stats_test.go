package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/karthikiyer56/table-access-bench/pkg/engine"
)

func TestAggregateEmpty(t *testing.T) {
	if _, err := Aggregate(nil); !errors.Is(err, ErrNoResults) {
		t.Fatalf("Aggregate(nil): got %v, want ErrNoResults", err)
	}
	if _, err := Aggregate([]engine.WorkerResult{}); !errors.Is(err, ErrNoResults) {
		t.Fatalf("Aggregate(empty): got %v, want ErrNoResults", err)
	}
}

func TestAggregateTwoWorkers(t *testing.T) {
	results := []engine.WorkerResult{
		{WorkerID: 0, Accesses: 1000, ElapsedMs: 2.0, Checksum: 0x0011, Pinned: true},
		{WorkerID: 1, Accesses: 3000, ElapsedMs: 4.0, Checksum: 0x0022, Pinned: true},
	}

	s, err := Aggregate(results)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if s.Workers != 2 {
		t.Errorf("Workers = %d, want 2", s.Workers)
	}
	if s.TotalAccesses != 4000 {
		t.Errorf("TotalAccesses = %d, want 4000", s.TotalAccesses)
	}
	if s.AvgAccesses != 2000 {
		t.Errorf("AvgAccesses = %d, want 2000", s.AvgAccesses)
	}
	if s.ClockSumMs != 6.0 {
		t.Errorf("ClockSumMs = %f, want 6", s.ClockSumMs)
	}
	if s.ClockMaxMs != 4.0 {
		t.Errorf("ClockMaxMs = %f, want 4", s.ClockMaxMs)
	}
	if s.ClockAvgMs != 3.0 {
		t.Errorf("ClockAvgMs = %f, want 3", s.ClockAvgMs)
	}
	if s.DataBytes != 8000 {
		t.Errorf("DataBytes = %f, want 8000 (2 bytes per access)", s.DataBytes)
	}
	if s.Checksum != 0x0033 {
		t.Errorf("Checksum = %#04x, want 0x0033", s.Checksum)
	}
	if s.Unpinned != 0 {
		t.Errorf("Unpinned = %d, want 0", s.Unpinned)
	}

	approx := func(name string, got, want float64) {
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	// avg accesses / avg elapsed: (2000/1000) / 3
	approx("MTsAvgWorker", s.MTsAvgWorker, 2.0/3.0)
	// total / summed elapsed: (4000/1000) / 6
	approx("MTsAllWorkers", s.MTsAllWorkers, 4.0/6.0)
	// total / max elapsed: (4000/1000) / 4
	approx("MTsWallClock", s.MTsWallClock, 1.0)
	// per-worker sum: (1000/1000)/2 + (3000/1000)/4
	approx("MTsWorkerSum", s.MTsWorkerSum, 0.5+0.75)
	// MB/s: (8000/1000) / 6
	approx("ThroughputMBs", s.ThroughputMBs, 8.0/6.0)
}

func TestAggregateChecksumWraps(t *testing.T) {
	results := []engine.WorkerResult{
		{Accesses: 1, ElapsedMs: 1, Checksum: 0x8000, Pinned: true},
		{Accesses: 1, ElapsedMs: 1, Checksum: 0x8000, Pinned: true},
	}
	s, err := Aggregate(results)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if s.Checksum != 0 {
		t.Errorf("Checksum = %#04x, want 0 (16-bit wraparound)", s.Checksum)
	}

	results[1].Checksum = 0xFFFF
	results[0].Checksum = 0x0002
	s, err = Aggregate(results)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if s.Checksum != 1 {
		t.Errorf("Checksum = %#04x, want 1", s.Checksum)
	}
}

func TestAggregateZeroElapsedGuard(t *testing.T) {
	results := []engine.WorkerResult{
		{Accesses: 0, ElapsedMs: 0, Checksum: 0, Pinned: true},
	}
	s, err := Aggregate(results)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	for name, v := range map[string]float64{
		"ThroughputMBs": s.ThroughputMBs,
		"MTsAvgWorker":  s.MTsAvgWorker,
		"MTsAllWorkers": s.MTsAllWorkers,
		"MTsWallClock":  s.MTsWallClock,
		"MTsWorkerSum":  s.MTsWorkerSum,
	} {
		if v != 0 {
			t.Errorf("%s = %v with zero elapsed, want 0", name, v)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, must never be NaN/Inf", name, v)
		}
	}
}

func TestAggregateCountsUnpinned(t *testing.T) {
	results := []engine.WorkerResult{
		{Accesses: 1, ElapsedMs: 1, Pinned: true},
		{Accesses: 1, ElapsedMs: 1, Pinned: false},
		{Accesses: 1, ElapsedMs: 1, Pinned: false},
	}
	s, err := Aggregate(results)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if s.Unpinned != 2 {
		t.Errorf("Unpinned = %d, want 2", s.Unpinned)
	}
}
