package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/karthikiyer56/table-access-bench/pkg/config"
	"github.com/karthikiyer56/table-access-bench/pkg/engine"
	"github.com/karthikiyer56/table-access-bench/pkg/logging"
	"github.com/karthikiyer56/table-access-bench/pkg/stats"
)

func TestReportConfig(t *testing.T) {
	var out bytes.Buffer
	log := logging.NewWriterLogger(&out, new(bytes.Buffer))

	cfg := &config.Config{
		LocationOfFiles: "/data/inputs",
		IndicesSize:     524288,
		TableSize:       1073741824,
		CycleCount:      4,
		WorkerCount:     8,
		IndexMask:       0x1FFFFFFF,
	}
	reportConfig(log, cfg)

	for _, want := range []string{
		"I location of files : /data/inputs\n",
		"I indices buffer size: 524288\n",
		"I table_buffer_size : 1073741824\n",
		"I table_index_mask : 0x1FFFFFFF\n",
		"I cycle count : 4\n",
		"I thread count : 8\n",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("config echo missing %q in:\n%s", want, out.String())
		}
	}
}

func TestReportSummary(t *testing.T) {
	results := []engine.WorkerResult{
		{WorkerID: 0, Accesses: 1000, ElapsedMs: 2.0, Checksum: 0x0101, Pinned: true},
		{WorkerID: 1, Accesses: 3000, ElapsedMs: 4.0, Checksum: 0x0202, Pinned: true},
	}
	summary, err := stats.Aggregate(results)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	var out bytes.Buffer
	log := logging.NewWriterLogger(&out, new(bytes.Buffer))
	reportSummary(log, summary)

	got := out.String()
	for _, want := range []string{
		"I table accesses: 4000\n",
		"I clockdiff: 6.0000 ms\n",
		"I data_read_written: 8000.0000\n",
		"I throughput: 1.3333 MB/s\n",
		"AVG per thread 0.6667 MT/s (a=2000 dt=3.0000)",
		"AVG all threads 0.6667 MT/s (a=4000 dt=6.0000)",
		"1.0000 MT/s (a=4000 dt=4.0000)",
		"THR sum 1.2500 MT/s",
		"I value: 771\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "unpinned workers") {
		t.Errorf("unexpected unpinned line for a fully pinned run:\n%s", got)
	}

	summary.Unpinned = 1
	out.Reset()
	reportSummary(log, summary)
	if !strings.Contains(out.String(), "I unpinned workers: 1\n") {
		t.Errorf("missing unpinned line:\n%s", out.String())
	}
}
