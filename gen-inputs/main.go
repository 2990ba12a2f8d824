// main.go
// =============================================================================
// gen-inputs - Benchmark Input Generator
// =============================================================================
//
// Writes a valid indices.bin / table.bin pair filled with seeded
// pseudo-random values, so a fresh checkout can produce its own fixtures
// instead of shipping a gigabyte of binary data. The same seed always
// produces the same files.
//
// USAGE:
// ======
// ./gen-inputs \
//     -l /path/to/output/dir \
//     -i 524288 \
//     -t 1073741824 \
//     -seed 1 \
//     -zstd
//
// Sizes are rounded up to the next power of two exactly like the benchmark
// rounds its buffer sizes, so generated files always satisfy the run they
// were sized for. With -zstd the files are written as indices.bin.zst /
// table.bin.zst, which the benchmark's read path decompresses transparently.
//
// =============================================================================

package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/karthikiyer56/table-access-bench/helpers"
	"github.com/karthikiyer56/table-access-bench/pkg/buffers"
	"github.com/karthikiyer56/table-access-bench/pkg/config"
	"github.com/karthikiyer56/table-access-bench/pkg/logging"
)

func main() {
	var (
		location    string
		indicesSize int64
		tableSize   int64
		seed        uint64
		useZstd     bool
	)

	flag.StringVar(&location, "l", "", "Output directory for the generated files (required)")
	flag.Int64Var(&indicesSize, "i", config.IndicesSizeDefault, "Indices file size in bytes (rounded up to a power of two, capped at 16 MiB)")
	flag.Int64Var(&tableSize, "t", config.TableSizeDefault, "Table file size in bytes (rounded up to a power of two, capped at 1 GiB)")
	flag.Uint64Var(&seed, "seed", 1, "PRNG seed; the same seed reproduces the same files")
	flag.BoolVar(&useZstd, "zstd", false, "Write zstd-compressed .zst files instead of plain ones")
	flag.Parse()

	log, err := logging.NewStreamLogger("", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%v\n", logging.ErrorPrefix, err)
		os.Exit(1)
	}

	if location == "" {
		log.Error("output directory not given")
		os.Exit(1)
	}

	indicesBytes, tableBytes, err := sizesFor(indicesSize, tableSize)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	log.Info("output directory : %s", location)
	log.Info("indices file size: %d (%s)", indicesBytes, helpers.FormatBytes(int64(indicesBytes)))
	log.Info("table file size : %d (%s)", tableBytes, helpers.FormatBytes(int64(tableBytes)))
	log.Info("seed : %d", seed)

	start := time.Now()
	if err := generate(location, indicesBytes, tableBytes, seed, useZstd); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	total := int64(indicesBytes) + int64(tableBytes)
	log.Info("wrote %s in %v (%s)", helpers.FormatBytes(total), time.Since(start).Round(time.Millisecond),
		helpers.FormatRate(total, time.Since(start)))
}

// sizesFor rounds the requested sizes the same way the benchmark's
// configuration does, so generated files fit the run they were sized for.
func sizesFor(indices, table int64) (uint32, uint32, error) {
	settings := config.Defaults()
	settings.Location = "."
	settings.IndicesSize = indices
	settings.TableSize = table
	cfg, err := settings.Finalize()
	if err != nil {
		return 0, 0, err
	}
	return cfg.IndicesSize, cfg.TableSize, nil
}

// generate writes both input files into dir. Values are written through the
// same raw views the loader reads through, so generator and loader agree on
// byte order by construction.
func generate(dir string, indicesBytes, tableBytes uint32, seed uint64, useZstd bool) error {
	if err := helpers.EnsureDir(dir); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	raw := make([]byte, indicesBytes)
	for i, words := 0, buffers.ViewUint32s(raw); i < len(words); i++ {
		words[i] = rng.Uint32()
	}
	if err := writeFile(filepath.Join(dir, buffers.IndicesFileName), raw, useZstd); err != nil {
		return err
	}

	raw = make([]byte, tableBytes)
	for i, words := 0, buffers.ViewUint16s(raw); i < len(words); i++ {
		words[i] = uint16(rng.Uint32())
	}
	return writeFile(filepath.Join(dir, buffers.TableFileName), raw, useZstd)
}

// writeFile writes data to path, zstd-compressing into path.zst when asked.
func writeFile(path string, data []byte, useZstd bool) error {
	if useZstd {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return errors.Wrap(err, "failed to create zstd encoder")
		}
		defer encoder.Close()
		data = encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
		path += buffers.ZstSuffix
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
