// =============================================================================
// pkg/config/config.go - Run Configuration
// =============================================================================
//
// Configuration comes from three layers, lowest precedence first:
//
//   1. Built-in defaults (the historical tool defaults)
//   2. An optional TOML profile (-config)
//   3. Explicit command-line flags
//
// The merged Settings are then finalized: buffer sizes are rounded up to the
// next power of two and capped, the table index mask is derived, and the
// validation rules below are applied. A finalized Config is immutable for the
// duration of the run.
//
// VALIDATION:
//   - location of files is required
//   - cycle count must be positive
//   - thread count must be in [1, 256]; counts beyond the maximum are
//     rejected, never truncated
//   - the indices buffer must hold at least one batch of 4 entries (16 bytes)
//   - the table must hold at least one element (2 bytes)
//
// =============================================================================

package config

import (
	"math"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/karthikiyer56/table-access-bench/helpers"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// IndicesSizeDefault is the default indices buffer size in bytes (512 KiB).
	IndicesSizeDefault = 512 * 1024

	// IndicesSizeMax caps the indices buffer at 16 MiB.
	IndicesSizeMax = 16 * 1024 * 1024

	// IndicesSizeMin is one batch of four 32-bit entries.
	IndicesSizeMin = 16

	// TableSizeDefault is the default lookup table size in bytes (1 GiB).
	TableSizeDefault = 1024 * 1024 * 1024

	// TableSizeMax caps the lookup table at 1 GiB.
	TableSizeMax = 1024 * 1024 * 1024

	// TableSizeMin is a single 16-bit table element.
	TableSizeMin = 2

	// WorkersMax is the hard limit on concurrent workers.
	WorkersMax = 256

	// CycleCountDefault is the default number of passes over the indices.
	CycleCountDefault = 1

	// WorkersDefault is the default worker count.
	WorkersDefault = 1
)

// Sentinel errors for the validation failures callers branch on.
var (
	ErrMissingLocation = errors.New("location of files not given")
	ErrBadCycleCount   = errors.New("invalid cycle count")
	ErrBadWorkerCount  = errors.New("invalid thread count")
	ErrBadBufferSize   = errors.New("invalid buffer size")
)

// =============================================================================
// Settings (raw, pre-validation)
// =============================================================================

// Settings holds the raw, unvalidated inputs gathered from defaults, an
// optional TOML profile, and flags. Finalize turns them into a Config.
type Settings struct {
	Location    string
	IndicesSize int64
	TableSize   int64
	CycleCount  int64
	ThreadCount int
	UseMmap     bool

	LogFile     string
	ErrorFile   string
	ResultsJSON string
	ResultsCSV  string
	ResultsDB   string
	ShowHistory int
}

// Defaults returns the built-in settings layer.
func Defaults() Settings {
	return Settings{
		IndicesSize: IndicesSizeDefault,
		TableSize:   TableSizeDefault,
		CycleCount:  CycleCountDefault,
		ThreadCount: WorkersDefault,
	}
}

// =============================================================================
// TOML Profile
// =============================================================================

// Profile mirrors the TOML profile file layout. Size fields accept plain byte
// counts or KiB/MiB/GiB suffixes.
type Profile struct {
	Buffers struct {
		IndicesSize string `toml:"indices_size"`
		TableSize   string `toml:"table_size"`
	} `toml:"buffers"`

	Run struct {
		CycleCount  int64 `toml:"cycle_count"`
		ThreadCount int   `toml:"thread_count"`
		Mmap        bool  `toml:"mmap"`
	} `toml:"run"`

	Output struct {
		LogFile     string `toml:"log_file"`
		ErrorFile   string `toml:"error_file"`
		ResultsJSON string `toml:"results_json"`
		ResultsCSV  string `toml:"results_csv"`
		ResultsDB   string `toml:"results_db"`
	} `toml:"output"`
}

// LoadProfile reads and decodes a TOML profile file.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, errors.Wrapf(err, "failed to decode profile %s", path)
	}
	return &p, nil
}

// ApplyProfile overlays the profile's set fields onto s. Unset fields (empty
// strings, zero counts) leave the current value alone.
func (s *Settings) ApplyProfile(p *Profile) error {
	if p.Buffers.IndicesSize != "" {
		size, err := helpers.ParseByteSize(p.Buffers.IndicesSize)
		if err != nil {
			return errors.Wrap(err, "profile buffers.indices_size")
		}
		s.IndicesSize = size
	}
	if p.Buffers.TableSize != "" {
		size, err := helpers.ParseByteSize(p.Buffers.TableSize)
		if err != nil {
			return errors.Wrap(err, "profile buffers.table_size")
		}
		s.TableSize = size
	}
	if p.Run.CycleCount != 0 {
		s.CycleCount = p.Run.CycleCount
	}
	if p.Run.ThreadCount != 0 {
		s.ThreadCount = p.Run.ThreadCount
	}
	if p.Run.Mmap {
		s.UseMmap = true
	}
	if p.Output.LogFile != "" {
		s.LogFile = p.Output.LogFile
	}
	if p.Output.ErrorFile != "" {
		s.ErrorFile = p.Output.ErrorFile
	}
	if p.Output.ResultsJSON != "" {
		s.ResultsJSON = p.Output.ResultsJSON
	}
	if p.Output.ResultsCSV != "" {
		s.ResultsCSV = p.Output.ResultsCSV
	}
	if p.Output.ResultsDB != "" {
		s.ResultsDB = p.Output.ResultsDB
	}
	return nil
}

// =============================================================================
// Config (validated, immutable)
// =============================================================================

// Config is the validated run configuration with derived values. Shared
// read-only across all workers.
type Config struct {
	LocationOfFiles string
	IndicesSize     uint32 // bytes, power of two
	TableSize       uint32 // bytes, power of two
	CycleCount      uint32
	WorkerCount     int
	UseMmap         bool

	LogFile     string
	ErrorFile   string
	ResultsJSON string
	ResultsCSV  string
	ResultsDB   string
	ShowHistory int

	// Derived.
	IndicesLen uint32 // elements in the indices buffer (IndicesSize / 4)
	TableLen   uint32 // elements in the lookup table (TableSize / 2)
	IndexMask  uint32 // TableLen - 1; TableLen is a power of two
}

// Finalize validates s, rounds and caps the buffer sizes, derives the index
// mask, and returns the immutable Config.
func (s Settings) Finalize() (*Config, error) {
	if s.Location == "" {
		return nil, ErrMissingLocation
	}
	if s.CycleCount < 1 {
		return nil, errors.Wrapf(ErrBadCycleCount, "cycle count must be positive, got %d", s.CycleCount)
	}
	if s.CycleCount > math.MaxUint32 {
		return nil, errors.Wrapf(ErrBadCycleCount, "cycle count %d does not fit in 32 bits", s.CycleCount)
	}
	if s.ThreadCount < 1 {
		return nil, errors.Wrapf(ErrBadWorkerCount, "thread count must be positive, got %d", s.ThreadCount)
	}
	if s.ThreadCount > WorkersMax {
		return nil, errors.Wrapf(ErrBadWorkerCount, "thread count %d exceeds the maximum %d", s.ThreadCount, WorkersMax)
	}

	indicesSize, err := roundAndCap(s.IndicesSize, IndicesSizeMax)
	if err != nil {
		return nil, errors.Wrap(err, "indices buffer size")
	}
	if indicesSize < IndicesSizeMin {
		return nil, errors.Wrapf(ErrBadBufferSize,
			"indices buffer size %d is below the %d byte minimum (one batch of 4 entries)", indicesSize, IndicesSizeMin)
	}

	tableSize, err := roundAndCap(s.TableSize, TableSizeMax)
	if err != nil {
		return nil, errors.Wrap(err, "table buffer size")
	}
	if tableSize < TableSizeMin {
		return nil, errors.Wrapf(ErrBadBufferSize,
			"table buffer size %d is below the %d byte minimum (one element)", tableSize, TableSizeMin)
	}

	cfg := &Config{
		LocationOfFiles: s.Location,
		IndicesSize:     indicesSize,
		TableSize:       tableSize,
		CycleCount:      uint32(s.CycleCount),
		WorkerCount:     s.ThreadCount,
		UseMmap:         s.UseMmap,
		LogFile:         s.LogFile,
		ErrorFile:       s.ErrorFile,
		ResultsJSON:     s.ResultsJSON,
		ResultsCSV:      s.ResultsCSV,
		ResultsDB:       s.ResultsDB,
		ShowHistory:     s.ShowHistory,
	}
	cfg.IndicesLen = cfg.IndicesSize / 4
	cfg.TableLen = cfg.TableSize / 2
	cfg.IndexMask = cfg.TableLen - 1
	return cfg, nil
}

// roundAndCap rounds a requested byte size up to the next power of two and
// caps it at max. max must itself be a power of two, so the cap preserves the
// power-of-two property.
func roundAndCap(req int64, max uint32) (uint32, error) {
	if req < 0 {
		return 0, errors.Wrapf(ErrBadBufferSize, "size must not be negative, got %d", req)
	}
	if req >= int64(max) {
		return max, nil
	}
	return RoundToPowerOfTwo(uint32(req)), nil
}

// RoundToPowerOfTwo returns the smallest power of two greater than or equal
// to n. n == 0 yields 1. Values above 1<<31 would overflow and are expected
// to be capped by the caller before rounding.
func RoundToPowerOfTwo(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}
