// =============================================================================
// pkg/buffers/buffers.go - Input Buffer Loading
// =============================================================================
//
// Loads the two input arrays the benchmark runs against:
//
//   indices.bin - 32-bit unsigned words, read and rewritten by every worker
//   table.bin   - 16-bit unsigned words, read-only lookup table
//
// Only the first configured bytes of each file are used; larger files are
// fine, smaller files are an I/O error. Values are raw machine words in host
// byte order (the historical tool read them straight into memory, and
// gen-inputs writes them the same way), so the loader reinterprets bytes in
// place instead of decoding element by element.
//
// LOAD MODES:
//   read (default) - the configured prefix is read into the heap
//   mmap           - the file is mapped MAP_PRIVATE and advised MADV_RANDOM;
//                    worker writebacks land in private pages, never the file
//
// When a plain file is absent but a .zst sibling exists, the read path
// decompresses it transparently. The mmap path requires plain files.
//
// =============================================================================

package buffers

import (
	"io"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// IndicesFileName is the indices input file inside the location directory.
	IndicesFileName = "indices.bin"

	// TableFileName is the lookup table input file.
	TableFileName = "table.bin"

	// ZstSuffix marks the compressed variant of an input file.
	ZstSuffix = ".zst"
)

// ErrShortInput reports an input file (or its decompressed form) smaller than
// the configured buffer size.
var ErrShortInput = errors.New("input file smaller than the configured size")

// =============================================================================
// Buffers
// =============================================================================

// Buffers owns the two input arrays for one run. Loaded once before any
// worker starts; Release is called once after every worker has been joined.
type Buffers struct {
	Indices []uint32
	Table   []uint16

	mapped [][]byte // mmap regions to unmap on Release
}

// Load reads indices.bin and table.bin from the location directory. On any
// failure everything already loaded is released, so a non-nil error never
// leaks a mapping.
func Load(location string, indicesSize, tableSize uint32, useMmap bool) (*Buffers, error) {
	b := &Buffers{}

	indexBytes, err := b.loadFile(filepath.Join(location, IndicesFileName), indicesSize, useMmap, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read buffer with indices")
	}

	tableBytes, err := b.loadFile(filepath.Join(location, TableFileName), tableSize, useMmap, false)
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "failed to read buffer with table")
	}

	b.Indices = ViewUint32s(indexBytes)
	b.Table = ViewUint16s(tableBytes)
	return b, nil
}

// loadFile returns exactly size bytes of the file at path, choosing between
// the read, mmap and zstd-fallback paths.
func (b *Buffers) loadFile(path string, size uint32, useMmap, writable bool) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat(%s) failed", path)
		}
		zstPath := path + ZstSuffix
		if _, zerr := os.Stat(zstPath); zerr != nil {
			return nil, errors.Wrapf(err, "stat(%s) failed", path)
		}
		if useMmap {
			return nil, errors.Errorf("mmap load needs a plain %s, found only %s", filepath.Base(path), zstPath)
		}
		return readZst(zstPath, size)
	}

	if info.Size() < int64(size) {
		return nil, errors.Wrapf(ErrShortInput, "%s holds %d bytes, need %d", path, info.Size(), size)
	}
	if useMmap {
		return b.mapFile(path, size, writable)
	}
	return readFile(path, size)
}

// readFile reads the first size bytes of the file into the heap.
func readFile(path string, size uint32) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open(%s) failed", path)
	}
	defer f.Close()

	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, errors.Wrapf(err, "read(%s) failed", path)
	}
	return buf, nil
}

// readZst decompresses a .zst input file and applies the same size check the
// plain path uses.
func readZst(path string, size uint32) ([]byte, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read(%s) failed", path)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd decoder")
	}
	defer decoder.Close()

	plain, err := decoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, errors.Wrapf(err, "decompress(%s) failed", path)
	}
	if int64(len(plain)) < int64(size) {
		return nil, errors.Wrapf(ErrShortInput, "%s decompresses to %d bytes, need %d", path, len(plain), size)
	}
	return plain[:size], nil
}

// mapFile maps the first size bytes of the file. MAP_PRIVATE keeps worker
// writebacks off the input file; MADV_RANDOM matches the access pattern the
// benchmark generates.
func (b *Buffers) mapFile(path string, size uint32, writable bool) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open(%s) failed", path)
	}
	defer f.Close()

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap(%s) failed", path)
	}
	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		unix.Munmap(data)
		return nil, errors.Wrapf(err, "madvise(%s) failed", path)
	}

	b.mapped = append(b.mapped, data)
	return data, nil
}

// Release frees the buffers. Mapped regions are unmapped; heap-loaded buffers
// are left to the garbage collector. Safe to call more than once.
func (b *Buffers) Release() error {
	var firstErr error
	for _, m := range b.mapped {
		if err := unix.Munmap(m); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "munmap failed")
		}
	}
	b.mapped = nil
	b.Indices = nil
	b.Table = nil
	return firstErr
}

// =============================================================================
// Raw Views
// =============================================================================

// ViewUint32s reinterprets b as host-order 32-bit words without copying.
// b must stay alive as long as the returned slice is used.
func ViewUint32s(b []byte) []uint32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/4)
}

// ViewUint16s reinterprets b as host-order 16-bit words without copying.
func ViewUint16s(b []byte) []uint16 {
	if len(b) < 2 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/2)
}
