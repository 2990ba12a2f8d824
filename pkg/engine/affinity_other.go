//go:build !linux

package engine

import (
	"runtime"

	"github.com/pkg/errors"
)

// pinToCPU is unsupported off Linux. Workers treat the failure as an
// operational warning and run unpinned.
func pinToCPU(cpu int) error {
	return errors.Errorf("cpu affinity pinning is not supported on %s", runtime.GOOS)
}

// UsableCPUs reports the logical CPU count visible to the runtime.
func UsableCPUs() int {
	return runtime.NumCPU()
}
