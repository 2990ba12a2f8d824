//go:build linux

package engine

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCPU binds the calling OS thread to one logical CPU. Call with the
// thread already locked via runtime.LockOSThread.
func pinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	// pid 0 targets the calling thread.
	return unix.SchedSetaffinity(0, &set)
}

// UsableCPUs reports how many logical CPUs the process is allowed to run on,
// which is what 1:1 pinning is bounded by (cgroup and taskset restrictions
// included, unlike a bare core count).
func UsableCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	return set.Count()
}
