// Package pid allocates process identifiers. Strategy: linear scan from
// 0 for the first unused id, skipping the reserved "no thread parent"
// sentinel. Acceptable because the live process count is small. Alloc
// and Free serialize on the allocator's own mutex, so concurrent
// callers need no other lock around the scan.
//
// Adapted from the teacher's biscuit/src/msi (Msivecs_t), which
// allocates from a small fixed pool of MSI interrupt vectors under one
// mutex with a map of availability; this keeps that allocate/free shape
// but scans a bitmap-free range instead of a fixed vector set, since
// the PID space is unbounded (up to the system process ceiling) rather
// than a hardware-fixed set of 8 vectors.
package pid

import (
	"sync"

	"defs"
	"klog"
)

// / Allocator hands out PIDs by linear scan, recycling freed ids.
type Allocator struct {
	sync.Mutex
	used map[defs.Pid_t]bool
	max  defs.Pid_t
}

// / New creates an allocator willing to hand out ids in [0, max).
func New(max defs.Pid_t) *Allocator {
	return &Allocator{used: make(map[defs.Pid_t]bool), max: max}
}

// / Alloc returns the lowest unused, non-sentinel PID. ok is false if
// / every id up to the configured ceiling is taken (PID space full,
// / spec §7b).
func (a *Allocator) Alloc() (defs.Pid_t, bool) {
	a.Lock()
	defer a.Unlock()

	for p := defs.Pid_t(0); p < a.max; p++ {
		if p == defs.PidNone {
			continue
		}
		if !a.used[p] {
			a.used[p] = true
			return p, true
		}
	}
	return 0, false
}

// / Free releases pid back to the pool. Panics on a double free, the
// / same discipline the teacher's Msi_free uses for its vector pool.
func (a *Allocator) Free(p defs.Pid_t) {
	a.Lock()
	defer a.Unlock()

	if !a.used[p] {
		klog.Fatalf("pid: double free: %d", p)
	}
	delete(a.used, p)
}
