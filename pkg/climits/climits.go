// Package climits holds the tunable system-wide ceilings the core
// enforces: the maximum live process count, the per-channel message
// queue capacity, the maximum capability-table size, and the console
// line-length cap.
//
// Adapted from the teacher's biscuit/src/limits (Syslimit_t,
// Sysatomic_t), which tracks a much larger set of filesystem/network
// ceilings (vnodes, arp entries, routes, tcp segments) with the same
// atomic give/take discipline; this version keeps only the ceilings
// this core's components actually check, and keeps Sysatomic_t's
// lock-free take/give exactly as the teacher wrote it.
package climits

import (
	"sync/atomic"
	"unsafe"
)

// / Sysatomic_t is a numeric limit that can be atomically updated.
type Sysatomic_t int64

func (s *Sysatomic_t) _aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

// / Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(_n uint) {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	atomic.AddInt64(s._aptr(), n)
}

// / Taken tries to decrement the limit by the provided amount, returning
// / true on success and leaving the limit unchanged on failure.
func (s *Sysatomic_t) Taken(_n uint) bool {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	g := atomic.AddInt64(s._aptr(), -n)
	if g >= 0 {
		return true
	}
	atomic.AddInt64(s._aptr(), n)
	return false
}

// / Take decrements the limit by one and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

// / Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}

// / Value returns the limit's current value.
func (s *Sysatomic_t) Value() int64 {
	return atomic.LoadInt64(s._aptr())
}

// / Syslimit_t tracks the system-wide resource ceilings: the process
// / ceiling cmd/kernel sizes the PID allocator from, the channel queue
// / capacity, the capability-table ceiling, and the console line cap.
type Syslimit_t struct {
	// / Procs is the remaining count of process-table slots.
	Procs Sysatomic_t

	// / QueueCap is the fixed capacity of every channel's message queue
	// / (spec's Q).
	QueueCap int

	// / Caps is the remaining count of capability-table slots, shared
	// / across all processes.
	Caps Sysatomic_t

	// / ConsoleLine bounds a single console write's length.
	ConsoleLine int
}

// / Syslimit holds the configured system-wide limits, consulted by
// / cmd/kernel, pkg/channel, pkg/captable, and pkg/abi.
var Syslimit = MkSysLimit()

// / MkSysLimit returns the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Procs:       Sysatomic_t(1024),
		QueueCap:    8,
		Caps:        Sysatomic_t(4096),
		ConsoleLine: 1024,
	}
}
