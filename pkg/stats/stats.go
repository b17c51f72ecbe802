// Package stats holds the core's dispatch and syscall counters and,
// via WriteProfile, exports per-process user/sys time figures
// (pkg/accnt records supplied by the caller) as a pprof profile for
// cmd/kernel -profile. The counters themselves are not part of the
// profile.
//
// Adapted from the teacher's biscuit/src/stats (Counter_t/Cycles_t,
// gated by the Stats/Timing build switches) and its intelprof_t PMC
// sampler (kernel/main.go), generalized from hardware performance
// counters to per-process accounting figures (pkg/accnt), since there
// is no host-level PMC access available to this core.
package stats

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"

	"accnt"
)

// / Enabled gates counter increments, matching the teacher's Stats
// / switch; flipped on by cmd/kernel -profile.
var Enabled = false

// / Counter_t is a lock-free statistical counter.
type Counter_t int64

// / Inc increments the counter by one when Enabled.
func (c *Counter_t) Inc() {
	if Enabled {
		atomic.AddInt64((*int64)(c), 1)
	}
}

// / Value returns the counter's current value.
func (c *Counter_t) Value() int64 {
	return atomic.LoadInt64((*int64)(c))
}

// / Core tallies dispatch-level events: scheduler switches and syscalls
// / by number, shared across every process.
type Core struct {
	Switches Counter_t
	Syscalls [32]Counter_t
}

// / Global is the shared counter set; cmd/kernel's dispatch loop
// / increments Switches once per round. Nothing increments Syscalls.
var Global Core

// / Sample is one process's accounting figures at profile time, the
// / input WriteProfile turns into a pprof sample.
type Sample struct {
	Pid  uint64
	Name string
	Acct *accnt.Accnt_t
}

// / WriteProfile serializes samples into a pprof profile.Profile — one
// / sample per process, with "user" and "sys" nanosecond value types —
// / and writes it uncompressed to w. Mirrors the teacher's intelprof_t,
// / which samples per-CPU PMC counters into the same wire format; here
// / the counted quantity is per-process user/sys time instead.
func WriteProfile(w io.Writer, samples []Sample) error {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "user", Unit: "nanoseconds"},
			{Type: "sys", Unit: "nanoseconds"},
		},
		TimeNanos: time.Now().UnixNano(),
	}

	procFn := &profile.Function{ID: 1, Name: "process"}
	p.Function = []*profile.Function{procFn}

	for i, s := range samples {
		loc := &profile.Location{
			ID: uint64(i + 1),
			Line: []profile.Line{
				{Function: procFn, Line: int64(s.Pid)},
			},
		}
		p.Location = append(p.Location, loc)

		var user, sys int64
		if s.Acct != nil {
			s.Acct.Lock()
			user, sys = s.Acct.Userns, s.Acct.Sysns
			s.Acct.Unlock()
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{user, sys},
			Label:    map[string][]string{"name": {s.Name}},
		})
	}

	if err := p.CheckValid(); err != nil {
		return err
	}
	return p.WriteUncompressed(w)
}
