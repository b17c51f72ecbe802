// Package tnote tracks per-process kill/doom state: whether a kill has
// been requested (Killed), and whether the process is committed to
// teardown (Isdoomed). The two flags are independent: setting Killed
// does not set Isdoomed. pkg/sched's NextRunnable reads only Isdoomed:
// a doomed process found on the ready queue is marked DEAD and dropped
// from the queue; its endpoints are not closed there (sched.Kill does
// that through pkg/captable).
//
// Adapted from the teacher's biscuit/src/tinfo (Tnote_t/Threadinfo_t),
// which additionally pins the current thread's note behind a
// runtime.Gptr/Setgptr pair specific to the teacher's forked Go
// runtime's per-goroutine scratch slot; that TLS trick has no portable
// equivalent and no use here since every caller already carries its
// defs.Pid_t explicitly, so this version drops Current/SetCurrent and
// keeps only the note and its table.
package tnote

import (
	"sync"

	"defs"
)

// / Tnote_t is one process's kill/doom bookkeeping.
type Tnote_t struct {
	sync.Mutex

	Killed   bool
	Isdoomed bool

	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

// / Doomed reports whether the scheduler has committed to tearing this
// / process down.
func (t *Tnote_t) Doomed() bool {
	t.Lock()
	defer t.Unlock()
	return t.Isdoomed
}

// / MarkKilled records that a kill was requested, without committing to
// / teardown: Isdoomed is left unchanged.
func (t *Tnote_t) MarkKilled() {
	t.Lock()
	defer t.Unlock()
	t.Killed = true
}

// / MarkDoomed commits the process to teardown; the scheduler marks a
// / doomed process DEAD the next time it finds it on the ready queue.
func (t *Tnote_t) MarkDoomed() {
	t.Lock()
	defer t.Unlock()
	t.Isdoomed = true
}

// / Threadinfo_t tracks the kill/doom note for every live process.
type Threadinfo_t struct {
	sync.Mutex
	Notes map[defs.Pid_t]*Tnote_t
}

// / New allocates an empty table.
func New() *Threadinfo_t {
	return &Threadinfo_t{Notes: make(map[defs.Pid_t]*Tnote_t)}
}

// / Insert installs a fresh note for p, overwriting any prior note.
func (ti *Threadinfo_t) Insert(p defs.Pid_t) *Tnote_t {
	ti.Lock()
	defer ti.Unlock()
	n := &Tnote_t{}
	ti.Notes[p] = n
	return n
}

// / Get returns p's note, or nil if none exists.
func (ti *Threadinfo_t) Get(p defs.Pid_t) *Tnote_t {
	ti.Lock()
	defer ti.Unlock()
	return ti.Notes[p]
}

// / Remove discards p's note once the process is fully reaped.
func (ti *Threadinfo_t) Remove(p defs.Pid_t) {
	ti.Lock()
	defer ti.Unlock()
	delete(ti.Notes, p)
}
