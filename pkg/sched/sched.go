// Package sched implements the scheduler's two operations: switch,
// which saves/restores a trap frame across a dispatch, and
// next_runnable, which scans the ready queue for the next PID to run.
// Enriched from justanotherdot-biscuit's kernel/main.go trap-dispatch
// idiom (the teacher's own biscuit/src/kernel was an ELF-patching tool,
// not a running scheduler) generalized to this core's WAIT/RUNNING/
// BLOCK_SLEEP/BLOCK_LOCK/DEAD state machine.
package sched

import (
	"captable"
	"defs"
	"mem"
	"pid"
	"proc"
	"tnote"
)

// / TrapFrame is the saved/restored register state a trap carries
// / across a dispatch.
type TrapFrame struct {
	PC     uint64
	GPRegs [defs.NumGPRegs]uint64
	FPRegs [defs.NumFPRegs]uint64
}

// / Clock is the collaborator the scheduler consults for "now", kept as
// / an interface so tests can control time deterministically instead of
// / reading a real clock.
type Clock interface {
	Now() defs.Time_t
}

// / Scheduler drives dispatch over a process table and an MMU.
type Scheduler struct {
	Procs *proc.Table
	MMU   mem.MMU
	Notes *tnote.Threadinfo_t
	Clock Clock
}

// New builds a Scheduler wired to the given collaborators.
func New(procs *proc.Table, mmu mem.MMU, notes *tnote.Threadinfo_t, clock Clock) *Scheduler {
	return &Scheduler{Procs: procs, MMU: mmu, Notes: notes, Clock: clock}
}

// / Switch implements spec §4.4's switch(trap_frame, target_pid):
// / 1. If the trap's current PID differs from target: saves the
// /    outgoing record's PC/registers; if it was RUNNING, sets it to
// /    WAIT and enqueues its PID.
// / 2. Loads the target's registers/PC, switches the MMU to its address
// /    space, sets state = RUNNING.
// / 3. Releases per-record locks.
func (s *Scheduler) Switch(tf *TrapFrame, currentPid, targetPid defs.Pid_t) {
	if currentPid != targetPid && currentPid != defs.PidNone {
		if h, ok := s.Procs.Get(currentPid); ok {
			p := h.Proc()
			p.PC = tf.PC
			p.GPRegs = tf.GPRegs
			p.FPRegs = tf.FPRegs
			if p.State == defs.RUNNING {
				p.State = defs.WAIT
				s.Procs.EnqueueReady(p.Pid)
			}
			h.Release()
		}
	}

	h, ok := s.Procs.Get(targetPid)
	if !ok {
		return
	}
	p := h.Proc()
	tf.PC = p.PC
	tf.GPRegs = p.GPRegs
	tf.FPRegs = p.FPRegs
	s.MMU.SetCurrentTable(p.AS.Table)
	p.State = defs.RUNNING
	h.Release()
}

// / NextRunnable implements spec §4.4's next_runnable(current_pid):
// / scans the ready queue exactly ReadyLen entries, returning the first
// / PID found WAIT or whose block condition has resolved. Entries equal
// / to currentPid, DEAD entries, doomed entries (marked DEAD here) and
// / PIDs with no record are dropped from the queue; still-blocked
// / entries are re-enqueued. If
// / the scan completes without a match and currentPid is still RUNNING,
// / returns currentPid (continue). Otherwise returns ok=false — the
// / caller busy-waits on timer/interrupts until something is runnable.
func (s *Scheduler) NextRunnable(currentPid defs.Pid_t) (defs.Pid_t, bool) {
	n := s.Procs.ReadyLen()
	now := s.Clock.Now()

	for i := 0; i < n; i++ {
		pid, ok := s.Procs.DequeueReady()
		if !ok {
			break
		}
		if pid == currentPid {
			continue
		}

		h, ok := s.Procs.Get(pid)
		if !ok {
			continue
		}
		p := h.Proc()

		if note := s.Notes.Get(pid); note != nil && note.Doomed() {
			p.State = defs.DEAD
			h.Release()
			continue
		}

		switch p.State {
		case defs.WAIT:
			h.Release()
			return pid, true

		case defs.BLOCK_SLEEP:
			if !now.Before(p.WakeOnTime) {
				p.SetA0(now.Secs)
				p.SetA1(now.Micros)
				h.Release()
				return pid, true
			}
			h.Release()
			s.Procs.EnqueueReady(pid)

		case defs.BLOCK_LOCK:
			prev := s.MMU.CurrentTable()
			s.MMU.SetCurrentTable(p.AS.Table)
			as := p.AS
			cur, err := as.UserRead64(p.LockRef)
			if err == defs.EOK && !defs.LockHolds(p.LockType, cur, p.LockValue) {
				p.SetA0(0)
				h.Release()
				s.MMU.SetCurrentTable(prev)
				return pid, true
			}
			s.MMU.SetCurrentTable(prev)
			h.Release()
			s.Procs.EnqueueReady(pid)

		case defs.DEAD:
			h.Release()

		default:
			h.Release()
			s.Procs.EnqueueReady(pid)
		}
	}

	if h, ok := s.Procs.Get(currentPid); ok {
		still := h.Proc().State == defs.RUNNING
		h.Release()
		if still {
			return currentPid, true
		}
	}
	return 0, false
}

// / Kill transitions pid to DEAD from any state (spec §4.4 "any
// / --kill--> DEAD"). If pid's page table is currently active, the MMU
// / is switched to init's table first, then pid's table is destroyed —
// / never the reverse, since destroying the active table out from under
// / the MMU would leave it walking freed memory (spec §5 "Address-space
// / switching"). Closes every endpoint caps owns (spec P6), frees its
// / PID, and removes its record and kill note.
func (s *Scheduler) Kill(pid_ defs.Pid_t, caps *captable.Table, pids *pid.Allocator) defs.Err_t {
	h, ok := s.Procs.Get(pid_)
	if !ok {
		return defs.ENOENT
	}
	p := h.Proc()

	if pid_ != defs.PidInit && s.MMU.CurrentTable() == p.AS.Table {
		if inith, ok := s.Procs.Get(defs.PidInit); ok {
			s.MMU.SetCurrentTable(inith.Proc().AS.Table)
			inith.Release()
		}
	}
	if pid_ != defs.PidInit && p.ThreadSource == defs.PidNone {
		s.MMU.DestroyTable(p.AS.Table)
	}
	p.State = defs.DEAD
	h.Release()

	caps.OnDeath(pid_)
	s.Procs.Remove(pid_)
	pids.Free(pid_)
	s.Notes.Remove(pid_)
	return defs.EOK
}
