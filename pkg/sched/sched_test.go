package sched

import (
	"testing"
	"time"

	"captable"
	"defs"
	"fakemmu"
	"pid"
	"proc"
	"tnote"
	"vm"
)

type fakeClock struct{ now defs.Time_t }

func (c fakeClock) Now() defs.Time_t { return c.now }

func mkScheduler(now defs.Time_t) (*Scheduler, *proc.Table, *fakemmu.MMU) {
	procs := proc.New()
	mmu := fakemmu.New()
	notes := tnote.New()
	return New(procs, mmu, notes, fakeClock{now}), procs, mmu
}

func TestSwitchSavesOutgoingAndLoadsTarget(t *testing.T) {
	s, procs, mmu := mkScheduler(defs.Time_t{})
	table, _ := mmu.CreateTable()
	as := vm.New(table, mmu)

	cur := &proc.Proc_t{Pid: 1, State: defs.RUNNING, AS: as}
	procs.Insert(cur).Release()
	target := &proc.Proc_t{Pid: 2, State: defs.WAIT, AS: as, PC: 0x500}
	procs.Insert(target).Release()

	tf := &TrapFrame{PC: 0x123}
	s.Switch(tf, 1, 2)

	if tf.PC != 0x500 {
		t.Fatalf("tf.PC = %#x, want 0x500", tf.PC)
	}
	h, _ := procs.Get(1)
	if h.Proc().PC != 0x123 {
		t.Fatalf("outgoing PC = %#x, want 0x123", h.Proc().PC)
	}
	if h.Proc().State != defs.WAIT {
		t.Fatal("expected outgoing RUNNING proc to become WAIT")
	}
	h.Release()

	h2, _ := procs.Get(2)
	if h2.Proc().State != defs.RUNNING {
		t.Fatal("expected target to become RUNNING")
	}
	h2.Release()

	if procs.ReadyLen() != 1 {
		t.Fatalf("ReadyLen = %d, want 1", procs.ReadyLen())
	}
}

func TestNextRunnableSkipsCurrentAndReturnsWaiting(t *testing.T) {
	s, procs, mmu := mkScheduler(defs.Time_t{})
	table, _ := mmu.CreateTable()
	as := vm.New(table, mmu)

	procs.Insert(&proc.Proc_t{Pid: 1, State: defs.RUNNING, AS: as}).Release()
	procs.Insert(&proc.Proc_t{Pid: 2, State: defs.WAIT, AS: as}).Release()
	procs.EnqueueReady(1)
	procs.EnqueueReady(2)

	got, ok := s.NextRunnable(1)
	if !ok || got != 2 {
		t.Fatalf("NextRunnable = %d,%v want 2,true", got, ok)
	}
}

func TestNextRunnableFallsBackToCurrentWhenStillRunning(t *testing.T) {
	s, procs, mmu := mkScheduler(defs.Time_t{})
	table, _ := mmu.CreateTable()
	as := vm.New(table, mmu)
	procs.Insert(&proc.Proc_t{Pid: 1, State: defs.RUNNING, AS: as}).Release()

	got, ok := s.NextRunnable(1)
	if !ok || got != 1 {
		t.Fatalf("NextRunnable = %d,%v want 1,true", got, ok)
	}
}

func TestNextRunnableWakesSleeperPastDeadline(t *testing.T) {
	now := defs.Time_t{Secs: 100}
	s, procs, mmu := mkScheduler(now)
	table, _ := mmu.CreateTable()
	as := vm.New(table, mmu)

	procs.Insert(&proc.Proc_t{Pid: 1, State: defs.BLOCK_SLEEP, AS: as, WakeOnTime: defs.Time_t{Secs: 50}}).Release()
	procs.EnqueueReady(1)

	got, ok := s.NextRunnable(defs.PidNone)
	if !ok || got != 1 {
		t.Fatalf("NextRunnable = %d,%v want 1,true", got, ok)
	}
}

func TestNextRunnableLeavesSleeperBeforeDeadline(t *testing.T) {
	now := defs.Time_t{Secs: 10}
	s, procs, mmu := mkScheduler(now)
	table, _ := mmu.CreateTable()
	as := vm.New(table, mmu)

	procs.Insert(&proc.Proc_t{Pid: 1, State: defs.BLOCK_SLEEP, AS: as, WakeOnTime: defs.Time_t{Secs: 50}}).Release()
	procs.EnqueueReady(1)

	_, ok := s.NextRunnable(defs.PidNone)
	if ok {
		t.Fatal("expected no runnable PID before the sleeper's deadline")
	}
	if procs.ReadyLen() != 1 {
		t.Fatal("expected the sleeper to be re-enqueued")
	}
}

func TestNextRunnableResolvesBlockLockWithoutDeadlocking(t *testing.T) {
	s, procs, mmu := mkScheduler(defs.Time_t{})
	table, _ := mmu.CreateTable()
	as := vm.New(table, mmu)

	lockVA := uintptr(0x3000)
	mmu.Alloc(table, lockVA, defs.PERM_USER|defs.PERM_R|defs.PERM_W)
	if _, err := as.UserWrite(lockVA, []byte{9, 0, 0, 0, 0, 0, 0, 0}); err != defs.EOK {
		t.Fatalf("UserWrite: %d", err)
	}

	procs.Insert(&proc.Proc_t{
		Pid:       1,
		State:     defs.BLOCK_LOCK,
		AS:        as,
		LockRef:   lockVA,
		LockType:  defs.WaitIfEq,
		LockValue: 1, // cur (9) != value (1): predicate resolved, process is runnable
	}).Release()
	procs.EnqueueReady(1)

	done := make(chan struct{})
	go func() {
		got, ok := s.NextRunnable(defs.PidNone)
		if !ok || got != 1 {
			t.Errorf("NextRunnable = %d,%v want 1,true", got, ok)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NextRunnable deadlocked on the BLOCK_LOCK futex dereference")
	}
}

func TestNextRunnableLeavesBlockLockStillHeld(t *testing.T) {
	s, procs, mmu := mkScheduler(defs.Time_t{})
	table, _ := mmu.CreateTable()
	as := vm.New(table, mmu)

	lockVA := uintptr(0x3000)
	mmu.Alloc(table, lockVA, defs.PERM_USER|defs.PERM_R|defs.PERM_W)
	if _, err := as.UserWrite(lockVA, []byte{1, 0, 0, 0, 0, 0, 0, 0}); err != defs.EOK {
		t.Fatalf("UserWrite: %d", err)
	}

	procs.Insert(&proc.Proc_t{
		Pid:       1,
		State:     defs.BLOCK_LOCK,
		AS:        as,
		LockRef:   lockVA,
		LockType:  defs.WaitIfEq,
		LockValue: 1, // cur (1) == value (1): predicate still holds, stays blocked
	}).Release()
	procs.EnqueueReady(1)

	_, ok := s.NextRunnable(defs.PidNone)
	if ok {
		t.Fatal("expected no runnable PID while the lock predicate still holds")
	}
	if procs.ReadyLen() != 1 {
		t.Fatal("expected the still-blocked process to be re-enqueued")
	}
}

func TestKillDestroysTableAndSweepsCaps(t *testing.T) {
	s, procs, mmu := mkScheduler(defs.Time_t{})
	initTable, _ := mmu.CreateTable()
	initAS := vm.New(initTable, mmu)
	procs.Insert(&proc.Proc_t{Pid: defs.PidInit, ThreadSource: defs.PidNone, State: defs.WAIT, AS: initAS}).Release()

	victimTable, _ := mmu.CreateTable()
	victimAS := vm.New(victimTable, mmu)
	mmu.SetCurrentTable(victimTable)
	procs.Insert(&proc.Proc_t{Pid: 5, ThreadSource: defs.PidNone, State: defs.RUNNING, AS: victimAS}).Release()

	caps := captable.New()
	pids := pid.New(64)
	for i := 0; i <= 5; i++ {
		pids.Alloc() // pids 0..5 in use, so Kill's Free(5) is not a double free
	}
	s.Notes.Insert(5)

	if err := s.Kill(5, caps, pids); err != defs.EOK {
		t.Fatalf("Kill: %d", err)
	}
	if mmu.CurrentTable() != initTable {
		t.Fatal("expected MMU to be switched to init's table before destroying the victim's")
	}
	if _, ok := procs.Get(5); ok {
		t.Fatal("expected victim record to be removed")
	}
}
