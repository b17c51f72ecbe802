package proc

import (
	"sync"
	"testing"

	"defs"
)

func TestInsertGetRemove(t *testing.T) {
	tbl := New()
	tbl.Insert(&Proc_t{Pid: 1}).Release()

	h, ok := tbl.Get(1)
	if !ok {
		t.Fatal("expected pid 1 to be present")
	}
	if h.Proc().Pid != 1 {
		t.Fatalf("Pid = %d, want 1", h.Proc().Pid)
	}
	h.Release()

	tbl.Remove(1)
	if _, ok := tbl.Get(1); ok {
		t.Fatal("expected pid 1 to be gone after Remove")
	}
}

func TestGetMissing(t *testing.T) {
	tbl := New()
	if _, ok := tbl.Get(99); ok {
		t.Fatal("expected Get of absent pid to fail")
	}
}

func TestInsertDuplicatePanics(t *testing.T) {
	tbl := New()
	tbl.Insert(&Proc_t{Pid: 5}).Release()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate insert")
		}
	}()
	tbl.Insert(&Proc_t{Pid: 5})
}

func TestReadyQueueFIFO(t *testing.T) {
	tbl := New()
	tbl.EnqueueReady(1)
	tbl.EnqueueReady(2)
	tbl.EnqueueReady(3)

	if tbl.ReadyLen() != 3 {
		t.Fatalf("ReadyLen = %d, want 3", tbl.ReadyLen())
	}
	for _, want := range []defs.Pid_t{1, 2, 3} {
		got, ok := tbl.DequeueReady()
		if !ok || got != want {
			t.Fatalf("DequeueReady = %d,%v want %d", got, ok, want)
		}
	}
	if _, ok := tbl.DequeueReady(); ok {
		t.Fatal("expected DequeueReady to be empty")
	}
}

func TestSnapshot(t *testing.T) {
	tbl := New()
	tbl.Insert(&Proc_t{Pid: 1}).Release()
	tbl.Insert(&Proc_t{Pid: 2}).Release()

	pids := tbl.Snapshot()
	if len(pids) != 2 {
		t.Fatalf("Snapshot len = %d, want 2", len(pids))
	}
}

func TestConcurrentGetContention(t *testing.T) {
	tbl := New()
	tbl.Insert(&Proc_t{Pid: 1}).Release()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, ok := tbl.Get(1)
			if !ok {
				t.Error("expected pid 1 to be present")
				return
			}
			h.Release()
		}()
	}
	wg.Wait()
}
