package pid

import (
	"testing"

	"defs"
)

func TestAllocSkipsSentinel(t *testing.T) {
	a := New(defs.Pid_t(4))
	seen := make(map[defs.Pid_t]bool)
	for i := 0; i < 4; i++ {
		p, ok := a.Alloc()
		if !ok {
			t.Fatalf("alloc %d: expected ok", i)
		}
		if p == defs.PidNone {
			t.Fatalf("alloc %d: returned sentinel", i)
		}
		if seen[p] {
			t.Fatalf("alloc %d: duplicate pid %d", i, p)
		}
		seen[p] = true
	}
	if _, ok := a.Alloc(); ok {
		t.Fatal("expected allocator to be exhausted")
	}
}

func TestFreeThenRealloc(t *testing.T) {
	a := New(defs.Pid_t(2))
	p0, _ := a.Alloc()
	if p0 != 0 {
		t.Fatalf("expected first alloc to be pid 0, got %d", p0)
	}
	a.Free(p0)
	p1, ok := a.Alloc()
	if !ok || p1 != 0 {
		t.Fatalf("expected freed pid 0 to be reallocated, got %d ok=%v", p1, ok)
	}
}

func TestDoubleFreePanics(t *testing.T) {
	a := New(defs.Pid_t(2))
	p, _ := a.Alloc()
	a.Free(p)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	a.Free(p)
}
