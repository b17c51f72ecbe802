package defs

import "testing"

func TestLockHolds(t *testing.T) {
	cases := []struct {
		lt   LockType_t
		cur  uint64
		val  uint64
		want bool
	}{
		{WaitIfEq, 5, 5, true},
		{WaitIfEq, 5, 6, false},
		{WaitIfNe, 5, 6, true},
		{WaitIfNe, 5, 5, false},
	}
	for _, c := range cases {
		if got := LockHolds(c.lt, c.cur, c.val); got != c.want {
			t.Errorf("LockHolds(%v, %d, %d) = %v, want %v", c.lt, c.cur, c.val, got, c.want)
		}
	}
}

func TestTimeBefore(t *testing.T) {
	a := Time_t{Secs: 1, Micros: 500}
	b := Time_t{Secs: 1, Micros: 600}
	c := Time_t{Secs: 2, Micros: 0}

	if !a.Before(b) {
		t.Fatal("expected a before b")
	}
	if b.Before(a) {
		t.Fatal("expected b not before a")
	}
	if !b.Before(c) {
		t.Fatal("expected b before c (different seconds)")
	}
	if a.Before(a) {
		t.Fatal("a must not be before itself")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State_t]string{
		WAIT:        "WAIT",
		RUNNING:     "RUNNING",
		BLOCK_SLEEP: "BLOCK_SLEEP",
		BLOCK_LOCK:  "BLOCK_LOCK",
		DEAD:        "DEAD",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State_t(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestPidNoneSentinel(t *testing.T) {
	if PidNone != ^Pid_t(0) {
		t.Fatalf("PidNone = %d, want all-ones", PidNone)
	}
	if PidInit != 0 {
		t.Fatalf("PidInit = %d, want 0", PidInit)
	}
}
