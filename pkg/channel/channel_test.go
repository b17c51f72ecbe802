package channel

import (
	"testing"

	"defs"
)

func TestPushPopRoundTrip(t *testing.T) {
	e := New(defs.Cap_t(1), defs.Pid_t(2))
	msg := defs.Message{Type: 1, Source: defs.Pid_t(2), Data: 42}

	if err := e.Push(msg); err != defs.EOK {
		t.Fatalf("Push: %d", err)
	}
	got, err := e.Pop()
	if err != defs.EOK {
		t.Fatalf("Pop: %d", err)
	}
	if got != msg {
		t.Fatalf("Pop = %+v, want %+v", got, msg)
	}
}

func TestPopEmpty(t *testing.T) {
	e := New(defs.Cap_t(1), defs.Pid_t(2))
	if _, err := e.Pop(); err != defs.EEMPTY {
		t.Fatalf("err = %d, want EEMPTY", err)
	}
}

func TestPushFullQueue(t *testing.T) {
	e := New(defs.Cap_t(1), defs.Pid_t(2))
	msg := defs.Message{Data: 1}
	for i := 0; i < 8; i++ {
		if err := e.Push(msg); err != defs.EOK {
			t.Fatalf("Push #%d: %d", i, err)
		}
	}
	if err := e.Push(msg); err != defs.EFULL {
		t.Fatalf("err = %d, want EFULL", err)
	}
}

func TestCloseThenPushPop(t *testing.T) {
	e := New(defs.Cap_t(1), defs.Pid_t(2))
	e.Close()
	if !e.Closed() {
		t.Fatal("expected Closed() after Close")
	}
	if err := e.Push(defs.Message{}); err != defs.ECLOSED {
		t.Fatalf("Push after close: %d, want ECLOSED", err)
	}
	if _, err := e.Pop(); err != defs.ECLOSED {
		t.Fatalf("Pop after close: %d, want ECLOSED", err)
	}
}
