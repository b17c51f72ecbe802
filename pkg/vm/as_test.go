package vm_test

import (
	"testing"

	"defs"
	"fakemmu"
	"mem"
	"vm"
)

func TestUserReadWriteRoundTrip(t *testing.T) {
	m := fakemmu.New()
	table, _ := m.CreateTable()
	as := vm.New(table, m)

	va := uintptr(0x2000)
	if _, ok := m.Alloc(table, va, defs.PERM_USER|defs.PERM_R|defs.PERM_W); !ok {
		t.Fatal("alloc failed")
	}

	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	n, err := as.UserWrite(va, src)
	if err != defs.EOK || n != len(src) {
		t.Fatalf("UserWrite: n=%d err=%d", n, err)
	}

	got, err := as.UserRead64(va)
	if err != defs.EOK {
		t.Fatalf("UserRead64: err=%d", err)
	}
	want := uint64(0x0807060504030201)
	if got != want {
		t.Fatalf("UserRead64 = %#x, want %#x", got, want)
	}
}

func TestUserBytesUnmapped(t *testing.T) {
	m := fakemmu.New()
	table, _ := m.CreateTable()
	as := vm.New(table, m)

	as.LockPmap()
	defer as.UnlockPmap()
	if _, err := as.UserBytes(uintptr(0x9000)); err != defs.EINVAL {
		t.Fatalf("err = %d, want EINVAL", err)
	}
}

func TestUserBytesRequiresLock(t *testing.T) {
	m := fakemmu.New()
	table, _ := m.CreateTable()
	as := vm.New(table, m)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when pmap lock not held")
		}
	}()
	as.UserBytes(uintptr(0x1000))
}

var _ = mem.PGSIZE
