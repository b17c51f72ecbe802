// Package vm wraps a process's address space: the top-level page table
// handle the process record carries, the bump pointer the loader uses to
// place successive mappings, and the user-memory read/write primitive the
// scheduler needs to dereference a futex word for BLOCK_LOCK.
//
// Adapted from the teacher's biscuit/src/vm (Vm_t, Lock_pmap/Unlock_pmap,
// Userdmap8r). The teacher's version additionally tracks a full VMA tree
// (Vmregion_t) for demand paging and copy-on-write, both explicit
// Non-goals here (spec §1); this version resolves user addresses solely
// through the MMU collaborator's Walk/PhysToKernelVirt, which is all
// spec §4.4's BLOCK_LOCK dereference and §4.3's segment copy require.
package vm

import (
	"sync"

	"defs"
	"mem"
)

// / AddrSpace_t represents one process address space: a page table handle
// / plus the bump pointer the loader advances when placing stacks and
// / argument pages (spec §3 last_virtual_page).
type AddrSpace_t struct {
	sync.Mutex

	Table mem.Table
	MMU   mem.MMU

	// / LastVirtualPage is the bump pointer used by the loader to place
	// / successive mappings.
	LastVirtualPage uintptr

	pgfltaken bool
}

// / New wraps an already-created page table.
func New(table mem.Table, m mem.MMU) *AddrSpace_t {
	return &AddrSpace_t{Table: table, MMU: m}
}

// / LockPmap acquires the address-space mutex, asserting the caller is
// / about to walk or mutate the page table.
func (as *AddrSpace_t) LockPmap() {
	as.Lock()
	as.pgfltaken = true
}

// / UnlockPmap releases the address-space mutex.
func (as *AddrSpace_t) UnlockPmap() {
	as.pgfltaken = false
	as.Unlock()
}

func (as *AddrSpace_t) lockassert() {
	if !as.pgfltaken {
		panic("pmap lock must be held")
	}
}

// / UserBytes returns a kernel-addressable slice over the page that va
// / falls in, truncated to start at va's offset. The caller must already
// / hold LockPmap. This is the primitive the scheduler's BLOCK_LOCK path
// / and the loader's segment copy both build on.
func (as *AddrSpace_t) UserBytes(va uintptr) ([]byte, defs.Err_t) {
	as.lockassert()
	phys, ok := as.MMU.Walk(as.Table, va)
	if !ok {
		return nil, defs.EINVAL
	}
	page := as.MMU.PhysToKernelVirt(mem.Pa_t(phys))
	off := mem.PageOffset(va)
	return page[off:], defs.EOK
}

// / UserRead64 reads a little-endian 64-bit word from user memory at va,
// / used by the scheduler to dereference a BLOCK_LOCK's lock_ref.
func (as *AddrSpace_t) UserRead64(va uintptr) (uint64, defs.Err_t) {
	as.LockPmap()
	defer as.UnlockPmap()
	b, err := as.UserBytes(va)
	if err != defs.EOK {
		return 0, err
	}
	if len(b) < 8 {
		return 0, defs.EINVAL
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v, defs.EOK
}

// / UserWrite copies src into user memory starting at va, one page at a
// / time, stopping early (returning what was copied) only on a page-table
// / fault — used to install loaded segment bytes and argument buffers.
func (as *AddrSpace_t) UserWrite(va uintptr, src []byte) (int, defs.Err_t) {
	as.LockPmap()
	defer as.UnlockPmap()
	n := 0
	for n < len(src) {
		dst, err := as.UserBytes(va + uintptr(n))
		if err != defs.EOK {
			return n, err
		}
		c := copy(dst, src[n:])
		if c == 0 {
			return n, defs.EINVAL
		}
		n += c
	}
	return n, defs.EOK
}
