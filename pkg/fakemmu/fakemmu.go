// Package fakemmu is an in-memory reference implementation of the
// mem.MMU contract, used by tests and cmd/kernel's demo boot in place
// of a real page-based MMU driver (spec §1 places physical page
// allocation and the MMU driver explicitly out of scope). Every "page
// table" is a plain Go map from virtual page to a backing byte slice;
// "physical addresses" are just map keys into a global page pool, so
// there is no real physical/virtual distinction here — only enough
// fidelity to exercise pkg/vm, pkg/loader, and pkg/sched against a
// working collaborator.
package fakemmu

import (
	"sync"
	"sync/atomic"

	"mem"
)

type entry struct {
	phys  mem.Pa_t
	flags int
}

// / Table is a fake page table: a map from page-aligned vaddr to entry.
type Table struct {
	mu      sync.Mutex
	entries map[uintptr]entry
}

// / MMU is an in-memory mem.MMU implementation.
type MMU struct {
	mu      sync.Mutex
	pages   map[mem.Pa_t][]byte
	nextPa  int64
	current *Table
}

// / New allocates an empty MMU with no tables yet switched in.
func New() *MMU {
	return &MMU{pages: make(map[mem.Pa_t][]byte)}
}

func (m *MMU) allocPhys() mem.Pa_t {
	n := atomic.AddInt64(&m.nextPa, 1)
	pa := mem.Pa_t(n * int64(mem.PGSIZE))
	m.pages[pa] = make([]byte, mem.PGSIZE)
	return pa
}

func (m *MMU) Alloc(table mem.Table, vaddr uintptr, flags int) (mem.Pa_t, bool) {
	t := table.(*Table)
	m.mu.Lock()
	pa := m.allocPhys()
	m.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[mem.PageAlign(vaddr)] = entry{phys: pa, flags: flags}
	return pa, true
}

func (m *MMU) Map(table mem.Table, vaddr uintptr, phys mem.Pa_t, flags int) {
	t := table.(*Table)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[mem.PageAlign(vaddr)] = entry{phys: phys, flags: flags}
}

func (m *MMU) Unmap(table mem.Table, vaddr uintptr) {
	t := table.(*Table)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, mem.PageAlign(vaddr))
}

func (m *MMU) ChangeFlags(table mem.Table, vaddr uintptr, flags int) bool {
	t := table.(*Table)
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[mem.PageAlign(vaddr)]
	if !ok {
		return false
	}
	e.flags = flags
	t.entries[mem.PageAlign(vaddr)] = e
	return true
}

func (m *MMU) Walk(table mem.Table, vaddr uintptr) (uintptr, bool) {
	t := table.(*Table)
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[mem.PageAlign(vaddr)]
	if !ok {
		return 0, false
	}
	return uintptr(e.phys), true
}

func (m *MMU) CreateTable() (mem.Table, bool) {
	return &Table{entries: make(map[uintptr]entry)}, true
}

func (m *MMU) DestroyTable(table mem.Table) {
	t := table.(*Table)
	m.mu.Lock()
	defer m.mu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		delete(m.pages, e.phys)
	}
	t.entries = nil
}

func (m *MMU) IdentityMapKernel(table mem.Table) {
	// No separate kernel region in the fake MMU: the kernel never
	// dereferences user addresses except through PhysToKernelVirt, so
	// there is nothing to map here beyond marking it a no-op.
}

func (m *MMU) CurrentTable() mem.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *MMU) SetCurrentTable(table mem.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = table.(*Table)
}

func (m *MMU) PhysToKernelVirt(p mem.Pa_t) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[p]
}
