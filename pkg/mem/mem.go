// Package mem holds the physical-memory/MMU collaborator contract that
// the process, capability-IPC, and scheduling core is built against, but
// never implements: spec §1 places "physical page allocation and the MMU
// driver" explicitly out of scope, consumed only through alloc_pages,
// map, unmap, change_flags, walk, set_current_table, create_table,
// destroy_table, identity_map_kernel, and the physical<->kernel-virtual
// translator.
//
// The teacher's own mem package (biscuit/src/mem) implements all of this
// against a forked Go runtime with x86_64-only primitives (runtime.Cpuid,
// runtime.Vtop, runtime.Rcr4, per-CPU free lists sized by
// runtime.MAXCPUS) that has no equivalent on a stock toolchain and
// targets the wrong architecture family entirely (spec targets a 64-bit
// RISC design). Only the portable shape of that package — Pa_t, the
// page-size constants, and the Page_i-style allocator interface — is
// kept; see DESIGN.md for the full justification.
package mem

// / PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

// / PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

// / Pa_t is a physical address.
type Pa_t uintptr

// / PageAlign rounds v down to the start of its containing page.
func PageAlign(v uintptr) uintptr {
	return v &^ uintptr(PGSIZE-1)
}

// / PageOffset returns the intra-page offset of v.
func PageOffset(v uintptr) uintptr {
	return v & uintptr(PGSIZE-1)
}

// / PageRoundup rounds v up to the next page boundary.
func PageRoundup(v uintptr) uintptr {
	return PageAlign(v + uintptr(PGSIZE) - 1)
}

// / Table is an opaque handle to a process's top-level page table, as
// / returned by CreateTable. Never dereferenced by this module.
type Table interface{}

// / MMU is the contract the core consumes from the MMU driver/page
// / allocator. Flags use the PERM_* bits in pkg/defs (execute, write,
// / read, user).
type MMU interface {
	// / Alloc allocates and maps one physical page at vaddr with flags,
	// / returning the backing physical page. Fails with ok=false on
	// / physical exhaustion (§7b resource exhaustion).
	Alloc(table Table, vaddr uintptr, flags int) (phys Pa_t, ok bool)

	// / Map installs a mapping from vaddr to an already-allocated phys
	// / page with the given flags, replacing any existing mapping for
	// / that page. (The loader's segment merge reuses an existing page
	// / through ChangeFlags, not Map.)
	Map(table Table, vaddr uintptr, phys Pa_t, flags int)

	// / Unmap removes the mapping at vaddr, if any.
	Unmap(table Table, vaddr uintptr)

	// / ChangeFlags updates the permission bits of an existing mapping.
	ChangeFlags(table Table, vaddr uintptr, flags int) bool

	// / Walk returns the physical address of the page backing vaddr
	// / (pkg/vm passes it to PhysToKernelVirt), or ok=false if unmapped.
	Walk(table Table, vaddr uintptr) (entry uintptr, ok bool)

	// / CreateTable allocates a fresh top-level page table.
	CreateTable() (Table, bool)

	// / DestroyTable releases a page table and everything it still maps.
	// / Never called on the table returned for PidInit while other
	// / processes are live (spec invariant 5).
	DestroyTable(table Table)

	// / IdentityMapKernel installs the kernel's own identity mapping
	// / into a freshly created table, so kernel code keeps running
	// / immediately after a table switch.
	IdentityMapKernel(table Table)

	// / CurrentTable returns the table installed in the MMU right now.
	CurrentTable() Table

	// / SetCurrentTable switches the MMU to table (a context switch's
	// / address-space half).
	SetCurrentTable(table Table)

	// / PhysToKernelVirt returns a kernel-addressable byte slice backing
	// / the physical page p, of length PGSIZE.
	PhysToKernelVirt(p Pa_t) []byte
}
