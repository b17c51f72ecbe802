// Package abi holds the pieces of the syscall ABI this core provides:
// the collaborators syscall handlers need, the allowed-memory table,
// the console line cap, and unhandled-fault delivery to a process's
// installed handler. It does not decode syscall numbers or route them
// to handlers; the syscall numbers themselves are in pkg/defs.
// Enriched from justanotherdot-biscuit's trapstub/syscall glue (the
// teacher's own kernel package held no running trap dispatcher), wired
// against this core's defs.SYS_* numbers and register conventions.
package abi

import (
	"golang.org/x/arch/x86/x86asm"

	"captable"
	"climits"
	"defs"
	"loader"
	"mem"
	"proc"
	"stat"
)

// / FaultInfo is delivered to a process's installed fault handler, or
// / used to decide to kill the process if none is set (spec §7
// / "User-visible failure").
type FaultInfo struct {
	Cause uint64
	PC    uint64
	SP    uint64
	FP    uint64
}

// / FaultHandler_t records a process's installed fault handler entry
// / point. A zero value (no handler installed) means "kill on fault".
type FaultHandler_t struct {
	Fn uintptr
	Set bool
}

// / DecodeFaultLen returns the length in bytes of the instruction at pc,
// / read from code, so a fault handler that chooses to resume past a
// / benign fault knows how far to advance pc. Uses x86asm as the only
// / instruction-length decoder available in the example corpus; a RISC
// / target would use fixed-width decoding in a real port, but no RISC
// / decoder ships in this dependency set, so this reports the x86
// / fallback length and callers on our target should prefer advancing
// / by a fixed instruction width instead when one is known.
func DecodeFaultLen(code []byte) int {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return 0
	}
	return inst.Len
}

// / AllowedMemTable is the fixed set of physical ranges
// / map_physical_memory may authorise against (spec §6 syscalls 8/9).
type AllowedMemTable struct {
	entries []stat.AllowedMem_t
}

// / NewAllowedMemTable builds a table from entries.
func NewAllowedMemTable(entries []stat.AllowedMem_t) *AllowedMemTable {
	return &AllowedMemTable{entries: entries}
}

// / Get returns the entry at index, and ok=false if index is out of
// / range (get_allowed_memory, syscall 8).
func (t *AllowedMemTable) Get(index int) (stat.AllowedMem_t, bool) {
	if index < 0 || index >= len(t.entries) {
		return stat.AllowedMem_t{}, false
	}
	return t.entries[index], true
}

// / Authorize reports whether [phys, phys+size) falls within some
// / configured allowed-memory entry (map_physical_memory, syscall 9).
func (t *AllowedMemTable) Authorize(phys, size uint64) bool {
	for i := range t.entries {
		if t.entries[i].Contains(phys, size) {
			return true
		}
	}
	return false
}

// / Dispatcher holds the collaborators syscall handlers need and each
// / process's installed fault handler. It has no per-syscall-number
// / dispatch method.
type Dispatcher struct {
	Procs   *proc.Table
	Caps    *captable.Table
	Loader  *loader.Loader
	MMU     mem.MMU
	Allowed *AllowedMemTable

	handlers map[defs.Pid_t]FaultHandler_t
}

// NewDispatcher builds a Dispatcher wired to the given collaborators.
func NewDispatcher(procs *proc.Table, caps *captable.Table, ld *loader.Loader, mmu mem.MMU, allowed *AllowedMemTable) *Dispatcher {
	return &Dispatcher{
		Procs:    procs,
		Caps:     caps,
		Loader:   ld,
		MMU:      mmu,
		Allowed:  allowed,
		handlers: make(map[defs.Pid_t]FaultHandler_t),
	}
}

// / SetFaultHandler installs fn as pid's fault handler (syscall 10).
func (d *Dispatcher) SetFaultHandler(pid_ defs.Pid_t, fn uintptr) {
	d.handlers[pid_] = FaultHandler_t{Fn: fn, Set: true}
}

// / FaultHandler returns pid's installed handler, if any.
func (d *Dispatcher) FaultHandler(pid_ defs.Pid_t) (FaultHandler_t, bool) {
	h, ok := d.handlers[pid_]
	return h, ok && h.Set
}

// / DeliverFault implements spec §7's unhandled-fault path: if pid has
// / an installed handler, its entry point is returned for the caller to
// / splice into a trap frame together with info; otherwise ok=false and
// / the caller must kill pid. info itself is not read or returned.
func (d *Dispatcher) DeliverFault(pid_ defs.Pid_t, info FaultInfo) (entry uintptr, ok bool) {
	h, has := d.FaultHandler(pid_)
	if !has {
		return 0, false
	}
	return h.Fn, true
}

// / ConsoleWrite enforces the console line-length cap (supplemented
// / from the original's uart_puts) before handing off to klog.
func ConsoleWrite(write func(string), s string) {
	if len(s) > climits.Syslimit.ConsoleLine {
		s = s[:climits.Syslimit.ConsoleLine]
	}
	write(s)
}
