// Package stat holds the allowed-memory entry layout that backs the
// get_allowed_memory syscall: a fixed table of named physical ranges a
// process may ask map_physical_memory to map, typically device MMIO
// windows set up by whatever brought the kernel up.
//
// Adapted from the teacher's biscuit/src/stat (Stat_t), which packs a
// similarly small fixed-field record with Wxxx/Rxxx accessors and a
// Bytes() escape hatch for copying the raw struct out to user memory;
// this keeps that shape for a different record.
package stat

import "unsafe"

// / NameLen is the fixed width of an allowed-memory region's name field.
const NameLen = 16

// / AllowedMem_t is one entry of the allowed-memory table: a named
// / physical range a process may request via map_physical_memory.
type AllowedMem_t struct {
	name  [NameLen]byte
	start uint64
	size  uint64
}

// / Mk builds an allowed-memory entry. name is truncated to NameLen.
func Mk(name string, start, size uint64) AllowedMem_t {
	var am AllowedMem_t
	copy(am.name[:], name)
	am.start = start
	am.size = size
	return am
}

// / Name returns the entry's name, trimmed of trailing NUL bytes.
func (am *AllowedMem_t) Name() string {
	n := 0
	for n < NameLen && am.name[n] != 0 {
		n++
	}
	return string(am.name[:n])
}

// / Start returns the physical start address of the region.
func (am *AllowedMem_t) Start() uint64 {
	return am.start
}

// / Size returns the size in bytes of the region.
func (am *AllowedMem_t) Size() uint64 {
	return am.size
}

// / Contains reports whether the half-open range [phys, phys+size) falls
// / entirely within the allowed region, the check map_physical_memory
// / must pass before it is permitted to map device memory.
func (am *AllowedMem_t) Contains(phys, size uint64) bool {
	if size == 0 {
		return false
	}
	end := am.start + am.size
	reqEnd := phys + size
	return phys >= am.start && reqEnd <= end && reqEnd >= phys
}

// / Bytes exposes the raw little-endian bytes of the entry, the layout
// / get_allowed_memory copies into the caller's out_struct argument.
func (am *AllowedMem_t) Bytes() []uint8 {
	const sz = unsafe.Sizeof(*am)
	sl := (*[sz]uint8)(unsafe.Pointer(am))
	return sl[:]
}
