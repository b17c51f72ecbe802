// Package loader builds a process from an executable image: constructs
// the address space, maps segments, allocates the stack, and installs
// arguments. Grounded on spec §4.3's contract; the segment-copy and
// argument-mapping mechanics reuse the teacher's pkg/vm user-memory
// primitives (UserWrite) the way biscuit's own exec path copies ELF
// segments and argv into a freshly mapped address space.
package loader

import (
	"defs"
	"image"
	"mem"
	"pid"
	"proc"
	"ustr"
	"vm"
)

// / Loader owns the collaborators spawn_from_image/spawn_thread need: an
// / MMU driver, a PID allocator, and the process table to insert into.
type Loader struct {
	MMU   mem.MMU
	Pids  *pid.Allocator
	Procs *proc.Table
}

// New builds a Loader wired to the given collaborators.
func New(mmu mem.MMU, pids *pid.Allocator, procs *proc.Table) *Loader {
	return &Loader{MMU: mmu, Pids: pids, Procs: procs}
}

// segPerms translates an image segment's R/W/X flags to page-table
// flags: exec OR write, both plus read. Preserves the spec's
// "exec else write" precedence (§7/§9): a segment marked both writable
// and executable becomes exec-only. This is a known quirk kept for
// binary compatibility, not a bug to fix.
func segPerms(imgPerms int) int {
	flags := defs.PERM_USER
	if imgPerms&defs.PERM_R != 0 {
		flags |= defs.PERM_R
	}
	if imgPerms&defs.PERM_X != 0 {
		flags |= defs.PERM_X
	} else if imgPerms&defs.PERM_W != 0 {
		flags |= defs.PERM_W
	}
	return flags
}

// / SpawnFromImage builds a process from img and inserts it into the
// / process table in state WAIT, enqueued on the ready queue (except
// / PID 0 — init is dispatched by the first trap). Returns ENOEXEC if
// / the image header says it is not executable, ENOMEM on PID or MMU
// / allocation failure. Leaves no partial record behind on any failure.
func (l *Loader) SpawnFromImage(name string, parentPid defs.Pid_t, img image.Image, stackPages int, args []byte) (defs.Pid_t, defs.Err_t) {
	hdr := img.Header()
	if !hdr.Executable {
		return 0, defs.ENOEXEC
	}

	newPid, ok := l.Pids.Alloc()
	if !ok {
		return 0, defs.ENOMEM
	}

	var table mem.Table
	if newPid == defs.PidInit {
		table = l.MMU.CurrentTable()
	} else {
		table, ok = l.MMU.CreateTable()
		if !ok {
			l.Pids.Free(newPid)
			return 0, defs.ENOMEM
		}
		l.MMU.IdentityMapKernel(table)
	}

	as := vm.New(table, l.MMU)

	maxPage, err := l.mapSegments(as, img)
	if err != defs.EOK {
		l.Pids.Free(newPid)
		return 0, err
	}

	sp, err := l.mapStack(as, maxPage, stackPages)
	if err != defs.EOK {
		l.Pids.Free(newPid)
		return 0, err
	}

	var argsVA uintptr
	var argsLen int
	if len(args) > 0 {
		argsVA, err = l.mapArgs(as, args)
		if err != defs.EOK {
			l.Pids.Free(newPid)
			return 0, err
		}
		argsLen = len(args)
	}

	user := 0
	if parentPid != defs.PidNone {
		if ph, ok := l.Procs.Get(parentPid); ok {
			user = ph.Proc().User
			ph.Release()
		}
	}

	p := &proc.Proc_t{
		Pid:          newPid,
		ThreadSource: defs.PidNone,
		User:         user,
		PC:           uint64(hdr.Entry),
		AS:           as,
		State:        defs.WAIT,
		Name:         ustr.MkUstrSlice([]uint8(name)),
	}
	p.GPRegs[defs.RegSP] = uint64(sp)
	p.GPRegs[defs.RegFP] = uint64(sp)
	if argsLen > 0 {
		p.SetA0(uint64(argsVA))
		p.SetA1(uint64(argsLen))
	}

	h := l.Procs.Insert(p)
	h.Release()
	if newPid != defs.PidInit {
		l.Procs.EnqueueReady(newPid)
	}
	return newPid, defs.EOK
}

// mapSegments maps every loadable segment, merging overlapping pages
// instead of failing when a page is already mapped to user memory, and
// returns the address of the page just above the highest page touched.
func (l *Loader) mapSegments(as *vm.AddrSpace_t, img image.Image) (uintptr, defs.Err_t) {
	var maxPage uintptr
	for _, seg := range img.Segments() {
		flags := segPerms(seg.Perms)
		start := mem.PageAlign(seg.Vaddr)
		end := mem.PageRoundup(seg.Vaddr + uintptr(seg.MemSize))

		buf := make([]byte, seg.FileSize)
		if n := img.ReadAt(seg, buf); n != len(buf) {
			return 0, defs.ENOEXEC
		}

		off := seg.Vaddr - start
		written := 0
		for va := start; va < end; va += uintptr(mem.PGSIZE) {
			if _, already := l.MMU.Walk(as.Table, va); !already {
				phys, ok := l.MMU.Alloc(as.Table, va, flags)
				if !ok {
					return 0, defs.ENOMEM
				}
				_ = phys
			} else {
				l.MMU.ChangeFlags(as.Table, va, flags)
			}

			pageStart := 0
			if va == start {
				pageStart = int(off)
			}
			remaining := seg.FileSize - written
			if remaining > 0 {
				n, errc := as.UserWrite(va+uintptr(pageStart), buf[written:])
				if errc != defs.EOK {
					return 0, errc
				}
				written += n
			}

			if va+uintptr(mem.PGSIZE) > maxPage {
				maxPage = va
			}
		}
	}
	return mem.PageRoundup(maxPage + uintptr(mem.PGSIZE)), defs.EOK
}

// mapStack allocates stackPages pages starting at maxPage (the page just
// above the highest segment page), setting
// SP = FP = maxPage + stackPages*PGSIZE - 8, i.e.
// (highest segment page index + stackPages + 1)*PGSIZE - 8, per spec §4.3
// step 5. Returns the stack pointer.
func (l *Loader) mapStack(as *vm.AddrSpace_t, maxPage uintptr, stackPages int) (uintptr, defs.Err_t) {
	stackStart := maxPage
	for i := 0; i < stackPages; i++ {
		va := stackStart + uintptr(i*mem.PGSIZE)
		if _, ok := l.MMU.Alloc(as.Table, va, defs.PERM_USER|defs.PERM_R|defs.PERM_W); !ok {
			return 0, defs.ENOMEM
		}
	}
	sp := stackStart + uintptr(stackPages*mem.PGSIZE) - 8
	as.LastVirtualPage = stackStart + uintptr((stackPages+1)*mem.PGSIZE)
	return sp, defs.EOK
}

// mapArgs maps the argument buffer page by page starting at
// as.LastVirtualPage, copying from args, and returns its virtual
// address (spec §4.3 step 7).
func (l *Loader) mapArgs(as *vm.AddrSpace_t, args []byte) (uintptr, defs.Err_t) {
	argsVA := as.LastVirtualPage
	npages := (len(args) + mem.PGSIZE - 1) / mem.PGSIZE
	if npages == 0 {
		npages = 1
	}
	for i := 0; i < npages; i++ {
		va := argsVA + uintptr(i*mem.PGSIZE)
		if _, ok := l.MMU.Alloc(as.Table, va, defs.PERM_USER|defs.PERM_R); !ok {
			return 0, defs.ENOMEM
		}
	}
	if _, err := as.UserWrite(argsVA, args); err != defs.EOK {
		return 0, err
	}
	as.LastVirtualPage = argsVA + uintptr(npages*mem.PGSIZE)
	return argsVA, defs.EOK
}

// / EncodeArgs packs argv into the flat byte buffer the loader maps as a
// / process's argument page: each argument's bytes followed by a NUL,
// / concatenated in order, with no length prefix. This is the wire shape the
// / original's argc/argv pair is flattened into for this core's single
// / args/args_len ABI slot (spec §6 syscall 5, supplemented from the
// / original's spawn(..., argc, argv)).
func EncodeArgs(argv []string) []byte {
	var buf []byte
	for _, a := range argv {
		buf = append(buf, []byte(a)...)
		buf = append(buf, 0)
	}
	return buf
}

// / SpawnThread resolves parentPid to its address-space leader (follow
// / ThreadSource one hop), allocates the new stack inside the parent's
// / address space at its LastVirtualPage bump pointer, and inserts a
// / record sharing AS with ThreadSource = leader's pid. entryPC and data
// / are taken verbatim from the caller's own view — the thread must
// / already share the parent's address space, so no copy is made.
func (l *Loader) SpawnThread(parentPid defs.Pid_t, entryPC uintptr, data uint64, stackPages int) (defs.Pid_t, defs.Err_t) {
	ph, ok := l.Procs.Get(parentPid)
	if !ok {
		return 0, defs.ENOENT
	}
	parent := ph.Proc()
	leaderPid := parent.Pid
	if parent.ThreadSource != defs.PidNone {
		leaderPid = parent.ThreadSource
	}
	as := parent.AS
	ph.Release()

	newPid, ok := l.Pids.Alloc()
	if !ok {
		return 0, defs.ENOMEM
	}

	as.Lock()
	stackStart := as.LastVirtualPage
	for i := 0; i < stackPages; i++ {
		va := stackStart + uintptr(i*mem.PGSIZE)
		if _, ok := l.MMU.Alloc(as.Table, va, defs.PERM_USER|defs.PERM_R|defs.PERM_W); !ok {
			as.Unlock()
			l.Pids.Free(newPid)
			return 0, defs.ENOMEM
		}
	}
	sp := stackStart + uintptr(stackPages*mem.PGSIZE) - 8
	as.LastVirtualPage = stackStart + uintptr((stackPages+1)*mem.PGSIZE)
	as.Unlock()

	p := &proc.Proc_t{
		Pid:          newPid,
		ThreadSource: leaderPid,
		User:         parent.User,
		PC:           uint64(entryPC),
		AS:           as,
		State:        defs.WAIT,
		Name:         parent.Name,
	}
	p.GPRegs[defs.RegSP] = uint64(sp)
	p.GPRegs[defs.RegFP] = uint64(sp)
	p.SetA0(data)
	p.SetA1(0)

	h := l.Procs.Insert(p)
	h.Release()
	l.Procs.EnqueueReady(newPid)
	return newPid, defs.EOK
}
