// Package proc owns process records and the process table. The table
// was left as an empty stub in the teacher — every other package here
// has a direct teacher ancestor, but this one is assembled fresh,
// following the concurrency discipline the teacher uses elsewhere
// (hashtable's lock-free reads, tinfo's boolean CAS mutex) generalized
// to the table's own single-writer/many-reader word lock.
//
// The table behaves as a single-writer/many-reader lock: a single word
// whose bit 0 is a writer flag and whose remaining bits count concurrent
// readers (incremented/decremented by 2 so the writer bit never
// collides with the reader count). Each record additionally carries its
// own boolean mutex, acquired by compare-and-swap and released by a
// plain store — get() pins a record under a read-reference and then
// takes that per-record lock in one call, excluding both removal and
// other concurrent mutators of the same record.
package proc

import (
	"runtime"
	"sync"
	"sync/atomic"

	"defs"
	"klog"
	"ustr"
	"vm"
)

// / Proc_t is one process's record.
type Proc_t struct {
	recLock uint32 // per-record boolean mutex: 0 free, 1 held

	Pid          defs.Pid_t
	ThreadSource defs.Pid_t // defs.PidNone if not a thread
	User         int

	GPRegs [defs.NumGPRegs]uint64
	FPRegs [defs.NumFPRegs]uint64
	PC     uint64

	AS *vm.AddrSpace_t

	State defs.State_t

	WakeOnTime defs.Time_t

	LockRef   uintptr
	LockType  defs.LockType_t
	LockValue uint64

	Name ustr.Ustr
}

// / A0 returns the syscall return-value register.
func (p *Proc_t) A0() uint64 { return p.GPRegs[defs.RegA0] }

// / SetA0 writes the syscall return-value register.
func (p *Proc_t) SetA0(v uint64) { p.GPRegs[defs.RegA0] = v }

// / A1 returns the second syscall return-value register.
func (p *Proc_t) A1() uint64 { return p.GPRegs[defs.RegA1] }

// / SetA1 writes the second syscall return-value register.
func (p *Proc_t) SetA1(v uint64) { p.GPRegs[defs.RegA1] = v }

func (p *Proc_t) lock() {
	for !atomic.CompareAndSwapUint32(&p.recLock, 0, 1) {
		runtime.Gosched()
	}
}

func (p *Proc_t) unlock() {
	atomic.StoreUint32(&p.recLock, 0)
}

// / Handle pins a process record: the table cannot remove it, and no
// / other caller can take its per-record lock, until Release is called.
type Handle struct {
	p   *Proc_t
	tbl *Table
}

// / Proc returns the pinned record. Valid only until Release.
func (h *Handle) Proc() *Proc_t { return h.p }

// / Release drops the per-record lock and the table read-reference the
// / handle was holding.
func (h Handle) Release() {
	h.p.unlock()
	h.tbl.releaseRead()
}

// / Table owns every live process record, guarded by a single
// / count-with-writer-bit word (spec §5): bit 0 set means a writer holds
// / the table; bits 1+ count concurrent readers, incremented/decremented
// / by 2.
type Table struct {
	word  uint32
	procs map[defs.Pid_t]*Proc_t

	ready readyQueue
}

// / New allocates an empty process table.
func New() *Table {
	return &Table{procs: make(map[defs.Pid_t]*Proc_t)}
}

func (t *Table) acquireRead() {
	for {
		old := atomic.LoadUint32(&t.word)
		for old&1 != 0 {
			runtime.Gosched()
			old = atomic.LoadUint32(&t.word)
		}
		if atomic.CompareAndSwapUint32(&t.word, old, old+2) {
			return
		}
	}
}

func (t *Table) releaseRead() {
	atomic.AddUint32(&t.word, ^uint32(1)) // -2
}

func (t *Table) acquireWrite() {
	for !atomic.CompareAndSwapUint32(&t.word, 0, 1) {
		runtime.Gosched()
	}
}

func (t *Table) releaseWrite() {
	atomic.StoreUint32(&t.word, 0)
}

// / Get takes a read-reference on the table and the per-record mutex of
// / pid's record, returning a Handle. ok is false if no such record
// / exists (table invariant 1), in which case no lock is held.
func (t *Table) Get(pid defs.Pid_t) (Handle, bool) {
	t.acquireRead()
	p, ok := t.procs[pid]
	if !ok {
		t.releaseRead()
		return Handle{}, false
	}
	p.lock()
	return Handle{p: p, tbl: t}, true
}

// / Insert adds a freshly built record under a write-reference. Panics
// / if pid is already present — callers must have allocated pid from
// / pkg/pid first (table invariant 1: one record per live PID).
func (t *Table) Insert(p *Proc_t) Handle {
	t.acquireWrite()
	if _, exists := t.procs[p.Pid]; exists {
		t.releaseWrite()
		klog.Fatalf("proc: duplicate pid insert: %d", p.Pid)
	}
	t.procs[p.Pid] = p
	t.releaseWrite()

	t.acquireRead()
	p.lock()
	return Handle{p: p, tbl: t}
}

// / Remove deletes pid's record under a write-reference. No-op if
// / absent.
func (t *Table) Remove(pid defs.Pid_t) {
	t.acquireWrite()
	delete(t.procs, pid)
	t.releaseWrite()
}

// / Snapshot returns every live PID at the instant of the call, used by
// / cmd/kernel to build its profile samples.
func (t *Table) Snapshot() []defs.Pid_t {
	t.acquireRead()
	defer t.releaseRead()
	pids := make([]defs.Pid_t, 0, len(t.procs))
	for pid := range t.procs {
		pids = append(pids, pid)
	}
	return pids
}

// / EnqueueReady appends pid to the ready queue. A PID is present at
// / most once per residency (table invariant 4); callers must not
// / enqueue a PID already queued.
func (t *Table) EnqueueReady(pid defs.Pid_t) {
	t.ready.enqueue(pid)
}

// / DequeueReady removes and returns the oldest ready PID, or ok=false
// / if the queue is empty.
func (t *Table) DequeueReady() (defs.Pid_t, bool) {
	return t.ready.dequeue()
}

// / ReadyLen reports the ready queue's current length, the bound
// / next_runnable's single sweep scans (spec §4.4).
func (t *Table) ReadyLen() int {
	return t.ready.len()
}

// readyQueue is the single exclusive-boolean-guarded FIFO of ready
// PIDs (spec §5 "Ready-queue mutex"). Unbounded, since the live process
// count is not fixed the way a channel's message queue is.
type readyQueue struct {
	mu sync.Mutex
	q  []defs.Pid_t
}

func (r *readyQueue) enqueue(pid defs.Pid_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.q = append(r.q, pid)
}

func (r *readyQueue) dequeue() (defs.Pid_t, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.q) == 0 {
		return 0, false
	}
	pid := r.q[0]
	r.q = r.q[1:]
	return pid, true
}

func (r *readyQueue) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.q)
}
