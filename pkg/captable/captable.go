// Package captable implements the capability table: a map from
// unforgeable tokens to channel endpoints, enforcing receiver authority
// on every operation. Built on pkg/hashtable for the token->endpoint
// store, guarded by one additional exclusive mutex for the
// allocate/insert sequence the table itself performs (spec §5
// "Capability-table mutex: single exclusive boolean taken for every
// capability op" — the table is small enough that one critical section
// per op is adequate, so this wraps the hashtable's own per-bucket
// locking rather than replacing it).
package captable

import (
	"sync"

	"channel"
	"climits"
	"defs"
	"hashtable"
	"proc"
)

func hashCap(c defs.Cap_t) uint32 {
	return uint32(c) ^ uint32(c>>32)
}

// / Table maps capability tokens to endpoints.
type Table struct {
	mu   sync.Mutex
	eps  *hashtable.Hashtable[defs.Cap_t, *channel.Endpoint]
	next defs.Cap_t
}

// / New allocates an empty capability table.
func New() *Table {
	return &Table{
		eps:  hashtable.New[defs.Cap_t, *channel.Endpoint](64, hashCap),
		next: 1, // 0 (defs.CapNone) is never a valid token
	}
}

// / allocCap finds a free token by incrementing until an empty slot is
// / found — a placeholder for unguessable generation (spec §9 Open
// / Question), acceptable here because token space exhaustion is
// / reported as resource exhaustion rather than silently wrapping.
func (t *Table) allocCap() (defs.Cap_t, bool) {
	for i := 0; i < 1<<20; i++ {
		c := t.next
		t.next++
		if t.next == 0 {
			t.next = 1
		}
		if _, exists := t.eps.Get(c); !exists {
			return c, true
		}
	}
	return 0, false
}

// / CreatePair allocates two tokens and inserts a linked pair of
// / endpoints, each carrying the other's token as Sender. Returns
// / ENOMEM if the capability-table ceiling (climits.Syslimit.Caps) or
// / the token space is exhausted.
func (t *Table) CreatePair(pidA, pidB defs.Pid_t) (defs.Cap_t, defs.Cap_t, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !climits.Syslimit.Caps.Taken(2) {
		return 0, 0, defs.ENOMEM
	}
	capA, ok := t.allocCap()
	if !ok {
		climits.Syslimit.Caps.Given(2)
		return 0, 0, defs.ENOMEM
	}
	capB, ok := t.allocCap()
	if !ok {
		climits.Syslimit.Caps.Given(2)
		return 0, 0, defs.ENOMEM
	}

	epA := channel.New(capB, pidA)
	epB := channel.New(capA, pidB)
	t.eps.Set(capA, epA)
	t.eps.Set(capB, epB)
	return capA, capB, defs.EOK
}

// / authorised reports whether callerPid may act as receiver of an
// / endpoint whose receiver is recv: the caller is recv itself, recv's
// / thread-leader, or a sibling thread of the same leader (spec
// / invariant 6, table invariant 2).
func authorised(callerPid defs.Pid_t, recv defs.Pid_t, procs *proc.Table) bool {
	if callerPid == recv {
		return true
	}
	leaderOf := func(pid defs.Pid_t) defs.Pid_t {
		h, ok := procs.Get(pid)
		if !ok {
			return defs.PidNone
		}
		defer h.Release()
		ts := h.Proc().ThreadSource
		if ts == defs.PidNone {
			return pid
		}
		return ts
	}
	return leaderOf(callerPid) != defs.PidNone && leaderOf(callerPid) == leaderOf(recv)
}

// / Clone allocates a new token whose endpoint is a one-way view back
// / into original's peer queue: receiver = callerPid, sender = original.
// / Allowed only when callerPid is authorised against original's
// / current receiver (spec §4.5 clone).
func (t *Table) Clone(procs *proc.Table, callerPid defs.Pid_t, original defs.Cap_t) (defs.Cap_t, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()

	origEp, ok := t.eps.Get(original)
	if !ok {
		return 0, defs.EINVAL
	}
	if !authorised(callerPid, origEp.Receiver, procs) {
		return 0, defs.EPERM
	}
	if !climits.Syslimit.Caps.Take() {
		return 0, defs.ENOMEM
	}
	newCap, ok := t.allocCap()
	if !ok {
		climits.Syslimit.Caps.Give()
		return 0, defs.ENOMEM
	}
	ep := channel.New(original, callerPid)
	t.eps.Set(newCap, ep)
	return newCap, defs.EOK
}

// / Transfer moves an endpoint's receiver from oldOwner to newOwner,
// / verifying the current receiver is oldOwner and rejecting any
// / transfer that would cross the init trust line: a non-init,
// / non-init-thread process may not be granted a capability whose peer
// / involves init.
func (t *Table) Transfer(procs *proc.Table, cap_ defs.Cap_t, oldOwner, newOwner defs.Pid_t) defs.Err_t {
	t.mu.Lock()
	defer t.mu.Unlock()

	ep, ok := t.eps.Get(cap_)
	if !ok {
		return defs.EINVAL
	}
	if ep.Receiver != oldOwner {
		return defs.ENOOWNER
	}
	if t.connectsToInitLocked(procs, cap_) && !isInitOrThread(procs, newOwner) {
		return defs.EINVAL
	}
	ep.Receiver = newOwner
	return defs.EOK
}

// / Send looks up the caller's token cap, then its peer (cap.Sender),
// / and pushes msg into the peer's queue.
func (t *Table) Send(cap_ defs.Cap_t, msg defs.Message) defs.Err_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, ok := t.eps.Get(cap_)
	if !ok {
		return defs.EINVAL
	}
	peer, ok := t.eps.Get(ep.Sender)
	if !ok {
		return defs.EINVAL
	}
	return peer.Push(msg)
}

// / SendInterrupt pushes an IRQ notification directly into cap's own
// / queue (interrupts are delivered to the endpoint the driver process
// / holds, not routed through a peer).
func (t *Table) SendInterrupt(cap_ defs.Cap_t, irqID uint64) defs.Err_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, ok := t.eps.Get(cap_)
	if !ok {
		return defs.EINVAL
	}
	return ep.Push(defs.Message{Type: defs.MsgIRQ, Source: 0, Data: irqID})
}

// / Recv requires cap.Receiver == callerPid and pops from cap's own
// / queue.
func (t *Table) Recv(callerPid defs.Pid_t, cap_ defs.Cap_t) (defs.Message, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, ok := t.eps.Get(cap_)
	if !ok {
		return defs.Message{}, defs.EINVAL
	}
	if ep.Receiver != callerPid {
		return defs.Message{}, defs.EINVAL
	}
	return ep.Pop()
}

func isInitOrThread(procs *proc.Table, pid defs.Pid_t) bool {
	if pid == defs.PidInit {
		return true
	}
	h, ok := procs.Get(pid)
	if !ok {
		return false
	}
	defer h.Release()
	return h.Proc().ThreadSource == defs.PidInit
}

// / ConnectsToInit reports whether either peer of cap is init or an
// / init thread — used by syscall authorisation to detect privileged
// / channels.
func (t *Table) ConnectsToInit(procs *proc.Table, cap_ defs.Cap_t) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectsToInitLocked(procs, cap_)
}

func (t *Table) connectsToInitLocked(procs *proc.Table, cap_ defs.Cap_t) bool {
	ep, ok := t.eps.Get(cap_)
	if !ok {
		return false
	}
	if isInitOrThread(procs, ep.Receiver) {
		return true
	}
	peer, ok := t.eps.Get(ep.Sender)
	if !ok || peer.Closed() {
		// Peer already torn down: fall through to the safer
		// interpretation and treat a one-sided closed channel as
		// non-privileged rather than guessing.
		return false
	}
	return isInitOrThread(procs, peer.Receiver)
}

// / OnDeath scans every endpoint and, for each whose receiver is
// / dyingPid, frees its queue and zeros its receiver. The peer endpoint
// / survives and will thereafter report closed on send/recv (spec P6).
func (t *Table) OnDeath(dyingPid defs.Pid_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var dead []defs.Cap_t
	t.eps.Iter(func(c defs.Cap_t, ep *channel.Endpoint) bool {
		if ep.Receiver == dyingPid {
			dead = append(dead, c)
		}
		return false
	})
	for _, c := range dead {
		ep, ok := t.eps.Get(c)
		if !ok {
			continue
		}
		ep.Close()
		climits.Syslimit.Caps.Give()
	}
}
