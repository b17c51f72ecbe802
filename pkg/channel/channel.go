// Package channel implements one endpoint of a capability-IPC pair: a
// bounded FIFO of messages plus the sender/receiver linkage the
// capability table looks up by token. Built on pkg/circbuf the same way
// the teacher builds pipes and the console on its own circular buffer
// (biscuit/src/circbuf); this is the new use that buffer's generic form
// was written for.
package channel

import (
	"sync"

	"circbuf"
	"climits"
	"defs"
)

// / Endpoint is one side of a channel. Sender is the peer's capability
// / token (pkg/captable.Send pushes into the endpoint whose token equals
// / the sending endpoint's Sender field); Receiver is the PID authorised
// / to recv/own this endpoint. A nil queue marks the endpoint closed.
// / Close also zeros Receiver, but a zero Receiver alone is not treated
// / as closed, since 0 is also init's PID.
type Endpoint struct {
	mu sync.Mutex

	queue    *circbuf.Circbuf[defs.Message]
	Sender   defs.Cap_t
	Receiver defs.Pid_t
}

// / New allocates an open endpoint with the configured queue capacity
// / (spec's Q, climits.Syslimit.QueueCap).
func New(sender defs.Cap_t, receiver defs.Pid_t) *Endpoint {
	return &Endpoint{
		queue:    circbuf.New[defs.Message](climits.Syslimit.QueueCap),
		Sender:   sender,
		Receiver: receiver,
	}
}

// / Closed reports whether the endpoint has been torn down (its owning
// / process died) — receiver zeroed and queue freed together, per the
// / on-death sweep in spec §4.5.
func (e *Endpoint) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closedLocked()
}

func (e *Endpoint) closedLocked() bool {
	return e.queue == nil
}

// / Push appends msg to the endpoint's own queue (the peer calls this
// / when sending to this endpoint). Returns ECLOSED if the endpoint has
// / been torn down, EFULL if the queue is at capacity.
func (e *Endpoint) Push(msg defs.Message) defs.Err_t {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closedLocked() {
		return defs.ECLOSED
	}
	if !e.queue.Push(msg) {
		return defs.EFULL
	}
	return defs.EOK
}

// / Pop removes and returns the oldest message from the endpoint's own
// / queue. Returns ECLOSED if torn down, EEMPTY if open but empty.
func (e *Endpoint) Pop() (defs.Message, defs.Err_t) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closedLocked() {
		return defs.Message{}, defs.ECLOSED
	}
	m, ok := e.queue.Pop()
	if !ok {
		return defs.Message{}, defs.EEMPTY
	}
	return m, defs.EOK
}

// / Close tears the endpoint down: frees its queue and zeros its
// / receiver. The peer endpoint is left untouched and will thereafter
// / observe ECLOSED on Push/Pop against this endpoint.
func (e *Endpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = nil
	e.Receiver = 0
}
