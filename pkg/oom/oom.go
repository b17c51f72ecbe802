// Package oom carries resource-exhaustion notifications: PID space
// full, a channel's message queue full, the capability table full, or
// an MMU allocation failure (spec §7b). A reclaimer (or, in the demo
// binary, nothing at all) can listen on Ch and decide whether to make
// room and let the stalled caller retry.
//
// Adapted from the teacher's biscuit/src/oommsg (OomCh/Oommsg_t),
// generalized from "out of physical memory" to any of the core's
// resource ceilings.
package oom

// / Kind identifies which resource was exhausted.
type Kind int

const (
	// / Memory means an MMU allocation failed.
	Memory Kind = iota
	// / Pids means the PID allocator's ceiling was hit.
	Pids
	// / Queue means a channel's message queue was full.
	Queue
	// / Caps means the capability table's ceiling was hit.
	Caps
)

// / Msg_t is sent on Ch when a resource is exhausted. Resume, if
// / non-nil, is signaled by the listener once it believes room may have
// / been made; the blocked caller should retry exactly once per signal.
type Msg_t struct {
	Kind   Kind
	Need   int
	Resume chan bool
}

// / Ch is notified whenever a component hits its configured ceiling.
var Ch = make(chan Msg_t)

// / Notify sends msg on Ch without blocking if nobody is listening,
// / since a kernel component that hits a ceiling must not stall on a
// / resource-exhaustion report that nobody is there to read.
func Notify(msg Msg_t) {
	select {
	case Ch <- msg:
	default:
	}
}
