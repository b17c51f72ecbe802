// Package klog is the kernel's console logging shim. The teacher logs
// straight to fmt.Printf/os.Stdout from kernel/chentry.go and the wider
// pack's trap-glue code because a logging goroutine cannot be scheduled
// before the scheduler itself exists; we keep that habit but route every
// call through a single io.Writer so cmd/kernel can point it at the UART
// console in the demo boot and tests can point it at a buffer.
package klog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"caller"
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// / SetOutput redirects subsequent log lines to w. Until it is called,
// / lines go to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// / Printf writes a single timestamped line. Never returns an error: a
// / console write failure has nowhere useful to go in kernel context.
func Printf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "[%s] ", time.Now().UTC().Format("15:04:05.000"))
	fmt.Fprintf(out, format, args...)
	if format[len(format)-1] != '\n' {
		fmt.Fprintln(out)
	}
}

// / Fatalf logs a formatted line, dumps the caller chain that led to the
// / invariant violation, and panics. Used at the core's internal
// / invariant checks (duplicate PID insert, PID double free)
// / instead of a bare panic, so a violation report always carries its
// / call path.
func Fatalf(format string, args ...interface{}) {
	Printf(format, args...)
	mu.Lock()
	caller.Callerdump(2)
	mu.Unlock()
	panic(fmt.Sprintf(format, args...))
}
