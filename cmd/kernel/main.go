// Command kernel boots a minimal demo: it spawns init from a built-in
// image, runs a handful of cooperative dispatch rounds against the
// scheduler, and optionally dumps a pprof profile of where dispatch
// time went.
//
// Adapted from the teacher's cmd/kernel (biscuit/src/kernel/chentry.go),
// which patched an ELF entry point as a build-time tool rather than
// running anything; this repurposes the same command slot into the
// kernel's actual entry point, wiring the loader, process table,
// scheduler, capability table, and syscall dispatcher together over
// pkg/fakemmu.
package main

import (
	"flag"
	"os"

	"abi"
	"captable"
	"climits"
	"defs"
	"fakemmu"
	"image"
	"klog"
	"loader"
	"pid"
	"proc"
	"sched"
	"stat"
	"stats"
	"tnote"
)

type wallClock struct{}

func (wallClock) Now() defs.Time_t {
	return defs.Time_t{}
}

func main() {
	profile := flag.Bool("profile", false, "dump a pprof profile of dispatch accounting on exit")
	rounds := flag.Int("rounds", 4, "number of cooperative dispatch rounds to run")
	flag.Parse()

	stats.Enabled = *profile

	mmu := fakemmu.New()
	// init (pid 0) reuses the currently active table, so one must exist.
	initTable, _ := mmu.CreateTable()
	mmu.SetCurrentTable(initTable)
	procs := proc.New()
	pids := pid.New(defs.Pid_t(climits.Syslimit.Procs.Value()))
	notes := tnote.New()
	caps := captable.New()
	ld := loader.New(mmu, pids, procs)

	allowed := abi.NewAllowedMemTable([]stat.AllowedMem_t{
		stat.Mk("uart0", 0x10000000, 0x1000),
	})
	dispatcher := abi.NewDispatcher(procs, caps, ld, mmu, allowed)

	s := sched.New(procs, mmu, notes, wallClock{})

	initImg := image.NewReader(
		[]byte{0, 0, 0, 0},
		image.Header{Entry: 0x1000, Executable: true},
		[]image.Segment{{Vaddr: 0x1000, FileOffset: 0, FileSize: 4, MemSize: 4096, Perms: defs.PERM_R | defs.PERM_X}},
	)

	initPid, err := ld.SpawnFromImage("init", defs.PidNone, initImg, 2, []byte("hello"))
	if err != defs.EOK {
		klog.Printf("failed to spawn init: %d", err)
		os.Exit(1)
	}
	abi.ConsoleWrite(func(s string) { klog.Printf("%s", s) }, "spawned init as pid 0")

	dispatcher.SetFaultHandler(initPid, 0x1000)

	current := defs.PidNone
	for i := 0; i < *rounds; i++ {
		stats.Global.Switches.Inc()
		next, ok := s.NextRunnable(current)
		if !ok {
			klog.Printf("round %d: nothing runnable", i)
			break
		}
		if entry, ok := dispatcher.DeliverFault(next, abi.FaultInfo{Cause: 0}); ok {
			klog.Printf("round %d: pid %d has a fault handler at %#x", i, next, entry)
		}
		tf := &sched.TrapFrame{}
		s.Switch(tf, current, next)
		klog.Printf("round %d: dispatched pid %d", i, next)
		current = next
	}

	if *profile {
		f, err := os.Create("kernel.pprof")
		if err != nil {
			klog.Printf("profile: %v", err)
			return
		}
		defer f.Close()
		samples := []stats.Sample{}
		for _, p := range procs.Snapshot() {
			samples = append(samples, stats.Sample{Pid: uint64(p), Name: "proc"})
		}
		if err := stats.WriteProfile(f, samples); err != nil {
			klog.Printf("profile: %v", err)
		}
	}
}
