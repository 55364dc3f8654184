// boot_trace.go - bus access trace and boot report

/*
boot_trace.go - Boot Trace

The tracer hangs off the machine bus trace hook and records every
successful access in bus order: operation, address, width, value, plus a
human label for the target block. The recorded sequence is the proof
artifact for boot ordering. The firmware performs its register accesses in
a mandated order and the trace either shows that order or it does not;
tests assert on trace indices rather than on any internal bookkeeping.

The boot report at the bottom renders the post-boot machine state for a
human: stage outcomes, the final clock tree, memory geometry and any
violations, with ANSI color for the pass/fail columns.
*/

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/inhies/go-bytesize"
)

const DEFAULT_TRACE_LIMIT = 4096

type TraceEntry struct {
	Seq    int
	Op     string // "read" or "write"
	Addr   uint32
	Width  AccessWidth
	Value  uint32
	Target string
}

func (e TraceEntry) String() string {
	return fmt.Sprintf("%5d  %-5s %-7s 0x%08X %-8s 0x%08X",
		e.Seq, e.Op, e.Target, e.Addr, e.Width, e.Value)
}

type BusTracer struct {
	mutex   sync.Mutex
	entries []TraceEntry
	limit   int
	seq     int
	dropped int
}

// NewBusTracer returns a tracer holding at most limit entries. When the
// limit is reached the oldest entries fall off, so the monitor always sees
// the most recent activity.
func NewBusTracer(limit int) *BusTracer {
	if limit <= 0 {
		limit = DEFAULT_TRACE_LIMIT
	}
	return &BusTracer{limit: limit}
}

// Attach registers the tracer on a bus. Only one tracer can be attached to
// a bus at a time.
func (t *BusTracer) Attach(bus *MachineBus) {
	bus.SetTraceHook(t.record)
}

func (t *BusTracer) record(op string, addr uint32, width AccessWidth, value uint32) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	entry := TraceEntry{
		Seq:    t.seq,
		Op:     op,
		Addr:   addr,
		Width:  width,
		Value:  value,
		Target: traceTargetName(addr),
	}
	t.seq++
	if len(t.entries) >= t.limit {
		t.entries = t.entries[1:]
		t.dropped++
	}
	t.entries = append(t.entries, entry)
}

// traceTargetName labels an address with the block that decodes it.
func traceTargetName(addr uint32) string {
	switch {
	case IsPeripheralAddress(addr):
		return PeripheralName(addr)
	case addr >= SRAM_BASE && addr < PERIPH_BASE:
		return "SRAM"
	default:
		return "flash"
	}
}

// Entries returns a copy of the recorded trace in bus order.
func (t *BusTracer) Entries() []TraceEntry {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries currently held.
func (t *BusTracer) Len() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.entries)
}

// Total returns the number of accesses observed since the last Clear,
// including any that fell off the ring.
func (t *BusTracer) Total() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.seq
}

// Clear discards the trace and restarts sequence numbering.
func (t *BusTracer) Clear() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.entries = nil
	t.seq = 0
	t.dropped = 0
}

// Last returns up to n most recent entries in bus order.
func (t *BusTracer) Last(n int) []TraceEntry {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if n > len(t.entries) {
		n = len(t.entries)
	}
	out := make([]TraceEntry, n)
	copy(out, t.entries[len(t.entries)-n:])
	return out
}

// FirstWriteIndex returns the sequence number of the first write to addr,
// or -1 if the trace holds none. Ordering tests compare these.
func (t *BusTracer) FirstWriteIndex(addr uint32) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, e := range t.entries {
		if e.Op == "write" && e.Addr == addr {
			return e.Seq
		}
	}
	return -1
}

// FirstReadIndex returns the sequence number of the first read of addr, or
// -1 if the trace holds none.
func (t *BusTracer) FirstReadIndex(addr uint32) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, e := range t.entries {
		if e.Op == "read" && e.Addr == addr {
			return e.Seq
		}
	}
	return -1
}

// WritesTo returns every write recorded against addr, in bus order.
func (t *BusTracer) WritesTo(addr uint32) []TraceEntry {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var out []TraceEntry
	for _, e := range t.entries {
		if e.Op == "write" && e.Addr == addr {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// Boot report
// =============================================================================

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// BootStage is one completed step of the boot sequence, recorded by the
// orchestrator as it runs.
type BootStage struct {
	Name   string
	OK     bool
	Detail string
}

// PrintBootReport renders the post-boot machine summary. Pass a colorable
// writer so the ANSI sequences survive every platform.
func PrintBootReport(w io.Writer, m *Machine) {
	fmt.Fprintf(w, "%s==== IG32 Boot Report ====%s\n", ansiBold, ansiReset)
	fmt.Fprintf(w, "Board:  %s (flash %s, SRAM %s)\n",
		m.BoardName(),
		bytesize.New(float64(m.FlashSize())),
		bytesize.New(float64(m.SRAMSize())))

	fmt.Fprintf(w, "Stages:\n")
	for _, stage := range m.BootStages() {
		mark := fmt.Sprintf("%s OK %s", ansiGreen, ansiReset)
		if !stage.OK {
			mark = fmt.Sprintf("%sFAIL%s", ansiRed, ansiReset)
		}
		fmt.Fprintf(w, "  [%s] %s", mark, stage.Name)
		if stage.Detail != "" {
			fmt.Fprintf(w, " (%s)", stage.Detail)
		}
		fmt.Fprintf(w, "\n")
	}

	core, busClock := m.CoreClocks()
	fmt.Fprintf(w, "Clocks:\n")
	fmt.Fprintf(w, "  MCG mode     %s%s%s\n", ansiCyan, m.MCG().Mode(), ansiReset)
	fmt.Fprintf(w, "  Core/system  %.3f MHz\n", float64(core)/1e6)
	fmt.Fprintf(w, "  Bus/flash    %.3f MHz\n", float64(busClock)/1e6)

	fmt.Fprintf(w, "Trace:  %d bus accesses recorded\n", m.Tracer().Total())

	violations := m.Violations()
	if len(violations) == 0 {
		fmt.Fprintf(w, "Violations: %snone%s\n", ansiGreen, ansiReset)
		return
	}
	fmt.Fprintf(w, "Violations:\n")
	for _, v := range violations {
		fmt.Fprintf(w, "  %s%s%s\n", ansiYellow, v, ansiReset)
	}
}
