// mcg_engine.go - Multipurpose Clock Generator hardware model

/*
mcg_engine.go - MCG Engine

Models the clock generator's control registers and the settling behaviour of
its status bits. Control writes never change MCG_S directly; they arm pending
transitions that land only after the configured number of MCG_S reads. A
transition armed with N settle reads stays invisible for N consecutive status
reads and becomes visible on read N+1, so firmware that writes a control
register and barrels ahead without polling observes stale status, exactly the
failure mode the silicon produces.

Dependencies between bits are honoured: CLKST cannot land on the external
clock before OSCINIT0 reports the crystal ready, CLKST cannot land on the PLL
before PLLST has switched, and the LOCK0 countdown is itself gated on PLLST,
since the PLL cannot begin acquiring until it is selected. LOCK0 additionally
requires the PRDIV0-divided reference to fall inside the PLL's input window;
a misconfigured divider leaves LOCK0 clear forever.
*/

package main

import "sync"

// Internal reference and FLL figures for the simulated part.
const (
	MCG_IRC_SLOW_HZ = 32768
	MCG_IRC_FAST_HZ = 4000000

	// Default FLL factor (DRST_DRS=0, DMX32=0): 32.768kHz * 640 = 20.97MHz.
	MCG_FLL_FACTOR_DEFAULT = 640

	// PLL multiplier is VDIV0 + this base.
	PLL_VDIV_BASE = 24
)

// MCGTiming holds the settle figures for each status bit, in units of MCG_S
// reads. The Fails flags model broken hardware for fault injection: the
// corresponding bit then never sets regardless of configuration.
type MCGTiming struct {
	OscStartupReads  int
	IrefSwitchReads  int
	ClkstSwitchReads int
	PllstSwitchReads int
	PllLockReads     int

	OscFails     bool
	PllLockFails bool
}

// DefaultMCGTiming returns the ig32dx256 reference figures.
func DefaultMCGTiming() MCGTiming {
	return MCGTiming{
		OscStartupReads:  DEFAULT_OSC_STARTUP_READS,
		IrefSwitchReads:  DEFAULT_IREF_SWITCH_READS,
		ClkstSwitchReads: DEFAULT_CLKST_SWITCH_READS,
		PllstSwitchReads: DEFAULT_PLLST_SWITCH_READS,
		PllLockReads:     DEFAULT_PLL_LOCK_READS,
	}
}

// mcgPending is a status transition in flight. counter is the number of
// MCG_S reads that still observe the old state; a negative counter never
// lands. dependsOn, when non-nil, freezes the countdown until it reports
// true.
type mcgPending struct {
	field     string
	mask      uint8
	value     uint8
	counter   int
	armedAt   uint64
	dependsOn func() bool
}

type MCGEngine struct {
	mutex sync.Mutex

	c1, c2, c3, c4, c5, c6 uint8
	status                 uint8

	crystalHz uint32
	timing    MCGTiming

	pending     []mcgPending
	statusReads uint64

	// Fired when a pending transition lands: field name and the number of
	// MCG_S reads between arming and landing. The machine wires this to
	// the boot trace.
	onTransition func(field string, waited uint64)
}

func NewMCGEngine(crystalHz uint32, timing MCGTiming) *MCGEngine {
	e := &MCGEngine{
		crystalHz: crystalHz,
		timing:    timing,
	}
	e.resetState()
	return e
}

// resetState restores power-on register values: FEI mode, slow internal
// reference driving the FLL, oscillator idle.
func (e *MCGEngine) resetState() {
	e.c1 = MCG_C1_IREFS_INTERNAL
	e.c2 = MCG_C2_LOCRE0
	e.c3 = 0
	e.c4 = 0
	e.c5 = 0
	e.c6 = 0
	e.status = MCG_S_IREFST_INTERNAL
	e.pending = nil
	e.statusReads = 0
}

// SetTransitionHook registers the landing callback. Must be called before
// the machine powers on.
func (e *MCGEngine) SetTransitionHook(hook func(field string, waited uint64)) {
	e.onTransition = hook
}

// SetTiming replaces the settle figures. Scenario scripts use this before
// power-on to stretch or shrink individual waits.
func (e *MCGEngine) SetTiming(timing MCGTiming) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.timing = timing
	e.recomputeTargets()
}

// Timing returns the current settle figures.
func (e *MCGEngine) Timing() MCGTiming {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.timing
}

// SetOscillatorFailure marks the crystal as one that never starts.
func (e *MCGEngine) SetOscillatorFailure(fails bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.timing.OscFails = fails
	e.recomputeTargets()
}

// SetPLLLockFailure marks the PLL as one that never acquires lock.
func (e *MCGEngine) SetPLLLockFailure(fails bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.timing.PllLockFails = fails
	e.recomputeTargets()
}

func (e *MCGEngine) HandleRead(addr uint32) uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	switch addr {
	case MCG_C1:
		return uint32(e.c1)
	case MCG_C2:
		return uint32(e.c2)
	case MCG_C3:
		return uint32(e.c3)
	case MCG_C4:
		return uint32(e.c4)
	case MCG_C5:
		return uint32(e.c5)
	case MCG_C6:
		return uint32(e.c6)
	case MCG_S:
		return uint32(e.readStatus())
	default:
		return 0
	}
}

func (e *MCGEngine) HandleWrite(addr uint32, value uint32) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	v := uint8(value)
	switch addr {
	case MCG_C1:
		e.c1 = v
	case MCG_C2:
		e.c2 = v
	case MCG_C3:
		e.c3 = v
	case MCG_C4:
		e.c4 = v
	case MCG_C5:
		e.c5 = v
	case MCG_C6:
		e.c6 = v
	case MCG_S:
		// Read-only; hardware discards the write.
		return
	default:
		return
	}
	e.recomputeTargets()
}

// readStatus advances every eligible pending transition by one read, applies
// those whose settle time has elapsed, then returns the (possibly updated)
// status byte. Called with the mutex held.
func (e *MCGEngine) readStatus() uint8 {
	e.statusReads++

	kept := e.pending[:0]
	for _, p := range e.pending {
		if p.counter < 0 {
			kept = append(kept, p)
			continue
		}
		if p.dependsOn != nil && !p.dependsOn() {
			kept = append(kept, p)
			continue
		}
		if p.counter > 0 {
			p.counter--
			kept = append(kept, p)
			continue
		}
		e.status = (e.status &^ p.mask) | p.value
		if e.onTransition != nil {
			e.onTransition(p.field, e.statusReads-p.armedAt)
		}
	}
	e.pending = kept

	return e.status
}

// arm replaces any pending transition for the field. A target equal to the
// current status cancels the pending instead; a target equal to a pending
// already in flight leaves its countdown undisturbed.
func (e *MCGEngine) arm(field string, mask, value uint8, counter int, dependsOn func() bool) {
	for i := range e.pending {
		if e.pending[i].field != field {
			continue
		}
		if e.pending[i].value == value && (e.pending[i].counter < 0) == (counter < 0) {
			return // already in flight with the same target
		}
		e.pending = append(e.pending[:i], e.pending[i+1:]...)
		break
	}
	if e.status&mask == value {
		return // already there
	}
	e.pending = append(e.pending, mcgPending{
		field:     field,
		mask:      mask,
		value:     value,
		counter:   counter,
		armedAt:   e.statusReads,
		dependsOn: dependsOn,
	})
}

// recomputeTargets derives the eventual MCG_S value from the control
// registers and arms a pending transition for every field that must move.
// Called with the mutex held after every control register write.
func (e *MCGEngine) recomputeTargets() {
	// OSCINIT0: crystal startup once the oscillator is requested.
	oscRequested := e.c2&MCG_C2_EREFS0_MASK == MCG_C2_EREFS0_OSCILLATOR
	oscTarget := uint8(0)
	if oscRequested && !e.timing.OscFails {
		oscTarget = MCG_S_OSCINIT0_READY
	}
	e.arm("OSCINIT0", MCG_S_OSCINIT0_MASK, oscTarget, e.timing.OscStartupReads, nil)
	if oscRequested && e.timing.OscFails {
		// Crystal never starts: keep the pending armed but unreachable.
		e.arm("OSCINIT0", MCG_S_OSCINIT0_MASK, MCG_S_OSCINIT0_READY, -1, nil)
	}

	// IREFST follows C1 IREFS.
	irefTarget := uint8(MCG_S_IREFST_EXTERNAL)
	if e.c1&MCG_C1_IREFS_MASK == MCG_C1_IREFS_INTERNAL {
		irefTarget = MCG_S_IREFST_INTERNAL
	}
	e.arm("IREFST", MCG_S_IREFST_MASK, irefTarget, e.timing.IrefSwitchReads, nil)

	// PLLST follows C6 PLLS.
	pllSelected := e.c6&MCG_C6_PLLS_MASK == MCG_C6_PLLS_PLL
	pllstTarget := uint8(MCG_S_PLLST_FLL)
	if pllSelected {
		pllstTarget = MCG_S_PLLST_PLL
	}
	e.arm("PLLST", MCG_S_PLLST_MASK, pllstTarget, e.timing.PllstSwitchReads, nil)

	// LOCK0: the PLL acquires only once it is selected, fed a reference
	// inside its input window, and asked for an attainable VCO frequency.
	// Acquisition is gated on PLLST landing; losing the selection drops
	// lock without any such gate.
	lockTarget := uint8(0)
	if pllSelected && e.pllConfigValid() && !e.timing.PllLockFails {
		lockTarget = MCG_S_LOCK0_LOCKED
	}
	var lockDep func() bool
	if lockTarget != 0 {
		lockDep = func() bool {
			return e.status&MCG_S_PLLST_MASK == MCG_S_PLLST_PLL
		}
	}
	e.arm("LOCK0", MCG_S_LOCK0_MASK, lockTarget, e.timing.PllLockReads, lockDep)
	if pllSelected && lockTarget == 0 {
		// PLL selected but unlockable: pending armed, never lands.
		e.arm("LOCK0", MCG_S_LOCK0_MASK, MCG_S_LOCK0_LOCKED, -1, nil)
	}

	// CLKST follows C1 CLKS, gated on the source being ready.
	var clkstTarget uint8
	var clkstDep func() bool
	switch e.c1 & MCG_C1_CLKS_MASK {
	case MCG_C1_CLKS_INTERNAL:
		clkstTarget = MCG_S_CLKST_INTERNAL
	case MCG_C1_CLKS_EXTERNAL:
		clkstTarget = MCG_S_CLKST_EXTERNAL
		if oscRequested {
			clkstDep = func() bool {
				return e.status&MCG_S_OSCINIT0_MASK == MCG_S_OSCINIT0_READY
			}
		}
	default: // MCG_C1_CLKS_FLL_PLL
		if pllSelected {
			clkstTarget = MCG_S_CLKST_PLL
			clkstDep = func() bool {
				return e.status&MCG_S_PLLST_MASK == MCG_S_PLLST_PLL
			}
		} else {
			clkstTarget = MCG_S_CLKST_FLL
		}
	}
	e.arm("CLKST", MCG_S_CLKST_MASK, clkstTarget, e.timing.ClkstSwitchReads, clkstDep)
}

// pllConfigValid reports whether the current PRDIV0/VDIV0 settings give the
// PLL a reference within its input window and a VCO within range.
func (e *MCGEngine) pllConfigValid() bool {
	refHz := e.pllReferenceHz()
	if refHz < PLL_REF_MIN_HZ || refHz > PLL_REF_MAX_HZ {
		return false
	}
	return e.pllOutputHz() <= PLL_VCO_MAX_HZ
}

func (e *MCGEngine) pllReferenceHz() uint32 {
	return e.crystalHz / (uint32(e.c5&MCG_C5_PRDIV0_MASK) + 1)
}

func (e *MCGEngine) pllOutputHz() uint32 {
	return e.pllReferenceHz() * (uint32(e.c6&MCG_C6_VDIV0_MASK) + PLL_VDIV_BASE)
}

func (e *MCGEngine) fllOutputHz() uint32 {
	if e.status&MCG_S_IREFST_MASK == MCG_S_IREFST_INTERNAL {
		return MCG_IRC_SLOW_HZ * MCG_FLL_FACTOR_DEFAULT
	}
	// External reference through FRDIV. High-range divider table.
	dividers := [8]uint32{32, 64, 128, 256, 512, 1024, 1280, 1536}
	frdiv := (e.c1 & MCG_C1_FRDIV_MASK) >> MCG_C1_FRDIV_SHIFT
	div := dividers[frdiv]
	if e.c2&MCG_C2_RANGE0_MASK == MCG_C2_RANGE0_LOW {
		div = 1 << frdiv
	}
	return e.crystalHz / div * MCG_FLL_FACTOR_DEFAULT
}

// OutClockHz returns the current MCGOUTCLK frequency, derived from which
// source CLKST reports as engaged.
func (e *MCGEngine) OutClockHz() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	switch e.status & MCG_S_CLKST_MASK {
	case MCG_S_CLKST_INTERNAL:
		if e.c2&MCG_C2_IRCS != 0 {
			return MCG_IRC_FAST_HZ
		}
		return MCG_IRC_SLOW_HZ
	case MCG_S_CLKST_EXTERNAL:
		return e.crystalHz
	case MCG_S_CLKST_PLL:
		return e.pllOutputHz()
	default:
		return e.fllOutputHz()
	}
}

// PLLClockHz returns the PLL output frequency for the programmed dividers,
// whether or not the PLL is currently engaged. The SIM uses it to derive
// the UART0 source clock when SOPT2 selects PLL/2.
func (e *MCGEngine) PLLClockHz() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.pllOutputHz()
}

// FLLClockHz returns the FLL output frequency for the current reference.
func (e *MCGEngine) FLLClockHz() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.fllOutputHz()
}

// InternalClockHz returns MCGIRCLK for the selected internal reference.
func (e *MCGEngine) InternalClockHz() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.c2&MCG_C2_IRCS != 0 {
		return MCG_IRC_FAST_HZ
	}
	return MCG_IRC_SLOW_HZ
}

// Mode names the current MCG operating mode from the status register, the
// way the reference manual's mode diagram labels them.
func (e *MCGEngine) Mode() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	switch e.status & MCG_S_CLKST_MASK {
	case MCG_S_CLKST_INTERNAL:
		return "FBI"
	case MCG_S_CLKST_EXTERNAL:
		if e.status&MCG_S_PLLST_MASK == MCG_S_PLLST_PLL {
			return "PBE"
		}
		return "FBE"
	case MCG_S_CLKST_PLL:
		return "PEE"
	default:
		if e.status&MCG_S_IREFST_MASK == MCG_S_IREFST_INTERNAL {
			return "FEI"
		}
		return "FEE"
	}
}

// StatusReads returns how many MCG_S reads the engine has served. The boot
// report quotes it as the total poll count.
func (e *MCGEngine) StatusReads() uint64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.statusReads
}

// PeekStatus returns MCG_S without advancing any countdowns. Monitor use.
func (e *MCGEngine) PeekStatus() uint8 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.status
}
