// boot_clock.go - reset-time clock bring-up (FEI -> FBE -> PBE -> PEE)

/*
boot_clock.go - Clock Bring-Up

Walks the MCG from its power-on FEI state to PEE, the PLL-engaged mode the
rest of the system runs from, through the mandated intermediate stops:

    FBE  external crystal engaged as system clock, FLL still selected
    PBE  PLL selected and locking, system still on the crystal
    PEE  system clock switched to the PLL output

Every stage change is a control register write followed by status polls,
and each poll is a real MCG_S bus read. The order is the contract: the
crystal must report ready before the reference mux is checked, the mux
before the clock switch, PLL select before lock, and the SIM dividers must
be programmed before PEE is requested so the downstream clocks never leave
their rated range.

The real startup code polls forever on a bit that never sets. The default
wait policy reproduces that honestly; a bounded policy makes the failure a
diagnosable halt instead, for scenario runs and tests.
*/

package main

import "fmt"

// WaitPolicy bounds firmware status polling. MaxPolls zero polls forever,
// matching the hardware startup code.
type WaitPolicy struct {
	MaxPolls int
}

func UnboundedWaitPolicy() WaitPolicy {
	return WaitPolicy{}
}

func BoundedWaitPolicy(maxPolls int) WaitPolicy {
	return WaitPolicy{MaxPolls: maxPolls}
}

// ClockPlan carries the register values the bring-up writes. Board
// profiles override individual figures; the default plan takes a 16MHz
// crystal to a 48MHz core and 24MHz bus.
type ClockPlan struct {
	OscCR    uint8  // OSC0_CR: ERCLKEN plus load capacitor selection
	MCGC2    uint8  // frequency range and oscillator request
	MCGC1FBE uint8  // FBE: external clock select, FRDIV, external reference
	PRDIV    uint8  // PLL reference divider field (divide by PRDIV+1)
	VDIV     uint8  // PLL multiplier field (multiply by VDIV+24)
	CLKDIV1  uint32 // SIM dividers, programmed before PEE
	MCGC1PEE uint8  // PEE: hand the system clock to the PLL
	SOPT2    uint32 // peripheral clock routing, set after PEE
}

// DefaultClockPlan returns the reference bring-up: 16MHz crystal, 10pF
// load, /8 to a 2MHz PLL reference, x48 to a 96MHz VCO, core at VCO/2.
func DefaultClockPlan() ClockPlan {
	return ClockPlan{
		OscCR:    OSC0_CR_ERCLKEN | OSC0_CR_LOAD_10PF,
		MCGC2:    MCG_C2_RANGE0_VERY_HIGH | MCG_C2_EREFS0_OSCILLATOR,
		MCGC1FBE: MCG_C1_CLKS_EXTERNAL | MCG_C1_FRDIV_DIV_16_512 | MCG_C1_IREFS_EXTERNAL,
		PRDIV:    MCG_C5_PRDIV0_DIV_8,
		VDIV:     MCG_C6_VDIV0_MUL_48,
		CLKDIV1:  1<<SIM_CLKDIV1_OUTDIV1_SHIFT | 1<<SIM_CLKDIV1_OUTDIV4_SHIFT,
		MCGC1PEE: MCG_C1_CLKS_FLL_PLL | MCG_C1_FRDIV_DIV_16_512 | MCG_C1_IREFS_EXTERNAL,
		SOPT2:    SIM_SOPT2_PLLFLLSEL_PLL_DIV2,
	}
}

// waitForStatus polls MCG_S through the firmware register interface until
// cond holds. Each iteration is one real status read. With a bounded wait
// policy an exhausted budget halts the machine with the condition named.
func waitForStatus(m *Machine, what string, cond func(s uint8) bool) int {
	mcg := m.hw.MCG()
	polls := 0
	for {
		s := mcg.Status()
		polls++
		if cond(s) {
			return polls
		}
		if m.waitPolicy.MaxPolls > 0 && polls >= m.waitPolicy.MaxPolls {
			m.recordStage(what, false, fmt.Sprintf("not observed after %d polls", polls))
			m.halt(fmt.Sprintf("gave up waiting for %s after %d polls of MCG_S", what, polls))
		}
	}
}

// WaitOscillatorReady blocks until OSCINIT0 reports the crystal running.
func WaitOscillatorReady(m *Machine) int {
	return waitForStatus(m, "oscillator ready", func(s uint8) bool {
		return s&MCG_S_OSCINIT0_MASK == MCG_S_OSCINIT0_READY
	})
}

// WaitReferenceExternal blocks until IREFST shows the FLL reference mux on
// the external path.
func WaitReferenceExternal(m *Machine) int {
	return waitForStatus(m, "external reference select", func(s uint8) bool {
		return s&MCG_S_IREFST_MASK == MCG_S_IREFST_EXTERNAL
	})
}

// WaitClockSourceExternal blocks until CLKST reports the crystal driving
// the system clock.
func WaitClockSourceExternal(m *Machine) int {
	return waitForStatus(m, "external system clock", func(s uint8) bool {
		return s&MCG_S_CLKST_MASK == MCG_S_CLKST_EXTERNAL
	})
}

// WaitPLLSelected blocks until PLLST confirms the PLL owns the PLLS mux.
func WaitPLLSelected(m *Machine) int {
	return waitForStatus(m, "PLL select", func(s uint8) bool {
		return s&MCG_S_PLLST_MASK == MCG_S_PLLST_PLL
	})
}

// WaitPLLLocked blocks until LOCK0 reports the PLL locked.
func WaitPLLLocked(m *Machine) int {
	return waitForStatus(m, "PLL lock", func(s uint8) bool {
		return s&MCG_S_LOCK0_MASK == MCG_S_LOCK0_LOCKED
	})
}

// WaitClockSourcePLL blocks until CLKST reports the PLL driving the system
// clock, which is PEE.
func WaitClockSourcePLL(m *Machine) int {
	return waitForStatus(m, "PLL system clock", func(s uint8) bool {
		return s&MCG_S_CLKST_MASK == MCG_S_CLKST_PLL
	})
}

// BootClockSequence performs the full FEI to PEE walk per the plan. Called
// by the boot orchestrator with the COP already tamed and the power modes
// unlocked.
func BootClockSequence(m *Machine, plan ClockPlan) {
	mcg := m.hw.MCG()
	sim := m.hw.SIM()

	// Crystal drive: enable the external reference and hang the board's
	// load capacitance on the oscillator pins, then request the crystal
	// in its frequency range.
	m.hw.OSC().EnableExternalReference(plan.OscCR)
	mcg.ConfigureOscillator(plan.MCGC2)
	m.checkOscillatorCaps()

	// FBE. Move the system clock onto the crystal. Three separate waits,
	// in this order: crystal running, reference mux external, clock
	// switch complete.
	mcg.RequestMode(plan.MCGC1FBE)
	oscPolls := WaitOscillatorReady(m)
	WaitReferenceExternal(m)
	WaitClockSourceExternal(m)
	m.recordStage("FBE: system clock on crystal", true,
		fmt.Sprintf("oscillator ready after %d polls", oscPolls))

	// PBE. Feed the PLL its divided reference, select it, and hold until
	// it reports selected and then locked. Lock is never polled before
	// select confirms.
	mcg.SetPLLReferenceDivider(plan.PRDIV)
	mcg.SelectPLL(plan.VDIV)
	WaitPLLSelected(m)
	lockPolls := WaitPLLLocked(m)
	m.recordStage("PBE: PLL selected and locked", true,
		fmt.Sprintf("lock after %d polls", lockPolls))

	// Dividers before PEE, so the core and bus clocks stay in range the
	// instant the PLL output arrives.
	sim.WriteCLKDIV1(plan.CLKDIV1)

	// PEE. Hand the system clock to the PLL.
	mcg.RequestMode(plan.MCGC1PEE)
	WaitClockSourcePLL(m)
	core, busHz := m.CoreClocks()
	m.recordStage("PEE: system clock on PLL", true,
		fmt.Sprintf("core %.0f MHz, bus %.0f MHz", float64(core)/1e6, float64(busHz)/1e6))

	// Peripheral clock routing. UART0 and friends see PLL/2 from here on.
	sim.RouteAuxClock(plan.SOPT2)
}

// checkOscillatorCaps compares the programmed load capacitance against the
// board's crystal when cap matching is enforced. A mismatched crystal
// never starts, which surfaces downstream as an oscillator that never
// reports ready.
func (m *Machine) checkOscillatorCaps() {
	if !m.oscCapsEnforced {
		return
	}
	if m.osc.LoadCapacitancePF() != m.oscExpectedPF {
		m.recordViolation(fmt.Sprintf("oscillator load %dpF does not match the board's %dpF crystal",
			m.osc.LoadCapacitancePF(), m.oscExpectedPF))
		m.mcg.SetOscillatorFailure(true)
	}
}
