// sim_engine.go - System Integration Module hardware model

/*
sim_engine.go - SIM Engine

Models the SIM register block: peripheral clock routing (SOPT2), clock
gating (SCGC4-SCGC7), the system clock dividers (CLKDIV1), device and flash
identification, and the COP watchdog.

The COP deserves its own note. Real silicon clocks it from the 1kHz LPO or
the bus clock; the simulation uses bus transactions as its timebase, so a
boot that performs more accesses than the timeout budget without servicing
the watchdog is reset, deterministically, regardless of host wall clock.
COPC is write-once: the reset value arms the watchdog with the long timeout,
and only the first write after reset can change that. Firmware that does not
make the COPC write its opening act inherits an armed watchdog it can no
longer disable.
*/

package main

import (
	"fmt"
	"sync"
)

// Power-on register values for the SIM block.
const (
	SIM_SCGC4_RESET   = 0xF0000030
	SIM_SCGC5_RESET   = 0x00000180
	SIM_SCGC6_RESET   = 0x00000001
	SIM_CLKDIV1_RESET = 0x00010000 // OUTDIV1=/1, OUTDIV4=/2 (fast boot)
	SIM_COPC_RESET    = 0x0C       // COP armed, long timeout, 1kHz clock
)

type SIMEngine struct {
	mutex sync.Mutex

	sopt1 uint32
	sopt2 uint32
	sopt4 uint32
	sopt5 uint32
	sopt7 uint32

	scgc4 uint32
	scgc5 uint32
	scgc6 uint32
	scgc7 uint32

	clkdiv1 uint32
	sdid    uint32
	fcfg1   uint32

	copc        uint32
	copcLatched bool
	copBudget   int
	copCounter  int

	// Scenario knob: when positive, replaces the COPT timeout translation
	// for any enabled mode. Survives reset, same as MCG timing.
	copBudgetOverride int

	// SRVCOP sequence state: false = expecting 0x55, true = expecting 0xAA.
	srvcopArmed bool

	// Fired when the COP expires or is serviced out of sequence. The
	// machine wires this to its watchdog reset path and the callback does
	// not return.
	onWatchdogReset func(reason string)
}

func NewSIMEngine(flashSize uint32) *SIMEngine {
	e := &SIMEngine{
		sdid:  SIM_SDID_FAMID_IG32 | 0x00000100 | SIM_SDID_PINID_64PIN,
		fcfg1: pfsizeCode(flashSize) << 24,
	}
	e.resetState()
	return e
}

// pfsizeCode maps a flash size to the FCFG1 PFSIZE encoding.
func pfsizeCode(flashSize uint32) uint32 {
	switch flashSize {
	case 32 * 1024:
		return 0x3
	case 64 * 1024:
		return 0x5
	case 128 * 1024:
		return 0x7
	case 256 * 1024:
		return 0x9
	default:
		return 0xF
	}
}

func (e *SIMEngine) resetState() {
	e.sopt1 = 0
	e.sopt2 = 0
	e.sopt4 = 0
	e.sopt5 = 0
	e.sopt7 = 0
	e.scgc4 = SIM_SCGC4_RESET
	e.scgc5 = SIM_SCGC5_RESET
	e.scgc6 = SIM_SCGC6_RESET
	e.scgc7 = 0
	e.clkdiv1 = SIM_CLKDIV1_RESET
	e.copc = SIM_COPC_RESET
	e.copcLatched = false
	e.copBudget = e.effectiveBudget(SIM_COPC_RESET)
	e.copCounter = 0
	e.srvcopArmed = false
}

// effectiveBudget applies the scenario override to an enabled COP mode. A
// disabled COP stays disabled no matter the override. Called with the
// mutex held (or from resetState before the engine is shared).
func (e *SIMEngine) effectiveBudget(copc uint32) int {
	budget := copBudgetFor(copc)
	if budget != 0 && e.copBudgetOverride > 0 {
		return e.copBudgetOverride
	}
	return budget
}

// SetCOPBudgetOverride pins the watchdog access budget for scenario runs.
// Zero or negative restores the COPT translation.
func (e *SIMEngine) SetCOPBudgetOverride(budget int) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.copBudgetOverride = budget
	e.copBudget = e.effectiveBudget(e.copc)
}

// COPBudget returns the current access budget, zero when disabled.
func (e *SIMEngine) COPBudget() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.copBudget
}

// copBudgetFor translates the COPC COPT field into a bus access budget.
// Zero means disabled.
func copBudgetFor(copc uint32) int {
	switch copc & SIM_COPC_COPT_MASK {
	case SIM_COPC_COPT_SHORT:
		return COP_TIMEOUT_SHORT
	case SIM_COPC_COPT_MEDIUM:
		return COP_TIMEOUT_MEDIUM
	case SIM_COPC_COPT_LONG:
		return COP_TIMEOUT_LONG
	default:
		return 0
	}
}

// SetWatchdogHook registers the watchdog reset callback. Must be called
// before the machine powers on.
func (e *SIMEngine) SetWatchdogHook(hook func(reason string)) {
	e.onWatchdogReset = hook
}

// TickCOP advances the watchdog by one bus access. The machine bus calls
// this from its access hook for every transaction.
func (e *SIMEngine) TickCOP() {
	e.mutex.Lock()
	if e.copBudget == 0 {
		e.mutex.Unlock()
		return
	}
	e.copCounter++
	if e.copCounter <= e.copBudget {
		e.mutex.Unlock()
		return
	}
	reason := fmt.Sprintf("COP watchdog expired after %d bus accesses without service", e.copCounter)
	hook := e.onWatchdogReset
	e.mutex.Unlock()
	if hook != nil {
		hook(reason)
	}
}

// COPArmed reports whether the watchdog is currently counting.
func (e *SIMEngine) COPArmed() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.copBudget != 0
}

func (e *SIMEngine) HandleRead(addr uint32) uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	switch addr {
	case SIM_SOPT1:
		return e.sopt1
	case SIM_SOPT2:
		return e.sopt2
	case SIM_SOPT4:
		return e.sopt4
	case SIM_SOPT5:
		return e.sopt5
	case SIM_SOPT7:
		return e.sopt7
	case SIM_SDID:
		return e.sdid
	case SIM_SCGC4:
		return e.scgc4
	case SIM_SCGC5:
		return e.scgc5
	case SIM_SCGC6:
		return e.scgc6
	case SIM_SCGC7:
		return e.scgc7
	case SIM_CLKDIV1:
		return e.clkdiv1
	case SIM_FCFG1:
		return e.fcfg1
	case SIM_COPC:
		return e.copc
	default:
		// SRVCOP is write-only; unimplemented offsets read as zero.
		return 0
	}
}

func (e *SIMEngine) HandleWrite(addr uint32, value uint32) {
	e.mutex.Lock()
	switch addr {
	case SIM_SOPT1:
		e.sopt1 = value
	case SIM_SOPT2:
		e.sopt2 = value
	case SIM_SOPT4:
		e.sopt4 = value
	case SIM_SOPT5:
		e.sopt5 = value
	case SIM_SOPT7:
		e.sopt7 = value
	case SIM_SCGC4:
		e.scgc4 = value
	case SIM_SCGC5:
		e.scgc5 = value
	case SIM_SCGC6:
		e.scgc6 = value
	case SIM_SCGC7:
		e.scgc7 = value
	case SIM_CLKDIV1:
		e.clkdiv1 = value
	case SIM_COPC:
		// Write-once: the first write after reset latches for good.
		if !e.copcLatched {
			e.copc = value
			e.copcLatched = true
			e.copBudget = e.effectiveBudget(value)
			e.copCounter = 0
		}
	case SIM_SRVCOP:
		hook, reason := e.serviceCOP(uint8(value))
		if hook != nil {
			e.mutex.Unlock()
			hook(reason)
			return
		}
	default:
		// SDID and FCFG1 are read-only; unimplemented offsets discard.
	}
	e.mutex.Unlock()
}

// serviceCOP runs the 0x55/0xAA restart sequence. A wrong value or wrong
// order forces an immediate reset, same as the silicon. Returns the
// watchdog hook to fire after the mutex is released, or nil. Called with
// the mutex held.
func (e *SIMEngine) serviceCOP(value uint8) (func(string), string) {
	if e.copBudget == 0 {
		return nil, ""
	}
	switch {
	case !e.srvcopArmed && value == SIM_SRVCOP_FIRST:
		e.srvcopArmed = true
		return nil, ""
	case e.srvcopArmed && value == SIM_SRVCOP_SECOND:
		e.srvcopArmed = false
		e.copCounter = 0
		return nil, ""
	default:
		e.srvcopArmed = false
		return e.onWatchdogReset, fmt.Sprintf("COP serviced out of sequence (wrote 0x%02X)", value)
	}
}

// EstablishResetDividers overrides the power-on CLKDIV1 value. The machine
// calls this once, before firmware runs, with the dividers the flash
// option byte's LPBOOT bits select.
func (e *SIMEngine) EstablishResetDividers(clkdiv1 uint32) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.clkdiv1 = clkdiv1
}

// =============================================================================
// Derived state accessors
// =============================================================================

// UART0Gated reports whether the UART0 clock gate is closed. Accessing a
// gated peripheral is a hard fault on the real part.
func (e *SIMEngine) UART0Gated() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.scgc4&SIM_SCGC4_UART0 == 0
}

// UART0Source returns the SOPT2 UART0SRC field.
func (e *SIMEngine) UART0Source() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.sopt2 & SIM_SOPT2_UART0SRC_MASK
}

// PLLFLLSelected reports whether SOPT2 routes the PLL/2 clock (rather than
// the FLL) to the peripherals that offer the choice.
func (e *SIMEngine) PLLFLLSelected() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.sopt2&SIM_SOPT2_PLLFLLSEL_MASK == SIM_SOPT2_PLLFLLSEL_PLL_DIV2
}

// PortGatesOpen reports whether all five port clock gates are enabled.
func (e *SIMEngine) PortGatesOpen() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.scgc5&SIM_SCGC5_ALL_PORTS == SIM_SCGC5_ALL_PORTS
}

// OutDiv1 returns the core clock divide factor (the field value plus one).
func (e *SIMEngine) OutDiv1() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return ((e.clkdiv1 & SIM_CLKDIV1_OUTDIV1_MASK) >> SIM_CLKDIV1_OUTDIV1_SHIFT) + 1
}

// OutDiv4 returns the bus/flash clock divide factor relative to the core
// clock (the field value plus one).
func (e *SIMEngine) OutDiv4() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return ((e.clkdiv1 & SIM_CLKDIV1_OUTDIV4_MASK) >> SIM_CLKDIV1_OUTDIV4_SHIFT) + 1
}
