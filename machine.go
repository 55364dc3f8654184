// machine.go - IG32 machine: bus, engines and event dispatch

/*
machine.go - IG32 Machine

The Machine owns the bus, the peripheral engines and the vector table, and
drives the firmware the way the silicon drives code out of reset: power-on
consumes the flash configuration field, Run fetches the stack pointer and
reset entry from the vector table in flash, and every hardware event from
then on is dispatched by reading a vector word back out of flash and
resolving it to its Go handler.

Hardware misbehavior does not travel as Go errors inside the machine.
Faults, stalls and watchdog resets unwind as typed panics, are recovered
at the Run/InjectEvent boundary and only there become errors for the
caller. A hard fault dispatches vector 3 first, exactly like the part; if
vector 3 resolves to the default handler the machine parks in the stalled
state and Run reports it, so a misconfigured boot never hangs the host
process.
*/

package main

import (
	"fmt"
	"sync"
)

type MachinePowerState int

const (
	POWER_OFF MachinePowerState = iota
	POWER_ON
	POWER_STALLED
)

func (s MachinePowerState) String() string {
	switch s {
	case POWER_ON:
		return "on"
	case POWER_STALLED:
		return "stalled"
	default:
		return "off"
	}
}

// Control-flow signals. These unwind handler code back to the dispatch
// boundary; they never escape Run or InjectEvent.
type hardFaultSignal struct{ fault *BusFault }
type stallSignal struct{ vector int }
type haltSignal struct{ reason string }
type watchdogResetSignal struct{ reason string }

// StallError reports that execution parked in the default handler.
type StallError struct {
	Vector int
}

func (e *StallError) Error() string {
	return fmt.Sprintf("machine stalled in default handler (vector %d, %s)", e.Vector, VectorName(e.Vector))
}

// HardFaultError reports an escalated bus fault. Stall is non-nil when the
// hard fault handler itself parked the machine.
type HardFaultError struct {
	Fault *BusFault
	Stall *StallError
}

func (e *HardFaultError) Error() string {
	if e.Stall != nil {
		return fmt.Sprintf("hard fault: %v; %v", e.Fault, e.Stall)
	}
	return fmt.Sprintf("hard fault: %v", e.Fault)
}

// HaltError reports a deliberate simulation halt, such as a wait budget
// running out.
type HaltError struct {
	Reason string
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("machine halted: %s", e.Reason)
}

// WatchdogResetError reports a COP-forced reset. The machine has already
// been reset when Run returns this; calling Run again boots fresh.
type WatchdogResetError struct {
	Reason string
}

func (e *WatchdogResetError) Error() string {
	return fmt.Sprintf("watchdog reset: %s", e.Reason)
}

type Machine struct {
	bus  *MachineBus
	hw   *HardwareRegisters
	mcg  *MCGEngine
	sim  *SIMEngine
	smc  *SMCEngine
	osc  *OSCEngine
	uart *UARTEngine

	vectors  *VectorTable
	tracer   *BusTracer
	firmware *Firmware
	config   FlashConfig

	boardName     string
	crystalHz     uint32
	crystalLoadPF int

	clockPlan ClockPlan
	copcWrite uint32

	waitPolicy WaitPolicy

	// Oscillator load-cap matching, enforced only when a scenario or
	// board profile asks for it.
	oscCapsEnforced bool
	oscExpectedPF   int

	mu            sync.Mutex
	state         MachinePowerState
	stages        []BootStage
	violations    []string
	stalledVector int
	currentVector int
	resetCount    int
	lastReset     string
	runtimeInits  int
}

// NewMachine assembles a machine from a board profile: bus sized to the
// board, every peripheral engine constructed and mapped at its silicon
// address, watchdog and fault plumbing connected. The region table stays
// open until PowerOn seals it.
func NewMachine(profile BoardProfile) *Machine {
	bus := NewMachineBus(profile.FlashSize, profile.SRAMSize)
	sim := NewSIMEngine(profile.FlashSize)
	mcg := NewMCGEngine(profile.CrystalHz, profile.Timing)

	m := &Machine{
		bus:           bus,
		mcg:           mcg,
		sim:           sim,
		smc:           NewSMCEngine(),
		osc:           NewOSCEngine(),
		uart:          NewUARTEngine(sim),
		tracer:        NewBusTracer(profile.TraceLimit),
		boardName:     profile.Name,
		crystalHz:     profile.CrystalHz,
		crystalLoadPF: profile.CrystalLoadPF,
		clockPlan:     profile.Clock,
		copcWrite:     profile.COPCWrite,
		waitPolicy:    UnboundedWaitPolicy(),
		stalledVector: -1,
	}
	m.hw = NewHardwareRegisters(bus, m.raiseBusFault)
	if profile.EnforceCaps {
		m.EnforceOscillatorCaps(profile.CrystalLoadPF)
	}

	bus.SetAccessHook(sim.TickCOP)
	sim.SetWatchdogHook(m.watchdogReset)
	m.uart.SetFaultHook(m.raiseBusFault)
	m.tracer.Attach(bus)

	bus.MapIO(SIM_BASE, SIM_END, Access32, sim.HandleRead, sim.HandleWrite)
	bus.MapIO(MCG_BASE, MCG_END, Access8, mcg.HandleRead, mcg.HandleWrite)
	bus.MapIO(OSC0_BASE, OSC0_END, Access8, m.osc.HandleRead, m.osc.HandleWrite)
	bus.MapIO(UART0_BASE, UART0_END, Access8, m.uart.HandleRead, m.uart.HandleWrite)
	bus.MapIO(SMC_BASE, SMC_END, Access8, m.smc.HandleRead, m.smc.HandleWrite)

	return m
}

// NewDefaultMachine returns a machine built on the ig32dx256 reference
// board.
func NewDefaultMachine() *Machine {
	return NewMachine(DefaultBoardProfile())
}

// =============================================================================
// Firmware loading and power control
// =============================================================================

// LoadFirmware validates the firmware, builds its vector table and burns
// the whole image into flash: table at 0x0, configuration field at 0x400,
// initialized-data payload at its load address. The external programmer
// step, before power is applied.
func (m *Machine) LoadFirmware(fw *Firmware) error {
	if err := fw.Validate(m.FlashSize(), m.SRAMSize()); err != nil {
		return err
	}
	if fw.Layout.DataSize() > 0 && fw.Layout.DataLoadAddr <= FLASH_CONFIG_END {
		return fmt.Errorf("firmware %q data image at 0x%08X overlaps the vector table or config field",
			fw.Name, fw.Layout.DataLoadAddr)
	}

	vectors := NewVectorTable(fw.Layout.StackTop, func(mm *Machine) {
		mm.stall(mm.CurrentVector())
	})
	if err := vectors.Assign(VECTOR_RESET, RunBootSequence); err != nil {
		return err
	}
	for index, handler := range fw.Handlers {
		if err := vectors.Assign(index, handler); err != nil {
			return err
		}
	}

	if err := m.bus.WriteFlashDirect(VECTOR_BASE, vectors.Image()); err != nil {
		return err
	}
	cfg := fw.Config.Bytes()
	if err := m.bus.WriteFlashDirect(FLASH_CONFIG_BASE, cfg[:]); err != nil {
		return err
	}
	if len(fw.DataImage) > 0 {
		if err := m.bus.WriteFlashDirect(fw.Layout.DataLoadAddr, fw.DataImage); err != nil {
			return err
		}
	}

	m.firmware = fw
	m.vectors = vectors
	m.config = fw.Config
	return nil
}

// PowerOn applies power: the flash configuration field is consumed, the
// security policy enforced, the LPBOOT dividers established and the I/O
// region table sealed. A secured part with mass erase disabled refuses to
// come up at all.
func (m *Machine) PowerOn() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != POWER_OFF {
		return fmt.Errorf("machine is already powered %s", m.state)
	}
	if m.firmware == nil {
		return fmt.Errorf("cannot power on with empty flash: no firmware loaded")
	}

	fc, err := ReadFlashConfig(m.bus.FlashBytes())
	if err != nil {
		return err
	}
	if err := fc.CheckPowerOn(); err != nil {
		return err
	}
	m.config = fc
	m.sim.EstablishResetDividers(fc.ResetCLKDIV1())

	m.bus.SealMappings()
	m.state = POWER_ON
	m.stalledVector = -1
	m.stages = nil
	m.violations = nil
	m.runtimeInits = 0
	return nil
}

// PowerOff removes power. A stalled machine leaves the stalled state only
// through here or through a reset.
func (m *Machine) PowerOff() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = POWER_OFF
}

// performReset models a hardware reset: SRAM cleared, every peripheral
// back to power-on values, LPBOOT dividers re-established, flash intact.
func (m *Machine) performReset(cause string) {
	m.bus.Reset()
	ResetAllPeripherals(m)
	m.sim.EstablishResetDividers(m.config.ResetCLKDIV1())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCount++
	m.lastReset = cause
	m.state = POWER_ON
	m.stalledVector = -1
	m.stages = nil
	m.runtimeInits = 0
}

// Reset performs a monitor-requested hardware reset.
func (m *Machine) Reset() {
	m.performReset("monitor reset")
}

// =============================================================================
// Execution and event dispatch
// =============================================================================

// Run executes the reset sequence: fetch the stack pointer and reset entry
// from the vector table in flash, resolve the entry and hand control to
// it. Returns nil only if the application main returns cleanly, which real
// firmware never does; every other outcome arrives as a typed error.
func (m *Machine) Run() (err error) {
	if m.State() != POWER_ON {
		return fmt.Errorf("machine is not powered on")
	}
	defer func() {
		if r := recover(); r != nil {
			err = m.recoverSignal(r)
		}
	}()

	sp, ok := m.bus.Peek32(VECTOR_BASE + VECTOR_STACK_TOP*4)
	if !ok || sp == 0 {
		return fmt.Errorf("vector table holds no initial stack pointer")
	}
	m.RaiseEvent(VECTOR_RESET)
	return nil
}

// RaiseEvent dispatches a hardware event by vector index: the table word
// is fetched from simulated flash and resolved back to its Go handler. An
// unresolvable entry escalates to hard fault; an unresolvable hard fault
// parks the machine in the default-handler stall.
func (m *Machine) RaiseEvent(index int) {
	word, ok := m.bus.Peek32(VECTOR_BASE + uint32(index)*4)
	if !ok {
		m.recordViolation(fmt.Sprintf("vector %d fetch failed", index))
		word = 0
	}
	handler, found := m.vectors.Resolve(word)
	if !found {
		m.recordViolation(fmt.Sprintf("vector %d (%s) holds unresolvable entry 0x%08X",
			index, VectorName(index), word))
		if index == VECTOR_HARD_FAULT {
			m.stall(VECTOR_HARD_FAULT)
		}
		m.RaiseEvent(VECTOR_HARD_FAULT)
		return
	}
	m.setCurrentVector(index)
	handler(m)
}

// InjectEvent raises an event from outside the firmware goroutine, such
// as the console host delivering a receive interrupt. Stalls and faults
// are recovered here instead of unwinding into the caller.
func (m *Machine) InjectEvent(index int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = m.recoverSignal(r)
		}
	}()
	m.RaiseEvent(index)
	return nil
}

// recoverSignal converts an unwound control-flow signal into the caller's
// error. Anything that is not one of ours keeps propagating.
func (m *Machine) recoverSignal(r interface{}) error {
	switch sig := r.(type) {
	case stallSignal:
		return &StallError{Vector: sig.vector}
	case haltSignal:
		return &HaltError{Reason: sig.reason}
	case hardFaultSignal:
		return &HardFaultError{Fault: sig.fault, Stall: m.dispatchHardFault()}
	case watchdogResetSignal:
		m.performReset(sig.reason)
		return &WatchdogResetError{Reason: sig.reason}
	default:
		panic(r)
	}
}

// dispatchHardFault runs the vector 3 handler after a fault has unwound
// the firmware. A handler that stalls, or a second fault inside it (the
// lockup case), parks the machine.
func (m *Machine) dispatchHardFault() (stall *StallError) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch sig := r.(type) {
		case stallSignal:
			stall = &StallError{Vector: sig.vector}
		case hardFaultSignal:
			m.mu.Lock()
			m.state = POWER_STALLED
			m.stalledVector = VECTOR_HARD_FAULT
			m.mu.Unlock()
			stall = &StallError{Vector: VECTOR_HARD_FAULT}
		default:
			panic(r)
		}
	}()
	m.RaiseEvent(VECTOR_HARD_FAULT)
	return nil
}

// raiseBusFault escalates a bus fault from firmware register access into
// the hard fault path. Installed as the HardwareRegisters raise callback
// and the UART gate-fault hook.
func (m *Machine) raiseBusFault(fault *BusFault) {
	if fault == nil {
		fault = &BusFault{Op: "access", Kind: BusFaultUnmapped}
	}
	m.recordViolation(fault.Error())
	panic(hardFaultSignal{fault: fault})
}

// watchdogReset unwinds execution when the COP expires or is serviced out
// of sequence.
func (m *Machine) watchdogReset(reason string) {
	m.recordViolation(reason)
	panic(watchdogResetSignal{reason: reason})
}

// stall parks the machine in the default-handler state and unwinds. Never
// returns.
func (m *Machine) stall(vector int) {
	m.mu.Lock()
	m.state = POWER_STALLED
	m.stalledVector = vector
	m.mu.Unlock()
	panic(stallSignal{vector: vector})
}

// halt abandons the simulation for a stated reason, such as an exhausted
// wait budget. Never returns.
func (m *Machine) halt(reason string) {
	m.recordViolation(reason)
	panic(haltSignal{reason: reason})
}

// =============================================================================
// State accessors
// =============================================================================

func (m *Machine) Bus() *MachineBus          { return m.bus }
func (m *Machine) HW() *HardwareRegisters    { return m.hw }
func (m *Machine) MCG() *MCGEngine           { return m.mcg }
func (m *Machine) SIM() *SIMEngine           { return m.sim }
func (m *Machine) SMC() *SMCEngine           { return m.smc }
func (m *Machine) OSC() *OSCEngine           { return m.osc }
func (m *Machine) UART() *UARTEngine         { return m.uart }
func (m *Machine) Tracer() *BusTracer        { return m.tracer }
func (m *Machine) Vectors() *VectorTable     { return m.vectors }
func (m *Machine) Firmware() *Firmware       { return m.firmware }
func (m *Machine) BoardName() string         { return m.boardName }
func (m *Machine) CrystalHz() uint32         { return m.crystalHz }
func (m *Machine) CrystalLoadPF() int        { return m.crystalLoadPF }
func (m *Machine) FlashSize() uint32         { return uint32(len(m.bus.FlashBytes())) }
func (m *Machine) SRAMSize() uint32          { return uint32(len(m.bus.SRAMBytes())) }

func (m *Machine) State() MachinePowerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StalledVector returns the vector the default handler parked on, or -1.
func (m *Machine) StalledVector() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stalledVector
}

// CurrentVector returns the vector index of the handler being dispatched.
func (m *Machine) CurrentVector() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentVector
}

func (m *Machine) setCurrentVector(index int) {
	m.mu.Lock()
	m.currentVector = index
	m.mu.Unlock()
}

func (m *Machine) ResetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCount
}

func (m *Machine) LastResetCause() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReset
}

// SetWaitPolicy bounds the firmware's status polls. The zero default polls
// forever, the way the real startup code does.
func (m *Machine) SetWaitPolicy(policy WaitPolicy) {
	m.waitPolicy = policy
}

// EnforceOscillatorCaps requires the firmware's load capacitor selection
// to match the board's crystal. A mismatch leaves the oscillator dead.
func (m *Machine) EnforceOscillatorCaps(expectedPF int) {
	m.oscCapsEnforced = true
	m.oscExpectedPF = expectedPF
}

// DisableOscillatorCapCheck drops the load capacitor match requirement.
func (m *Machine) DisableOscillatorCapCheck() {
	m.oscCapsEnforced = false
}

// SetClockPlan replaces the register values the boot sequence writes.
// Scenario scripts use this before power-on.
func (m *Machine) SetClockPlan(plan ClockPlan) {
	m.clockPlan = plan
}

func (m *Machine) ClockPlan() ClockPlan {
	return m.clockPlan
}

// SetCOPCWrite replaces the value the boot sequence writes to SIM_COPC.
func (m *Machine) SetCOPCWrite(value uint32) {
	m.copcWrite = value
}

func (m *Machine) WaitPolicy() WaitPolicy {
	return m.waitPolicy
}

// noteRuntimeInit counts runtime-init hook executions; the boot sequence
// must drive it exactly once per boot.
func (m *Machine) noteRuntimeInit() {
	m.mu.Lock()
	m.runtimeInits++
	m.mu.Unlock()
}

func (m *Machine) RuntimeInitRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runtimeInits
}

func (m *Machine) recordStage(name string, ok bool, detail string) {
	m.mu.Lock()
	m.stages = append(m.stages, BootStage{Name: name, OK: ok, Detail: detail})
	m.mu.Unlock()
}

func (m *Machine) BootStages() []BootStage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BootStage, len(m.stages))
	copy(out, m.stages)
	return out
}

func (m *Machine) recordViolation(v string) {
	m.mu.Lock()
	m.violations = append(m.violations, v)
	m.mu.Unlock()
}

func (m *Machine) Violations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.violations))
	copy(out, m.violations)
	return out
}

// DebugAccessAllowed enforces the flash security policy for the monitor.
func (m *Machine) DebugAccessAllowed() error {
	return m.config.CheckDebugAccess()
}

// CoreClocks returns the core/system and bus/flash frequencies derived
// from MCGOUTCLK through the SIM dividers.
func (m *Machine) CoreClocks() (coreHz, busHz uint32) {
	out := m.mcg.OutClockHz()
	coreHz = out / m.sim.OutDiv1()
	busHz = coreHz / m.sim.OutDiv4()
	return coreHz, busHz
}

// UART0ClockHz returns the module clock SOPT2 routes to UART0, or zero
// when the source is disabled.
func (m *Machine) UART0ClockHz() uint32 {
	switch m.sim.UART0Source() {
	case SIM_SOPT2_UART0SRC_PLLFLL:
		if m.sim.PLLFLLSelected() {
			return m.mcg.PLLClockHz() / 2
		}
		return m.mcg.FLLClockHz()
	case SIM_SOPT2_UART0SRC_OSCERCLK:
		if m.osc.ExternalClockEnabled() {
			return m.crystalHz
		}
		return 0
	case SIM_SOPT2_UART0SRC_MCGIRCLK:
		return m.mcg.InternalClockHz()
	default:
		return 0
	}
}
