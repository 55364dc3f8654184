// uart_engine.go - UART0 serial port hardware model

/*
uart_engine.go - UART0 Engine

Models the serial port the boot firmware uses as its console. Two pieces of
realism matter here:

Clock gating. UART0 sits behind the SIM_SCGC4 gate, and on the real part a
register access with the gate closed is a hard fault, not a quiet zero read.
The engine checks the gate on every access and escalates through the fault
hook, so firmware that forgets the SCGC4 write dies the way it would on
silicon.

Transmit pacing. Writing the data register clears TDRE; the flag returns
only after a configurable number of S1 reads, so transmit loops must poll
the way real firmware polls. A UART left without a functional clock (SOPT2
UART0SRC disabled) accepts the data write but TDRE never returns, which is
exactly how that misconfiguration presents on hardware: a transmit loop
that hangs forever.
*/

package main

import (
	"io"
	"sync"
)

// S1 reads between a data write and TDRE returning.
const DEFAULT_UART_TX_READS = 2

type UARTEngine struct {
	mutex sync.Mutex

	sim *SIMEngine

	bdh, bdl uint8
	c1, c2   uint8
	s2, c3   uint8

	s1        uint8
	txPending int

	rxData uint8
	rxFull bool
	rxOver bool

	output io.Writer

	// Fired on an access with the SCGC4 gate closed. Does not return when
	// wired to the machine's hard fault path.
	onFault func(*BusFault)
}

func NewUARTEngine(sim *SIMEngine) *UARTEngine {
	e := &UARTEngine{sim: sim}
	e.resetState()
	return e
}

func (e *UARTEngine) resetState() {
	e.bdh = 0
	e.bdl = 0x04
	e.c1 = 0
	e.c2 = 0
	e.s2 = 0
	e.c3 = 0
	e.s1 = UART0_S1_TDRE | UART0_S1_TC
	e.txPending = 0
	e.rxFull = false
	e.rxOver = false
}

// SetOutput directs transmitted bytes. The console host installs itself
// here; tests install a buffer.
func (e *UARTEngine) SetOutput(w io.Writer) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.output = w
}

// SetFaultHook registers the gated-access escalation callback.
func (e *UARTEngine) SetFaultHook(hook func(*BusFault)) {
	e.onFault = hook
}

// gateFault escalates an access attempt while the clock gate is closed.
func (e *UARTEngine) gateFault(op string, addr uint32) {
	if e.onFault != nil {
		e.onFault(&BusFault{Op: op, Addr: addr, Kind: BusFaultUngated})
	}
}

func (e *UARTEngine) HandleRead(addr uint32) uint32 {
	if e.sim != nil && e.sim.UART0Gated() {
		e.gateFault("Read8", addr)
		return 0
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	switch addr {
	case UART0_BDH:
		return uint32(e.bdh)
	case UART0_BDL:
		return uint32(e.bdl)
	case UART0_C1:
		return uint32(e.c1)
	case UART0_C2:
		return uint32(e.c2)
	case UART0_S1:
		return uint32(e.readS1())
	case UART0_S2:
		return uint32(e.s2)
	case UART0_C3:
		return uint32(e.c3)
	case UART0_D:
		return uint32(e.readData())
	default:
		return 0
	}
}

func (e *UARTEngine) HandleWrite(addr uint32, value uint32) {
	if e.sim != nil && e.sim.UART0Gated() {
		e.gateFault("Write8", addr)
		return
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	v := uint8(value)
	switch addr {
	case UART0_BDH:
		e.bdh = v & UART0_BDH_SBR_MASK
	case UART0_BDL:
		e.bdl = v
	case UART0_C1:
		e.c1 = v
	case UART0_C2:
		e.c2 = v
	case UART0_S1:
		// Read-only; discarded.
	case UART0_S2:
		e.s2 = v
	case UART0_C3:
		e.c3 = v
	case UART0_D:
		e.writeData(v)
	}
}

// readS1 returns the status byte, advancing the transmit countdown. Called
// with the mutex held.
func (e *UARTEngine) readS1() uint8 {
	if e.txPending > 0 {
		e.txPending--
		if e.txPending == 0 {
			e.s1 |= UART0_S1_TDRE | UART0_S1_TC
		}
	}
	s1 := e.s1
	if e.rxFull {
		s1 |= UART0_S1_RDRF
	}
	if e.rxOver {
		s1 |= UART0_S1_OR
	}
	return s1
}

// readData pops the receive buffer. Called with the mutex held.
func (e *UARTEngine) readData() uint8 {
	e.rxFull = false
	e.rxOver = false
	return e.rxData
}

// writeData latches a transmit byte. Called with the mutex held.
func (e *UARTEngine) writeData(v uint8) {
	if e.c2&UART0_C2_TE == 0 {
		// Transmitter disabled: the write is discarded.
		return
	}
	e.s1 &^= UART0_S1_TDRE | UART0_S1_TC
	if e.sim != nil && e.sim.UART0Source() == SIM_SOPT2_UART0SRC_DISABLED {
		// No functional clock: the byte never shifts out and TDRE
		// never returns.
		return
	}
	if e.output != nil {
		e.output.Write([]byte{v})
	}
	e.txPending = DEFAULT_UART_TX_READS
}

// QueueInput delivers a received byte to the one-byte data buffer. A byte
// arriving while the buffer is full sets the overrun flag and is lost,
// matching the single-entry receiver on the real part.
func (e *UARTEngine) QueueInput(b byte) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.c2&UART0_C2_RE == 0 {
		return
	}
	if e.rxFull {
		e.rxOver = true
		return
	}
	e.rxData = b
	e.rxFull = true
}

// BaudDivisor returns the 13-bit SBR field from BDH/BDL.
func (e *UARTEngine) BaudDivisor() uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return uint32(e.bdh&UART0_BDH_SBR_MASK)<<8 | uint32(e.bdl)
}

// EffectiveBaud computes the baud rate for a given module clock, or zero
// when the divisor is unprogrammed.
func (e *UARTEngine) EffectiveBaud(clockHz uint32) uint32 {
	sbr := e.BaudDivisor()
	if sbr == 0 {
		return 0
	}
	return clockHz / (UART0_OVERSAMPLE_RATIO * sbr)
}

// TransmitterEnabled reports whether C2 TE is set.
func (e *UARTEngine) TransmitterEnabled() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.c2&UART0_C2_TE != 0
}

// ReceiveInterruptEnabled reports whether C2 RIE is set. The console host
// only raises the UART0 vector when firmware asked for receive interrupts.
func (e *UARTEngine) ReceiveInterruptEnabled() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.c2&UART0_C2_RIE != 0
}

// PeekStatus returns the S1 view without advancing the transmit countdown
// or checking the clock gate. Monitor use only.
func (e *UARTEngine) PeekStatus() uint8 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	s1 := e.s1
	if e.rxFull {
		s1 |= UART0_S1_RDRF
	}
	if e.rxOver {
		s1 |= UART0_S1_OR
	}
	return s1
}

// PeekControl returns BDH, BDL and C2 without touching the clock gate.
func (e *UARTEngine) PeekControl() (bdh, bdl, c2 uint8) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.bdh, e.bdl, e.c2
}
