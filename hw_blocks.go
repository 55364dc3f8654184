// hw_blocks.go - per-peripheral typed register blocks

/*
hw_blocks.go - Peripheral Register Blocks

One block per peripheral, each exposing only that block's registers and
the operations that are legal on them: COPC takes a whole-register write
because it is write-once, PMPROT only ever gains bits, the clock gates
only open, PRDIV is a field update that leaves the rest of C5 alone.
Firmware that holds an MCGRegs cannot scribble on the SIM by accident.

The blocks are views over HardwareRegisters, so every operation is still
one or more real bus transactions with the same trace and fault behaviour
as a raw access.
*/

package main

// MCG returns the clock generator's register block.
func (hw *HardwareRegisters) MCG() MCGRegs { return MCGRegs{hw} }

// SIM returns the system integration module's register block.
func (hw *HardwareRegisters) SIM() SIMRegs { return SIMRegs{hw} }

// SMC returns the power mode controller's register block.
func (hw *HardwareRegisters) SMC() SMCRegs { return SMCRegs{hw} }

// OSC returns the oscillator's register block.
func (hw *HardwareRegisters) OSC() OSCRegs { return OSCRegs{hw} }

// UART0 returns the console UART's register block.
func (hw *HardwareRegisters) UART0() UARTRegs { return UARTRegs{hw} }

// MCGRegs drives the clock generator's mode requests and exposes its
// status register for the wait loops.
type MCGRegs struct{ hw *HardwareRegisters }

// RequestMode writes C1: clock source select, FLL reference divider and
// reference select in one store, the way every mode transition starts.
func (r MCGRegs) RequestMode(c1 uint8) { r.hw.Write8(MCG_C1, c1) }

// ConfigureOscillator writes C2: frequency range, gain and the request
// for the crystal rather than an external square wave.
func (r MCGRegs) ConfigureOscillator(c2 uint8) { r.hw.Write8(MCG_C2, c2) }

// SetPLLReferenceDivider programs PRDIV0 without touching the rest of C5.
func (r MCGRegs) SetPLLReferenceDivider(prdiv uint8) {
	r.hw.UpdateBits8(MCG_C5, MCG_C5_PRDIV0_MASK, prdiv)
}

// SelectPLL writes C6: the PLLS mux request plus the VCO multiplier.
func (r MCGRegs) SelectPLL(vdiv uint8) {
	r.hw.Write8(MCG_C6, MCG_C6_PLLS_PLL|(vdiv&MCG_C6_VDIV0_MASK))
}

// Status reads MCG_S. Each call is one real status poll.
func (r MCGRegs) Status() uint8 { return r.hw.Read8(MCG_S) }

// SIMRegs covers the watchdog, the clock dividers, the peripheral clock
// routing and the clock gates.
type SIMRegs struct{ hw *HardwareRegisters }

// WriteCOPC configures the COP watchdog. The register is write-once per
// reset; this is the one store firmware gets.
func (r SIMRegs) WriteCOPC(v uint32) { r.hw.Write32(SIM_COPC, v) }

// WriteCLKDIV1 programs the core and bus/flash output dividers.
func (r SIMRegs) WriteCLKDIV1(v uint32) { r.hw.Write32(SIM_CLKDIV1, v) }

// RouteAuxClock ORs a routing selection into SOPT2, leaving the other
// peripherals' source selections in place.
func (r SIMRegs) RouteAuxClock(mask uint32) { r.hw.SetBits32(SIM_SOPT2, mask) }

// OpenGates4 opens clock gates in SCGC4. Gates only open during boot;
// nothing in the bring-up path ever closes one.
func (r SIMRegs) OpenGates4(mask uint32) { r.hw.SetBits32(SIM_SCGC4, mask) }

// OpenGates5 opens clock gates in SCGC5.
func (r SIMRegs) OpenGates5(mask uint32) { r.hw.SetBits32(SIM_SCGC5, mask) }

// SMCRegs covers power mode protection.
type SMCRegs struct{ hw *HardwareRegisters }

// AllowPowerModes ORs modes into PMPROT. The register is set-only in
// hardware, so exposing only the OR keeps the interface honest.
func (r SMCRegs) AllowPowerModes(mask uint8) { r.hw.SetBits8(SMC_PMPROT, mask) }

// OSCRegs covers the external oscillator.
type OSCRegs struct{ hw *HardwareRegisters }

// EnableExternalReference writes CR: ERCLKEN plus the load capacitor
// selection for the board's crystal.
func (r OSCRegs) EnableExternalReference(cr uint8) { r.hw.Write8(OSC0_CR, cr) }

// UARTRegs covers the console UART's data path.
type UARTRegs struct{ hw *HardwareRegisters }

// SetBaudDivisor programs the 13-bit SBR field across BDH and BDL. BDH
// first: hardware latches the divisor on the BDL write.
func (r UARTRegs) SetBaudDivisor(sbr uint32) {
	r.hw.Write8(UART0_BDH, uint8(sbr>>8)&UART0_BDH_SBR_MASK)
	r.hw.Write8(UART0_BDL, uint8(sbr))
}

// WriteControl2 writes C2: transmitter, receiver and interrupt enables.
func (r UARTRegs) WriteControl2(c2 uint8) { r.hw.Write8(UART0_C2, c2) }

// Status1 reads S1.
func (r UARTRegs) Status1() uint8 { return r.hw.Read8(UART0_S1) }

// WriteData stores one byte into the transmit register.
func (r UARTRegs) WriteData(b uint8) { r.hw.Write8(UART0_D, b) }

// ReadData fetches one byte from the receive register.
func (r UARTRegs) ReadData() uint8 { return r.hw.Read8(UART0_D) }
