// hw_registers.go - Typed hardware register access for boot firmware

/*
hw_registers.go - Hardware Register Interface

Boot firmware never touches the machine bus directly. All of its hardware
access flows through HardwareRegisters, which performs the bus transaction
and escalates any bus fault to the machine's hard fault path, the way a
faulting load or store escalates on the real core.

The split matters for fault semantics: monitor peeks use the bus's plain
accessors and merely log, while a firmware access that faults must never
return a value to the code that issued it. Escalation here is terminal for
the boot in progress.
*/

package main

// HardwareRegisters is the boot firmware's window onto the machine bus.
// The raise callback is invoked on any bus fault and does not return;
// the machine installs its hard fault entry there.
type HardwareRegisters struct {
	bus   *MachineBus
	raise func(*BusFault)
}

// NewHardwareRegisters wires a register interface to a bus. The raise
// callback receives every fault; the machine's callback panics into the
// hard fault path, while tests may pass a recorder that simply returns.
func NewHardwareRegisters(bus *MachineBus, raise func(*BusFault)) *HardwareRegisters {
	return &HardwareRegisters{bus: bus, raise: raise}
}

// Read8 reads a byte-wide register.
func (hw *HardwareRegisters) Read8(addr uint32) uint8 {
	value, ok := hw.bus.Read8WithFault(addr)
	if !ok {
		hw.raise(hw.bus.LastFault())
		return 0
	}
	return value
}

// Write8 writes a byte-wide register.
func (hw *HardwareRegisters) Write8(addr uint32, value uint8) {
	if !hw.bus.Write8WithFault(addr, value) {
		hw.raise(hw.bus.LastFault())
	}
}

// Read32 reads a word-wide register or memory word.
func (hw *HardwareRegisters) Read32(addr uint32) uint32 {
	value, ok := hw.bus.Read32WithFault(addr)
	if !ok {
		hw.raise(hw.bus.LastFault())
		return 0
	}
	return value
}

// Write32 writes a word-wide register or memory word.
func (hw *HardwareRegisters) Write32(addr uint32, value uint32) {
	if !hw.bus.Write32WithFault(addr, value) {
		hw.raise(hw.bus.LastFault())
	}
}

// SetBits8 ORs mask into a byte-wide register.
func (hw *HardwareRegisters) SetBits8(addr uint32, mask uint8) {
	hw.Write8(addr, hw.Read8(addr)|mask)
}

// ClearBits8 clears mask from a byte-wide register.
func (hw *HardwareRegisters) ClearBits8(addr uint32, mask uint8) {
	hw.Write8(addr, hw.Read8(addr)&^mask)
}

// UpdateBits8 replaces the field selected by mask with value. Bits of value
// outside mask are discarded. This is the read-modify-write idiom firmware
// uses to retarget a multi-bit field without disturbing its neighbours.
func (hw *HardwareRegisters) UpdateBits8(addr uint32, mask, value uint8) {
	hw.Write8(addr, (hw.Read8(addr)&^mask)|(value&mask))
}

// SetBits32 ORs mask into a word-wide register.
func (hw *HardwareRegisters) SetBits32(addr uint32, mask uint32) {
	hw.Write32(addr, hw.Read32(addr)|mask)
}

// ClearBits32 clears mask from a word-wide register.
func (hw *HardwareRegisters) ClearBits32(addr uint32, mask uint32) {
	hw.Write32(addr, hw.Read32(addr)&^mask)
}

// UpdateBits32 replaces the field selected by mask with value.
func (hw *HardwareRegisters) UpdateBits32(addr uint32, mask, value uint32) {
	hw.Write32(addr, (hw.Read32(addr)&^mask)|(value&mask))
}
