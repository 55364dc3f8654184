// osc_constants.go - System oscillator register addresses and constants
// See registers.go for the complete memory map reference.

package main

// OSC0 register address (8-bit, byte access only)
const (
	OSC0_CR = OSC0_BASE + 0x00
)

// OSC0_CR bits
const (
	OSC0_CR_ERCLKEN  = 1 << 7 // Bit 7: External reference clock enable
	OSC0_CR_EREFSTEN = 1 << 5 // Bit 5: External reference stop enable

	// Load capacitor selects. Effective load is the sum of enabled banks.
	OSC0_CR_SC2P  = 1 << 3 // Bit 3: Add 2pF
	OSC0_CR_SC4P  = 1 << 2 // Bit 2: Add 4pF
	OSC0_CR_SC8P  = 1 << 1 // Bit 1: Add 8pF
	OSC0_CR_SC16P = 1 << 0 // Bit 0: Add 16pF
)

// Crystal parameters for the ig32dx256 reference board.
const (
	DEFAULT_CRYSTAL_HZ = 16000000

	// A 16MHz crystal wants roughly 10pF of load: 2pF + 8pF banks.
	OSC0_CR_LOAD_10PF = OSC0_CR_SC2P | OSC0_CR_SC8P
)
