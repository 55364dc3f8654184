// boot_memory.go - reset-time memory initialization (data copy, BSS zero)

/*
boot_memory.go - Memory Initializer

The reset-time loop every linked image runs before main: copy the
initialized-data image out of flash into its SRAM home, then zero the BSS.
Both loops go through the firmware register interface word by word, so the
copies are real bus traffic: they show up in the trace, they advance the
COP watchdog, and a bad layout faults the same way it would on the part.

Iteration is forward only and stops strictly below the end bound. A region
whose end equals its start writes nothing.
*/

package main

// CopyDataImage copies destEnd-destStart bytes from the flash image at
// loadAddr to the SRAM destination, one word at a time.
func CopyDataImage(hw *HardwareRegisters, loadAddr, destStart, destEnd uint32) {
	src := loadAddr
	for dest := destStart; dest < destEnd; dest += 4 {
		hw.Write32(dest, hw.Read32(src))
		src += 4
	}
}

// ZeroBSS clears the zero-initialized region word by word.
func ZeroBSS(hw *HardwareRegisters, start, end uint32) {
	for addr := start; addr < end; addr += 4 {
		hw.Write32(addr, 0)
	}
}

// InitializeMemory runs both loops for the loaded firmware's layout.
func InitializeMemory(m *Machine) {
	layout := m.firmware.Layout
	CopyDataImage(m.hw, layout.DataLoadAddr, layout.DataStart, layout.DataEnd)
	ZeroBSS(m.hw, layout.BSSStart, layout.BSSEnd)
}
