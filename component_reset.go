// component_reset.go - Reset() methods for all hardware components (hard reset support)

/*
 ██▓   ▄████  ███▄    █ ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒  ██▒ ▀█▒ ██ ▀█   █▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▒▒██░▄▄▄░▓██  ▀█ ██▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▒░▓█  ██▓▓██▒  ▐▌██░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░░░▒▓███▀▒▒██░   ▓██░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓    ░▒   ▒ ░ ▒░   ▒ ▒░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░  ░   ░ ░ ░░   ░ ▒ ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░ ░ ░   ░    ░   ░ ░ ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░         ░          ░ ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IgnitionEngine
License: GPLv3 or later
*/

package main

// MCGEngine.Reset restores power-on clock state: FEI mode, internal
// reference, oscillator idle, no transitions in flight.
func (e *MCGEngine) Reset() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.resetState()
}

// SIMEngine.Reset restores power-on SIM state. Re-arms the COPC write-once
// latch and the long COP budget, as a reset does on silicon.
func (e *SIMEngine) Reset() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.resetState()
}

// SMCEngine.Reset restores power-on power-management state. PMPROT
// reopens: its set-only behaviour holds within a power cycle, not across
// resets.
func (e *SMCEngine) Reset() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.resetState()
}

// OSCEngine.Reset disables the oscillator and clears the load capacitor
// selection.
func (e *OSCEngine) Reset() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.cr = 0
}

// UARTEngine.Reset restores power-on register values. Preserves the output
// writer, the SIM reference and the fault hook.
func (e *UARTEngine) Reset() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.resetState()
}

// ResetAllPeripherals drives every engine back to power-on state. The
// machine calls this on hardware reset, after clearing SRAM.
func ResetAllPeripherals(m *Machine) {
	m.mcg.Reset()
	m.sim.Reset()
	m.smc.Reset()
	m.osc.Reset()
	m.uart.Reset()
}
