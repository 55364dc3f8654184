// boot.go - the reset-time boot orchestrator

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

/*
boot.go - Boot Orchestrator

The single pass the part makes from the reset vector to the application's
main, in the only order that works:

    1. Tame the COP watchdog. The very first register write out of reset,
       because COPC is write-once and the watchdog is already counting.
    2. Unlock the power modes. PMPROT is set-only, so this write is the
       final word on which low-power states the application may enter.
    3. Clock bring-up: FEI to FBE to PBE to PEE per the clock plan.
    4. Open the peripheral clock gates. Touching a gated block faults, so
       the gates open before anything downstream gets curious.
    5. Memory initialization: data image out of flash, BSS to zero.
    6. The runtime init hook, exactly once per boot.
    7. The application entry. It is not supposed to return; if it does,
       the machine parks in the default-handler stall, the simulated
       equivalent of the closing while(1).

The orchestrator runs as the reset vector's handler. Hardware trouble on
the way up (faults, watchdog expiry, a wait that never ends under a
bounded policy) unwinds through the machine's signal path rather than
returning here.
*/

package main

import "fmt"

// RunBootSequence is the reset vector handler: the whole journey from
// power-on register state to the application's main.
func RunBootSequence(m *Machine) {
	sim := m.hw.SIM()

	// Stage 1: the watchdog. One shot at this register, so it is the
	// first store the firmware issues.
	sim.WriteCOPC(m.copcWrite)
	if budget := copBudgetFor(m.copcWrite); budget > 0 {
		m.recordStage("COP watchdog configured", true,
			fmt.Sprintf("budget %d bus accesses", budget))
	} else {
		m.recordStage("COP watchdog disabled", true, "")
	}

	// Stage 2: power mode protection. Set-only; this is the boot's whole
	// say on the matter.
	m.hw.SMC().AllowPowerModes(SMC_PMPROT_ALL)
	m.recordStage("power modes unlocked", true, "VLP, LLS, VLLS")

	// Stage 3: the clock tree.
	BootClockSequence(m, m.clockPlan)

	// Stage 4: clock gates. Ports for the pins, UART0 for the console.
	sim.OpenGates5(SIM_SCGC5_ALL_PORTS)
	sim.OpenGates4(SIM_SCGC4_UART0)
	m.recordStage("peripheral clock gates open", true, "ports, UART0")

	// Stage 5: C runtime memory image.
	InitializeMemory(m)
	layout := m.firmware.Layout
	m.recordStage("memory initialized", true,
		fmt.Sprintf("data %d bytes, bss %d bytes", layout.DataSize(), layout.BSSSize()))

	// Stage 6: runtime init, exactly once.
	m.noteRuntimeInit()
	if m.firmware.RuntimeInit != nil {
		m.firmware.RuntimeInit(m)
	}
	m.recordStage("runtime initialized", true, "")

	// Stage 7: hand over.
	m.recordStage("application entry", true, m.firmware.Name)
	m.firmware.Main(m)

	// main returned. Real firmware spins here forever; the simulated
	// machine parks in the stall state instead.
	m.stall(VECTOR_RESET)
}
