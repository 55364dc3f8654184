// machine_test.go - machine lifecycle, dispatch and fault plumbing tests

/*
machine_test.go - Machine Tests

Power lifecycle, the flash security policy at power-on, monitor resets,
and the vector dispatch rules: an unassigned slot parks in the default
handler, an unresolvable word escalates to hard fault, and a corrupted
hard fault vector is the lockup case. Everything arrives at the caller
as a typed error from Run or InjectEvent, never as a hang.
*/

package main

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestMachinePowerLifecycle(t *testing.T) {
	m := NewDefaultMachine()

	if err := m.PowerOn(); err == nil || !strings.Contains(err.Error(), "no firmware") {
		t.Fatalf("expected power-on with empty flash to fail, got %v", err)
	}
	if err := m.LoadFirmware(DemoFirmware(m.SRAMSize())); err != nil {
		t.Fatalf("LoadFirmware failed: %v", err)
	}
	if err := m.PowerOn(); err != nil {
		t.Fatalf("PowerOn failed: %v", err)
	}
	if m.State() != POWER_ON {
		t.Fatalf("expected POWER_ON, got %s", m.State())
	}
	if err := m.PowerOn(); err == nil || !strings.Contains(err.Error(), "already powered") {
		t.Fatalf("expected a second power-on to fail, got %v", err)
	}

	m.PowerOff()
	if m.State() != POWER_OFF {
		t.Fatalf("expected POWER_OFF, got %s", m.State())
	}
	if err := m.PowerOn(); err != nil {
		t.Fatalf("power cycling failed: %v", err)
	}
}

func TestMachineRunRequiresPower(t *testing.T) {
	m := NewDefaultMachine()
	if err := m.LoadFirmware(DemoFirmware(m.SRAMSize())); err != nil {
		t.Fatalf("LoadFirmware failed: %v", err)
	}
	if err := m.Run(); err == nil || !strings.Contains(err.Error(), "not powered on") {
		t.Fatalf("expected Run without power to fail, got %v", err)
	}
}

func TestMachineSecurityPolicy(t *testing.T) {
	t.Run("unsecured", func(t *testing.T) {
		m, _ := bootDemoMachine(t)
		if err := m.DebugAccessAllowed(); err != nil {
			t.Fatalf("expected debug access on an unsecured part, got %v", err)
		}
	})

	t.Run("secured but erasable", func(t *testing.T) {
		m := NewDefaultMachine()
		fw := DemoFirmware(m.SRAMSize())
		fw.Config.FSec = 0xFF
		if err := m.LoadFirmware(fw); err != nil {
			t.Fatalf("LoadFirmware failed: %v", err)
		}
		if err := m.PowerOn(); err != nil {
			t.Fatalf("expected a secured-but-erasable part to power on, got %v", err)
		}
		if err := m.DebugAccessAllowed(); !errors.Is(err, ErrDeviceSecured) {
			t.Fatalf("expected ErrDeviceSecured, got %v", err)
		}
	})

	t.Run("secured with mass erase disabled", func(t *testing.T) {
		m := NewDefaultMachine()
		fw := DemoFirmware(m.SRAMSize())
		fw.Config.FSec = 0xEF
		if err := m.LoadFirmware(fw); err != nil {
			t.Fatalf("LoadFirmware failed: %v", err)
		}
		if err := m.PowerOn(); !errors.Is(err, ErrDeviceBricked) {
			t.Fatalf("expected ErrDeviceBricked at power-on, got %v", err)
		}
		if m.State() != POWER_OFF {
			t.Fatalf("expected the bricked part to stay off, got %s", m.State())
		}
	})
}

func TestMachineMonitorReset(t *testing.T) {
	m, console := bootDemoMachine(t)
	runToStall(t, m)
	banner := console.String()
	layout := m.Firmware().Layout

	m.Reset()

	if m.State() != POWER_ON {
		t.Fatalf("expected POWER_ON after reset, got %s", m.State())
	}
	if got := m.ResetCount(); got != 1 {
		t.Fatalf("expected one reset, got %d", got)
	}
	if got := m.LastResetCause(); got != "monitor reset" {
		t.Fatalf("expected the cause recorded, got %q", got)
	}
	if got := m.StalledVector(); got != -1 {
		t.Fatalf("expected the stall cleared, got vector %d", got)
	}
	if stages := m.BootStages(); len(stages) != 0 {
		t.Fatalf("expected the stage record cleared, got %v", stages)
	}
	if got := m.RuntimeInitRuns(); got != 0 {
		t.Fatalf("expected the runtime init count cleared, got %d", got)
	}

	// SRAM is wiped, flash is not.
	if b, _ := m.Bus().Peek8(layout.DataStart); b != 0 {
		t.Fatalf("expected SRAM cleared by the reset, found 0x%02X", b)
	}
	if sp, _ := m.Bus().Peek32(VECTOR_BASE); sp != layout.StackTop {
		t.Fatalf("expected the vector table intact in flash, got SP 0x%08X", sp)
	}

	// The machine boots again from the same flash image: data re-copied,
	// banner printed a second time.
	runToStall(t, m)
	if got := console.String(); got != banner+banner {
		t.Fatalf("expected a second banner after the reset, got %q", got)
	}
	if got := m.RuntimeInitRuns(); got != 1 {
		t.Fatalf("expected one runtime init on the second boot, got %d", got)
	}
}

func TestMachineUnassignedVectorStalls(t *testing.T) {
	m, _ := bootDemoMachine(t)

	err := m.InjectEvent(VECTOR_NMI)
	var stall *StallError
	if !errors.As(err, &stall) {
		t.Fatalf("expected the default handler stall, got %v", err)
	}
	if stall.Vector != VECTOR_NMI {
		t.Fatalf("expected stall on vector %d, got %d", VECTOR_NMI, stall.Vector)
	}
	if m.State() != POWER_STALLED {
		t.Fatalf("expected POWER_STALLED, got %s", m.State())
	}
	if got := m.StalledVector(); got != VECTOR_NMI {
		t.Fatalf("expected stalled vector %d, got %d", VECTOR_NMI, got)
	}
	if !strings.Contains(stall.Error(), "NMI") {
		t.Fatalf("expected the vector named in the error, got %q", stall.Error())
	}
}

func TestMachineUnresolvableVectorEscalates(t *testing.T) {
	m, _ := bootDemoMachine(t)

	// A word with the thumb bit set that no handler was ever placed at.
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], 0x00000501)
	if err := m.Bus().WriteFlashDirect(VECTOR_BASE+VECTOR_NMI*4, word[:]); err != nil {
		t.Fatalf("corrupting the NMI vector: %v", err)
	}

	err := m.InjectEvent(VECTOR_NMI)
	var stall *StallError
	if !errors.As(err, &stall) {
		t.Fatalf("expected the hard fault path to park the machine, got %v", err)
	}
	if stall.Vector != VECTOR_HARD_FAULT {
		t.Fatalf("expected stall on the hard fault vector, got %d", stall.Vector)
	}

	violations := m.Violations()
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %v", violations)
	}
	if !strings.Contains(violations[0], "unresolvable entry 0x00000501") ||
		!strings.Contains(violations[0], "NMI") {
		t.Fatalf("expected the corrupt word named, got %q", violations[0])
	}
}

func TestMachineVectorLockupParks(t *testing.T) {
	m, _ := bootDemoMachine(t)

	// Corrupt the NMI vector and the hard fault vector behind it: the
	// escalation has nowhere to go, which is lockup on the real part.
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], 0x00000501)
	if err := m.Bus().WriteFlashDirect(VECTOR_BASE+VECTOR_NMI*4, word[:]); err != nil {
		t.Fatalf("corrupting the NMI vector: %v", err)
	}
	if err := m.Bus().WriteFlashDirect(VECTOR_BASE+VECTOR_HARD_FAULT*4, word[:]); err != nil {
		t.Fatalf("corrupting the hard fault vector: %v", err)
	}

	err := m.InjectEvent(VECTOR_NMI)
	var stall *StallError
	if !errors.As(err, &stall) {
		t.Fatalf("expected the lockup to park the machine, got %v", err)
	}
	if stall.Vector != VECTOR_HARD_FAULT {
		t.Fatalf("expected the park on the hard fault vector, got %d", stall.Vector)
	}
	if m.State() != POWER_STALLED {
		t.Fatalf("expected POWER_STALLED, got %s", m.State())
	}
	if violations := m.Violations(); len(violations) != 2 {
		t.Fatalf("expected both corrupt vectors recorded, got %v", violations)
	}
}

func TestMachineClocksOutOfReset(t *testing.T) {
	m, _ := bootDemoMachine(t)

	// FEI out of reset: FLL at 640x the slow IRC, LPBOOT dividers /1 and
	// /2 from the default FOPT.
	core, busHz := m.CoreClocks()
	if core != 20971520 {
		t.Fatalf("expected the FEI core at 20971520 Hz, got %d", core)
	}
	if busHz != 10485760 {
		t.Fatalf("expected the reset bus clock at 10485760 Hz, got %d", busHz)
	}
	if mode := m.MCG().Mode(); mode != "FEI" {
		t.Fatalf("expected FEI out of reset, got %s", mode)
	}
}

func TestMachineUART0ClockRouting(t *testing.T) {
	m := newClockRig(t)
	hw := m.HW()

	if got := m.UART0ClockHz(); got != 0 {
		t.Fatalf("expected no UART0 clock with the source disabled, got %d", got)
	}

	// OSCERCLK routing follows the ERCLKEN gate.
	hw.Write32(SIM_SOPT2, SIM_SOPT2_UART0SRC_OSCERCLK)
	if got := m.UART0ClockHz(); got != 0 {
		t.Fatalf("expected no clock with ERCLKEN off, got %d", got)
	}
	hw.Write8(OSC0_CR, OSC0_CR_ERCLKEN)
	if got := m.UART0ClockHz(); got != DEFAULT_CRYSTAL_HZ {
		t.Fatalf("expected the crystal on OSCERCLK, got %d", got)
	}

	// MCGIRCLK follows the IRCS fast/slow select.
	hw.Write32(SIM_SOPT2, SIM_SOPT2_UART0SRC_MCGIRCLK)
	if got := m.UART0ClockHz(); got != MCG_IRC_SLOW_HZ {
		t.Fatalf("expected the slow IRC, got %d", got)
	}
	hw.Write8(MCG_C2, MCG_C2_IRCS)
	if got := m.UART0ClockHz(); got != MCG_IRC_FAST_HZ {
		t.Fatalf("expected the fast IRC, got %d", got)
	}

	// PLLFLL source with PLLFLLSEL clear is the FLL.
	hw.Write32(SIM_SOPT2, SIM_SOPT2_UART0SRC_PLLFLL)
	if got := m.UART0ClockHz(); got != 20971520 {
		t.Fatalf("expected the FLL on the PLLFLL source, got %d", got)
	}
}

func TestMachineBoardAccessors(t *testing.T) {
	m, _ := bootDemoMachine(t)

	if got := m.BoardName(); got != "ig32dx256" {
		t.Fatalf("expected the reference board name, got %q", got)
	}
	if got := m.CrystalHz(); got != DEFAULT_CRYSTAL_HZ {
		t.Fatalf("expected a %dHz crystal, got %d", DEFAULT_CRYSTAL_HZ, got)
	}
	if got := m.CrystalLoadPF(); got != 10 {
		t.Fatalf("expected a 10pF crystal, got %dpF", got)
	}
	if got := m.FlashSize(); got != DEFAULT_FLASH_SIZE {
		t.Fatalf("expected %d bytes of flash, got %d", DEFAULT_FLASH_SIZE, got)
	}
	if got := m.SRAMSize(); got != DEFAULT_SRAM_SIZE {
		t.Fatalf("expected %d bytes of SRAM, got %d", DEFAULT_SRAM_SIZE, got)
	}
	if fw := m.Firmware(); fw == nil || fw.Name != "ig32-demo" {
		t.Fatalf("expected the demo firmware loaded, got %+v", fw)
	}
}
