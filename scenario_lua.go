// scenario_lua.go - Lua scenario scripting for hardware timing and faults

/*
scenario_lua.go - Scenario Engine

Boot behaviour worth testing usually lives in the hardware, not the
firmware: a slow crystal, a PLL that will not lock, a miserly watchdog
budget. Scenario scripts set those knobs before power-on so the same
firmware can be driven through happy paths and failure paths without
recompiling anything.

Scripts are plain Lua, run once against a machine that has not powered on
yet. The exposed surface:

    mcg.osc_ready_reads(n)    status reads until OSCINIT0 sets
    mcg.iref_reads(n)         status reads until IREFST switches
    mcg.clkst_reads(n)        status reads until CLKST switches
    mcg.pllst_reads(n)        status reads until PLLST switches
    mcg.lock_reads(n)         status reads until LOCK0 sets
    mcg.fail_osc()            crystal never starts
    mcg.fail_lock()           PLL never locks
    cop.budget(n)             watchdog bus-access budget (0 = COPT default)
    osc.caps_must_match(b)    require firmware caps to suit the board crystal
*/

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ApplyScenarioFile runs a scenario script from disk against a machine
// that has not yet powered on.
func ApplyScenarioFile(m *Machine, path string) error {
	return runScenario(m, func(L *lua.LState) error {
		if err := L.DoFile(path); err != nil {
			return fmt.Errorf("scenario %s: %v", path, err)
		}
		return nil
	})
}

// ApplyScenario runs scenario source text directly.
func ApplyScenario(m *Machine, source string) error {
	return runScenario(m, func(L *lua.LState) error {
		if err := L.DoString(source); err != nil {
			return fmt.Errorf("scenario: %v", err)
		}
		return nil
	})
}

func runScenario(m *Machine, execute func(*lua.LState) error) error {
	if m.State() != POWER_OFF {
		return fmt.Errorf("scenario scripts only apply before power-on")
	}
	L := lua.NewState()
	defer L.Close()
	registerScenarioTables(L, m)
	return execute(L)
}

// checkReadCount fetches a non-negative poll count argument.
func checkReadCount(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 {
		L.ArgError(1, "read count cannot be negative")
	}
	return n
}

// adjustTiming applies one field change to the MCG timing profile.
func adjustTiming(m *Machine, change func(*MCGTiming)) {
	timing := m.MCG().Timing()
	change(&timing)
	m.MCG().SetTiming(timing)
}

func registerScenarioTables(L *lua.LState, m *Machine) {
	mcg := L.NewTable()
	L.SetField(mcg, "osc_ready_reads", L.NewFunction(func(L *lua.LState) int {
		n := checkReadCount(L)
		adjustTiming(m, func(t *MCGTiming) { t.OscStartupReads = n })
		return 0
	}))
	L.SetField(mcg, "iref_reads", L.NewFunction(func(L *lua.LState) int {
		n := checkReadCount(L)
		adjustTiming(m, func(t *MCGTiming) { t.IrefSwitchReads = n })
		return 0
	}))
	L.SetField(mcg, "clkst_reads", L.NewFunction(func(L *lua.LState) int {
		n := checkReadCount(L)
		adjustTiming(m, func(t *MCGTiming) { t.ClkstSwitchReads = n })
		return 0
	}))
	L.SetField(mcg, "pllst_reads", L.NewFunction(func(L *lua.LState) int {
		n := checkReadCount(L)
		adjustTiming(m, func(t *MCGTiming) { t.PllstSwitchReads = n })
		return 0
	}))
	L.SetField(mcg, "lock_reads", L.NewFunction(func(L *lua.LState) int {
		n := checkReadCount(L)
		adjustTiming(m, func(t *MCGTiming) { t.PllLockReads = n })
		return 0
	}))
	L.SetField(mcg, "fail_osc", L.NewFunction(func(L *lua.LState) int {
		m.MCG().SetOscillatorFailure(true)
		return 0
	}))
	L.SetField(mcg, "fail_lock", L.NewFunction(func(L *lua.LState) int {
		m.MCG().SetPLLLockFailure(true)
		return 0
	}))
	L.SetGlobal("mcg", mcg)

	cop := L.NewTable()
	L.SetField(cop, "budget", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n < 0 {
			L.ArgError(1, "budget cannot be negative")
		}
		m.SIM().SetCOPBudgetOverride(n)
		return 0
	}))
	L.SetGlobal("cop", cop)

	osc := L.NewTable()
	L.SetField(osc, "caps_must_match", L.NewFunction(func(L *lua.LState) int {
		if L.CheckBool(1) {
			m.EnforceOscillatorCaps(m.CrystalLoadPF())
		} else {
			m.DisableOscillatorCapCheck()
		}
		return 0
	}))
	L.SetGlobal("osc", osc)
}
