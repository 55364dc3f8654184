package main

import "testing"

/*
MCG settle arithmetic used throughout these tests: a transition armed with
N settle reads stays invisible for N consecutive MCG_S reads and lands on
read N+1. Default figures are 3 reads for OSCINIT0, 2 for IREFST, CLKST
and PLLST, 5 for LOCK0. Dependent bits (CLKST on OSCINIT0, LOCK0 on PLLST)
freeze their countdown until the prerequisite has landed.
*/

func newTestMCG(t *testing.T) *MCGEngine {
	t.Helper()
	return NewMCGEngine(DEFAULT_CRYSTAL_HZ, DefaultMCGTiming())
}

func pollMCGStatus(e *MCGEngine) uint8 {
	return uint8(e.HandleRead(MCG_S))
}

// pollMCGUntil reads MCG_S until the masked field reaches want, returning
// the number of reads it took.
func pollMCGUntil(t *testing.T, e *MCGEngine, mask, want uint8, limit int) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		if pollMCGStatus(e)&mask == want {
			return i
		}
	}
	t.Fatalf("MCG_S field 0x%02X never reached 0x%02X in %d reads", mask, want, limit)
	return 0
}

func TestMCGPowerOnState(t *testing.T) {
	e := newTestMCG(t)

	if got := uint8(e.HandleRead(MCG_C1)); got != MCG_C1_IREFS_INTERNAL {
		t.Fatalf("expected C1 reset value 0x%02X, got 0x%02X", MCG_C1_IREFS_INTERNAL, got)
	}
	if got := uint8(e.HandleRead(MCG_C2)); got != MCG_C2_LOCRE0 {
		t.Fatalf("expected C2 reset value 0x%02X, got 0x%02X", MCG_C2_LOCRE0, got)
	}
	if got := e.PeekStatus(); got != MCG_S_IREFST_INTERNAL {
		t.Fatalf("expected status 0x%02X at reset, got 0x%02X", MCG_S_IREFST_INTERNAL, got)
	}
	if got := e.Mode(); got != "FEI" {
		t.Fatalf("expected FEI at reset, got %s", got)
	}
	if got := e.OutClockHz(); got != MCG_IRC_SLOW_HZ*MCG_FLL_FACTOR_DEFAULT {
		t.Fatalf("expected FLL output %d Hz, got %d", MCG_IRC_SLOW_HZ*MCG_FLL_FACTOR_DEFAULT, got)
	}
}

func TestMCGStatusSettleVisibility(t *testing.T) {
	e := newTestMCG(t)
	var landed []string
	var waits []uint64
	e.SetTransitionHook(func(field string, waited uint64) {
		landed = append(landed, field)
		waits = append(waits, waited)
	})

	// Request the crystal. OSCINIT0 is armed with 3 settle reads, so reads
	// 1..3 must still show it clear and read 4 must show it set.
	e.HandleWrite(MCG_C2, MCG_C2_LOCRE0|MCG_C2_RANGE0_VERY_HIGH|MCG_C2_EREFS0_OSCILLATOR)

	for i := 1; i <= DEFAULT_OSC_STARTUP_READS; i++ {
		if s := pollMCGStatus(e); s&MCG_S_OSCINIT0_MASK != 0 {
			t.Fatalf("read %d: expected OSCINIT0 still clear, got status 0x%02X", i, s)
		}
	}
	if s := pollMCGStatus(e); s&MCG_S_OSCINIT0_MASK != MCG_S_OSCINIT0_READY {
		t.Fatalf("read %d: expected OSCINIT0 set, got status 0x%02X", DEFAULT_OSC_STARTUP_READS+1, s)
	}

	if len(landed) != 1 || landed[0] != "OSCINIT0" {
		t.Fatalf("expected one OSCINIT0 landing, got %v", landed)
	}
	if waits[0] != uint64(DEFAULT_OSC_STARTUP_READS)+1 {
		t.Fatalf("expected landing after %d reads, got %d", DEFAULT_OSC_STARTUP_READS+1, waits[0])
	}
}

func TestMCGExternalClockGatedOnOscillator(t *testing.T) {
	e := newTestMCG(t)

	// FBE entry: crystal requested, system clock moved to the external
	// reference, FLL handed the external reference too.
	e.HandleWrite(MCG_C2, MCG_C2_LOCRE0|MCG_C2_RANGE0_VERY_HIGH|MCG_C2_EREFS0_OSCILLATOR)
	e.HandleWrite(MCG_C1, MCG_C1_CLKS_EXTERNAL|MCG_C1_FRDIV_DIV_16_512)

	// CLKST's own countdown is 2 reads, but it cannot start until OSCINIT0
	// lands on read 4: reads 4 and 5 count it down, read 6 shows it.
	reads := pollMCGUntil(t, e, MCG_S_CLKST_MASK, MCG_S_CLKST_EXTERNAL, 10)
	if reads != 6 {
		t.Fatalf("expected CLKST external on read 6, got read %d", reads)
	}
	status := e.PeekStatus()
	if status&MCG_S_IREFST_MASK != MCG_S_IREFST_EXTERNAL {
		t.Fatalf("expected IREFST external by now, got status 0x%02X", status)
	}
	if got := e.Mode(); got != "FBE" {
		t.Fatalf("expected FBE, got %s", got)
	}
	if got := e.OutClockHz(); got != DEFAULT_CRYSTAL_HZ {
		t.Fatalf("expected crystal output %d Hz, got %d", DEFAULT_CRYSTAL_HZ, got)
	}
}

func TestMCGPLLLockGatedOnSelection(t *testing.T) {
	e := newTestMCG(t)

	// 16MHz / 8 = 2MHz reference, * 48 = 96MHz VCO: a lockable setup.
	e.HandleWrite(MCG_C5, MCG_C5_PRDIV0_DIV_8)
	e.HandleWrite(MCG_C6, MCG_C6_PLLS_PLL|MCG_C6_VDIV0_MUL_48)

	// PLLST lands on read 3. LOCK0's 5-read countdown is frozen until
	// then, so it lands 5 reads later.
	if reads := pollMCGUntil(t, e, MCG_S_PLLST_MASK, MCG_S_PLLST_PLL, 10); reads != 3 {
		t.Fatalf("expected PLLST on read 3, got read %d", reads)
	}
	if reads := pollMCGUntil(t, e, MCG_S_LOCK0_MASK, MCG_S_LOCK0_LOCKED, 10); reads != 5 {
		t.Fatalf("expected LOCK0 5 reads after PLLST, got %d", reads)
	}
}

func TestMCGModeWalkToPEE(t *testing.T) {
	e := newTestMCG(t)
	if e.Mode() != "FEI" {
		t.Fatalf("expected FEI at reset, got %s", e.Mode())
	}

	// FEI -> FBE
	e.HandleWrite(MCG_C2, MCG_C2_LOCRE0|MCG_C2_RANGE0_VERY_HIGH|MCG_C2_EREFS0_OSCILLATOR)
	e.HandleWrite(MCG_C1, MCG_C1_CLKS_EXTERNAL|MCG_C1_FRDIV_DIV_16_512)
	pollMCGUntil(t, e, MCG_S_CLKST_MASK, MCG_S_CLKST_EXTERNAL, 10)
	if e.Mode() != "FBE" {
		t.Fatalf("expected FBE, got %s", e.Mode())
	}

	// FBE -> PBE
	e.HandleWrite(MCG_C5, MCG_C5_PRDIV0_DIV_8)
	e.HandleWrite(MCG_C6, MCG_C6_PLLS_PLL|MCG_C6_VDIV0_MUL_48)
	pollMCGUntil(t, e, MCG_S_PLLST_MASK, MCG_S_PLLST_PLL, 10)
	if e.Mode() != "PBE" {
		t.Fatalf("expected PBE, got %s", e.Mode())
	}
	pollMCGUntil(t, e, MCG_S_LOCK0_MASK, MCG_S_LOCK0_LOCKED, 10)

	// PBE -> PEE
	e.HandleWrite(MCG_C1, MCG_C1_CLKS_FLL_PLL|MCG_C1_FRDIV_DIV_16_512)
	if reads := pollMCGUntil(t, e, MCG_S_CLKST_MASK, MCG_S_CLKST_PLL, 10); reads != 3 {
		t.Fatalf("expected CLKST on PLL at read 3, got read %d", reads)
	}
	if e.Mode() != "PEE" {
		t.Fatalf("expected PEE, got %s", e.Mode())
	}
	if got := e.OutClockHz(); got != 96000000 {
		t.Fatalf("expected 96MHz PLL output, got %d Hz", got)
	}
}

func TestMCGOscillatorFailureNeverSets(t *testing.T) {
	e := newTestMCG(t)
	e.SetOscillatorFailure(true)
	e.HandleWrite(MCG_C2, MCG_C2_LOCRE0|MCG_C2_RANGE0_VERY_HIGH|MCG_C2_EREFS0_OSCILLATOR)

	for i := 1; i <= 20; i++ {
		if s := pollMCGStatus(e); s&MCG_S_OSCINIT0_MASK != 0 {
			t.Fatalf("read %d: expected OSCINIT0 to stay clear with a dead crystal, got 0x%02X", i, s)
		}
	}
}

func TestMCGInvalidPLLConfigNeverLocks(t *testing.T) {
	e := newTestMCG(t)

	// PRDIV0 left at divide-by-1: a 16MHz reference is far above the 4MHz
	// input ceiling, so the PLL selects but never acquires.
	e.HandleWrite(MCG_C6, MCG_C6_PLLS_PLL|MCG_C6_VDIV0_MUL_48)

	pollMCGUntil(t, e, MCG_S_PLLST_MASK, MCG_S_PLLST_PLL, 10)
	for i := 1; i <= 20; i++ {
		if s := pollMCGStatus(e); s&MCG_S_LOCK0_MASK != 0 {
			t.Fatalf("read %d: expected LOCK0 to stay clear with a bad reference, got 0x%02X", i, s)
		}
	}
}

func TestMCGRewriteKeepsCountdown(t *testing.T) {
	e := newTestMCG(t)
	e.HandleWrite(MCG_C6, MCG_C6_PLLS_PLL|MCG_C6_VDIV0_MUL_48)

	if s := pollMCGStatus(e); s&MCG_S_PLLST_MASK != 0 {
		t.Fatalf("expected PLLST stale on read 1, got 0x%02X", s)
	}

	// Rewriting the same value must not restart the 2-read countdown.
	e.HandleWrite(MCG_C6, MCG_C6_PLLS_PLL|MCG_C6_VDIV0_MUL_48)

	if s := pollMCGStatus(e); s&MCG_S_PLLST_MASK != 0 {
		t.Fatalf("expected PLLST stale on read 2, got 0x%02X", s)
	}
	if s := pollMCGStatus(e); s&MCG_S_PLLST_MASK != MCG_S_PLLST_PLL {
		t.Fatalf("expected PLLST set on read 3, got 0x%02X", s)
	}
}

func TestMCGReversalCancelsPending(t *testing.T) {
	e := newTestMCG(t)
	e.HandleWrite(MCG_C6, MCG_C6_PLLS_PLL|MCG_C6_VDIV0_MUL_48)
	e.HandleWrite(MCG_C6, 0)

	for i := 1; i <= 5; i++ {
		if s := pollMCGStatus(e); s&MCG_S_PLLST_MASK != MCG_S_PLLST_FLL {
			t.Fatalf("read %d: expected PLLST to stay on FLL after reversal, got 0x%02X", i, s)
		}
	}
}

func TestMCGControlRegistersReadBack(t *testing.T) {
	e := newTestMCG(t)

	tests := []struct {
		addr  uint32
		value uint32
	}{
		{MCG_C3, 0x5A},
		{MCG_C4, 0xA5},
		{MCG_C5, MCG_C5_PLLCLKEN0 | MCG_C5_PRDIV0_DIV_8},
		{MCG_C6, MCG_C6_VDIV0_MUL_48},
	}
	for _, tc := range tests {
		e.HandleWrite(tc.addr, tc.value)
		if got := e.HandleRead(tc.addr); got != tc.value {
			t.Fatalf("expected 0x%02X from 0x%08X, got 0x%02X", tc.value, tc.addr, got)
		}
	}

	if got := e.HandleRead(MCG_BASE + 0x07); got != 0 {
		t.Fatalf("expected unimplemented MCG offset to read zero, got 0x%02X", got)
	}
}

func TestMCGStatusWriteDiscarded(t *testing.T) {
	e := newTestMCG(t)
	e.HandleWrite(MCG_S, 0xFF)
	if got := e.PeekStatus(); got != MCG_S_IREFST_INTERNAL {
		t.Fatalf("expected status untouched by write, got 0x%02X", got)
	}
}

func TestMCGPeekDoesNotAdvanceCountdowns(t *testing.T) {
	e := newTestMCG(t)
	e.HandleWrite(MCG_C2, MCG_C2_LOCRE0|MCG_C2_RANGE0_VERY_HIGH|MCG_C2_EREFS0_OSCILLATOR)

	for i := 0; i < 10; i++ {
		if s := e.PeekStatus(); s&MCG_S_OSCINIT0_MASK != 0 {
			t.Fatalf("expected peeks to leave OSCINIT0 pending, got 0x%02X", s)
		}
	}
	if got := e.StatusReads(); got != 0 {
		t.Fatalf("expected peeks not to count as reads, got %d", got)
	}

	reads := pollMCGUntil(t, e, MCG_S_OSCINIT0_MASK, MCG_S_OSCINIT0_READY, 10)
	if reads != DEFAULT_OSC_STARTUP_READS+1 {
		t.Fatalf("expected landing on read %d, got %d", DEFAULT_OSC_STARTUP_READS+1, reads)
	}
	if got := e.StatusReads(); got != uint64(reads) {
		t.Fatalf("expected %d recorded reads, got %d", reads, got)
	}
}

func TestMCGClockFigures(t *testing.T) {
	e := newTestMCG(t)

	if got := e.FLLClockHz(); got != 20971520 {
		t.Fatalf("expected FEI FLL output 20971520 Hz, got %d", got)
	}
	if got := e.InternalClockHz(); got != MCG_IRC_SLOW_HZ {
		t.Fatalf("expected slow IRC %d Hz, got %d", MCG_IRC_SLOW_HZ, got)
	}

	// Fast IRC selected and engaged: FBI mode on the 4MHz reference.
	e.HandleWrite(MCG_C2, MCG_C2_LOCRE0|MCG_C2_IRCS)
	e.HandleWrite(MCG_C1, MCG_C1_CLKS_INTERNAL|MCG_C1_IREFS_INTERNAL)
	pollMCGUntil(t, e, MCG_S_CLKST_MASK, MCG_S_CLKST_INTERNAL, 10)
	if got := e.Mode(); got != "FBI" {
		t.Fatalf("expected FBI, got %s", got)
	}
	if got := e.OutClockHz(); got != MCG_IRC_FAST_HZ {
		t.Fatalf("expected fast IRC %d Hz, got %d", MCG_IRC_FAST_HZ, got)
	}
}

func TestMCGPLLClockRunsFree(t *testing.T) {
	e := newTestMCG(t)

	// The PLL figure is available from the dividers alone; SOPT2 routes it
	// to UART0 even while the system clock still runs elsewhere.
	e.HandleWrite(MCG_C5, MCG_C5_PRDIV0_DIV_8)
	e.HandleWrite(MCG_C6, MCG_C6_VDIV0_MUL_48)
	if got := e.PLLClockHz(); got != 96000000 {
		t.Fatalf("expected 96MHz from dividers, got %d Hz", got)
	}
}
