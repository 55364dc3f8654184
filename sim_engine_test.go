package main

import (
	"strings"
	"testing"
)

func newTestSIM(t *testing.T) *SIMEngine {
	t.Helper()
	return NewSIMEngine(DEFAULT_FLASH_SIZE)
}

func TestSIMPowerOnState(t *testing.T) {
	e := newTestSIM(t)

	tests := []struct {
		name string
		addr uint32
		want uint32
	}{
		{"SCGC4", SIM_SCGC4, SIM_SCGC4_RESET},
		{"SCGC5", SIM_SCGC5, SIM_SCGC5_RESET},
		{"SCGC6", SIM_SCGC6, SIM_SCGC6_RESET},
		{"CLKDIV1", SIM_CLKDIV1, SIM_CLKDIV1_RESET},
		{"COPC", SIM_COPC, SIM_COPC_RESET},
		{"SOPT2", SIM_SOPT2, 0},
	}
	for _, tc := range tests {
		if got := e.HandleRead(tc.addr); got != tc.want {
			t.Fatalf("%s: expected 0x%08X at reset, got 0x%08X", tc.name, tc.want, got)
		}
	}

	if !e.UART0Gated() {
		t.Fatal("expected UART0 gate closed at reset")
	}
	if e.PortGatesOpen() {
		t.Fatal("expected port gates closed at reset")
	}
	if !e.COPArmed() {
		t.Fatal("expected COP armed out of reset")
	}
	if got := e.COPBudget(); got != COP_TIMEOUT_LONG {
		t.Fatalf("expected reset budget %d, got %d", COP_TIMEOUT_LONG, got)
	}
}

func TestSIMDeviceIdentification(t *testing.T) {
	e := newTestSIM(t)

	sdid := e.HandleRead(SIM_SDID)
	if sdid&SIM_SDID_FAMID_MASK != SIM_SDID_FAMID_IG32 {
		t.Fatalf("expected IG32 family ID, got SDID 0x%08X", sdid)
	}
	if sdid&SIM_SDID_PINID_MASK != SIM_SDID_PINID_64PIN {
		t.Fatalf("expected 64-pin package ID, got SDID 0x%08X", sdid)
	}

	// SDID is read-only.
	e.HandleWrite(SIM_SDID, 0xFFFFFFFF)
	if got := e.HandleRead(SIM_SDID); got != sdid {
		t.Fatalf("expected SDID to ignore writes, got 0x%08X", got)
	}

	tests := []struct {
		flashSize uint32
		pfsize    uint32
	}{
		{32 * 1024, 0x3},
		{64 * 1024, 0x5},
		{128 * 1024, 0x7},
		{256 * 1024, 0x9},
	}
	for _, tc := range tests {
		sim := NewSIMEngine(tc.flashSize)
		if got := sim.HandleRead(SIM_FCFG1) >> 24; got != tc.pfsize {
			t.Fatalf("expected PFSIZE 0x%X for %d bytes, got 0x%X", tc.pfsize, tc.flashSize, got)
		}
	}
}

func TestSIMClockRouting(t *testing.T) {
	e := newTestSIM(t)

	e.HandleWrite(SIM_SOPT2, SIM_SOPT2_UART0SRC_PLLFLL|SIM_SOPT2_PLLFLLSEL_PLL_DIV2)
	if got := e.UART0Source(); got != SIM_SOPT2_UART0SRC_PLLFLL {
		t.Fatalf("expected UART0SRC PLLFLL, got 0x%08X", got)
	}
	if !e.PLLFLLSelected() {
		t.Fatal("expected PLLFLLSEL to pick the PLL")
	}

	e.HandleWrite(SIM_SCGC4, SIM_SCGC4_RESET|SIM_SCGC4_UART0)
	if e.UART0Gated() {
		t.Fatal("expected UART0 gate open after SCGC4 write")
	}

	e.HandleWrite(SIM_SCGC5, SIM_SCGC5_RESET|SIM_SCGC5_ALL_PORTS)
	if !e.PortGatesOpen() {
		t.Fatal("expected all port gates open")
	}
}

func TestSIMClockDividers(t *testing.T) {
	e := newTestSIM(t)

	// Reset value: core /1, bus /2.
	if got := e.OutDiv1(); got != 1 {
		t.Fatalf("expected OUTDIV1 /1 at reset, got /%d", got)
	}
	if got := e.OutDiv4(); got != 2 {
		t.Fatalf("expected OUTDIV4 /2 at reset, got /%d", got)
	}

	e.HandleWrite(SIM_CLKDIV1, 1<<SIM_CLKDIV1_OUTDIV1_SHIFT|1<<SIM_CLKDIV1_OUTDIV4_SHIFT)
	if got := e.OutDiv1(); got != 2 {
		t.Fatalf("expected OUTDIV1 /2, got /%d", got)
	}
	if got := e.OutDiv4(); got != 2 {
		t.Fatalf("expected OUTDIV4 /2, got /%d", got)
	}

	// LPBOOT slow-boot dividers established by the machine before firmware.
	e.EstablishResetDividers(7<<SIM_CLKDIV1_OUTDIV1_SHIFT | 1<<SIM_CLKDIV1_OUTDIV4_SHIFT)
	if got := e.OutDiv1(); got != 8 {
		t.Fatalf("expected OUTDIV1 /8 after slow-boot override, got /%d", got)
	}
}

func TestSIMCOPCWriteOnce(t *testing.T) {
	e := newTestSIM(t)

	e.HandleWrite(SIM_COPC, SIM_COPC_COPT_DISABLED)
	if got := e.HandleRead(SIM_COPC); got != SIM_COPC_COPT_DISABLED {
		t.Fatalf("expected first COPC write to land, got 0x%08X", got)
	}
	if e.COPArmed() {
		t.Fatal("expected COP disarmed after COPT=disabled")
	}

	// Second write must be silently discarded.
	e.HandleWrite(SIM_COPC, SIM_COPC_COPT_LONG)
	if got := e.HandleRead(SIM_COPC); got != SIM_COPC_COPT_DISABLED {
		t.Fatalf("expected COPC latched, got 0x%08X", got)
	}
	if e.COPArmed() {
		t.Fatal("expected COP to stay disarmed behind the latch")
	}
}

func TestSIMCOPTimeoutBudgets(t *testing.T) {
	tests := []struct {
		name   string
		copt   uint32
		budget int
	}{
		{"disabled", SIM_COPC_COPT_DISABLED, 0},
		{"short", SIM_COPC_COPT_SHORT, COP_TIMEOUT_SHORT},
		{"medium", SIM_COPC_COPT_MEDIUM, COP_TIMEOUT_MEDIUM},
		{"long", SIM_COPC_COPT_LONG, COP_TIMEOUT_LONG},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewSIMEngine(DEFAULT_FLASH_SIZE)
			e.HandleWrite(SIM_COPC, tc.copt)
			if got := e.COPBudget(); got != tc.budget {
				t.Fatalf("expected budget %d, got %d", tc.budget, got)
			}
		})
	}
}

func TestSIMCOPExpiry(t *testing.T) {
	e := newTestSIM(t)
	var reason string
	e.SetWatchdogHook(func(r string) { reason = r })
	e.HandleWrite(SIM_COPC, SIM_COPC_COPT_SHORT)

	for i := 0; i < COP_TIMEOUT_SHORT; i++ {
		e.TickCOP()
		if reason != "" {
			t.Fatalf("tick %d: watchdog fired inside its budget: %s", i+1, reason)
		}
	}
	e.TickCOP()
	if reason == "" {
		t.Fatal("expected watchdog to fire one access past its budget")
	}
	if !strings.Contains(reason, "COP watchdog expired") {
		t.Fatalf("expected expiry reason, got %q", reason)
	}
}

func TestSIMCOPService(t *testing.T) {
	e := newTestSIM(t)
	var reason string
	e.SetWatchdogHook(func(r string) { reason = r })
	e.HandleWrite(SIM_COPC, SIM_COPC_COPT_SHORT)

	// Run close to expiry, then service and confirm the counter restarts.
	for i := 0; i < COP_TIMEOUT_SHORT-2; i++ {
		e.TickCOP()
	}
	e.HandleWrite(SIM_SRVCOP, SIM_SRVCOP_FIRST)
	e.HandleWrite(SIM_SRVCOP, SIM_SRVCOP_SECOND)
	if reason != "" {
		t.Fatalf("expected clean service, watchdog said %q", reason)
	}

	for i := 0; i < COP_TIMEOUT_SHORT; i++ {
		e.TickCOP()
		if reason != "" {
			t.Fatalf("tick %d after service: expected a fresh budget, got %q", i+1, reason)
		}
	}
	e.TickCOP()
	if reason == "" {
		t.Fatal("expected expiry after the serviced budget ran out")
	}
}

func TestSIMCOPServiceOutOfSequence(t *testing.T) {
	tests := []struct {
		name   string
		writes []uint32
	}{
		{"second value first", []uint32{SIM_SRVCOP_SECOND}},
		{"first value twice", []uint32{SIM_SRVCOP_FIRST, SIM_SRVCOP_FIRST}},
		{"garbage", []uint32{0x42}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewSIMEngine(DEFAULT_FLASH_SIZE)
			var reason string
			e.SetWatchdogHook(func(r string) { reason = r })

			for _, v := range tc.writes {
				e.HandleWrite(SIM_SRVCOP, v)
			}
			if reason == "" {
				t.Fatal("expected out-of-sequence service to force a reset")
			}
			if !strings.Contains(reason, "out of sequence") {
				t.Fatalf("expected sequence reason, got %q", reason)
			}
		})
	}
}

func TestSIMCOPServiceIgnoredWhenDisabled(t *testing.T) {
	e := newTestSIM(t)
	fired := false
	e.SetWatchdogHook(func(string) { fired = true })
	e.HandleWrite(SIM_COPC, SIM_COPC_COPT_DISABLED)

	// Any SRVCOP traffic is inert with the COP off.
	e.HandleWrite(SIM_SRVCOP, 0x42)
	e.HandleWrite(SIM_SRVCOP, SIM_SRVCOP_SECOND)
	for i := 0; i < COP_TIMEOUT_LONG*2; i++ {
		e.TickCOP()
	}
	if fired {
		t.Fatal("expected a disabled COP to never fire")
	}
}

func TestSIMCOPBudgetOverride(t *testing.T) {
	e := newTestSIM(t)
	var reason string
	e.SetWatchdogHook(func(r string) { reason = r })
	e.SetCOPBudgetOverride(4)

	if got := e.COPBudget(); got != 4 {
		t.Fatalf("expected override budget 4, got %d", got)
	}
	for i := 0; i < 4; i++ {
		e.TickCOP()
	}
	e.TickCOP()
	if reason == "" {
		t.Fatal("expected the override budget to expire after 5 accesses")
	}

	// The override must not arm a disabled COP.
	disabled := NewSIMEngine(DEFAULT_FLASH_SIZE)
	disabled.HandleWrite(SIM_COPC, SIM_COPC_COPT_DISABLED)
	disabled.SetCOPBudgetOverride(4)
	if disabled.COPArmed() {
		t.Fatal("expected override to leave a disabled COP alone")
	}
}

func TestSIMSRVCOPReadsZero(t *testing.T) {
	e := newTestSIM(t)
	if got := e.HandleRead(SIM_SRVCOP); got != 0 {
		t.Fatalf("expected write-only SRVCOP to read zero, got 0x%08X", got)
	}
}
