// mcg_constants.go - Multipurpose Clock Generator register addresses and constants

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
mcg_constants.go - Multipurpose Clock Generator Constants

The MCG is the clock heart of the IG32. It owns the FLL, the PLL, the
internal reference clocks and the selection logic that decides which of
them drives the system clock. Boot firmware walks it through a chain of
modes on the way from the power-on default to full speed:

  FEI  (FLL engaged internal)   Power-on state. FLL runs from the slow
                                internal reference.
  FBE  (FLL bypassed external)  System clock comes straight from the
                                external crystal; the oscillator starts
                                up during this transition.
  PBE  (PLL bypassed external)  Still running on the crystal, but the
                                PLL is now powered and acquiring lock.
  PEE  (PLL engaged external)   System clock comes from the PLL.

Each transition is requested through the C1/C5/C6 control registers and
confirmed by polling MCG_S. Status bits never change on the same read
that observes the old state; the engine holds each pending bit for a
configurable number of MCG_S reads before letting it land, so firmware
that fails to poll is caught by tests rather than by luck.

Register Map (all 8-bit, byte access only):
  MCG_C1  +0x00  CLKS system clock select, FRDIV, IREFS
  MCG_C2  +0x01  RANGE0, HGO0, EREFS0 oscillator controls
  MCG_C3  +0x02  SCTRIM slow internal reference trim
  MCG_C4  +0x03  DMX32, DRST_DRS FLL factors
  MCG_C5  +0x04  PRDIV0 PLL reference divider
  MCG_C6  +0x05  PLLS, VDIV0 PLL multiplier
  MCG_S   +0x06  Status: LOCK0, PLLST, CLKST, IREFST, OSCINIT0
*/

package main

// =============================================================================
// MCG Register Addresses
// =============================================================================

const (
	MCG_C1 = MCG_BASE + 0x00
	MCG_C2 = MCG_BASE + 0x01
	MCG_C3 = MCG_BASE + 0x02
	MCG_C4 = MCG_BASE + 0x03
	MCG_C5 = MCG_BASE + 0x04
	MCG_C6 = MCG_BASE + 0x05
	MCG_S  = MCG_BASE + 0x06
)

// =============================================================================
// MCG_C1 - Control Register 1
// =============================================================================

const (
	MCG_C1_CLKS_MASK     = 0xC0    // Bits 7-6: System clock select
	MCG_C1_CLKS_FLL_PLL  = 0 << 6  //   Output of FLL or PLL (per C6 PLLS)
	MCG_C1_CLKS_INTERNAL = 1 << 6  //   Internal reference clock
	MCG_C1_CLKS_EXTERNAL = 2 << 6  //   External reference clock
	MCG_C1_CLKS_SHIFT    = 6

	MCG_C1_FRDIV_MASK       = 0x38   // Bits 5-3: FLL external reference divider
	MCG_C1_FRDIV_DIV_16_512 = 4 << 3 //   Divide by 16 (low range) or 512 (high range)
	MCG_C1_FRDIV_SHIFT      = 3

	MCG_C1_IREFS_MASK     = 0x04   // Bit 2: Internal reference select
	MCG_C1_IREFS_EXTERNAL = 0 << 2 //   External reference to FLL
	MCG_C1_IREFS_INTERNAL = 1 << 2 //   Slow internal reference to FLL

	MCG_C1_IRCLKEN  = 1 << 1 // Bit 1: Internal reference clock enable
	MCG_C1_IREFSTEN = 1 << 0 // Bit 0: Internal reference stop enable
)

// =============================================================================
// MCG_C2 - Control Register 2
// =============================================================================

const (
	MCG_C2_LOCRE0 = 1 << 7 // Bit 7: Loss of clock reset enable

	MCG_C2_RANGE0_MASK      = 0x30   // Bits 5-4: Frequency range select
	MCG_C2_RANGE0_LOW       = 0 << 4 //   Low range (32.768kHz crystals)
	MCG_C2_RANGE0_HIGH      = 1 << 4 //   High range (1-8MHz crystals)
	MCG_C2_RANGE0_VERY_HIGH = 2 << 4 //   Very high range (8-32MHz crystals)

	MCG_C2_HGO0_MASK      = 0x08   // Bit 3: High gain oscillator select
	MCG_C2_HGO0_LOW_POWER = 0 << 3 //   Low power operation
	MCG_C2_HGO0_HIGH_GAIN = 1 << 3 //   High gain operation

	MCG_C2_EREFS0_MASK       = 0x04   // Bit 2: External reference select
	MCG_C2_EREFS0_CLOCK      = 0 << 2 //   External clock on EXTAL
	MCG_C2_EREFS0_OSCILLATOR = 1 << 2 //   Crystal oscillator requested

	MCG_C2_LP   = 1 << 1 // Bit 1: Low power select (FLL/PLL disabled in bypass)
	MCG_C2_IRCS = 1 << 0 // Bit 0: Internal reference clock select
)

// =============================================================================
// MCG_C5 - Control Register 5
// =============================================================================

const (
	MCG_C5_PLLCLKEN0 = 1 << 6 // Bit 6: PLL clock enable
	MCG_C5_PLLSTEN0  = 1 << 5 // Bit 5: PLL stop enable

	MCG_C5_PRDIV0_MASK = 0x1F // Bits 4-0: PLL external reference divider
	// Divide factor is PRDIV0 + 1.
	MCG_C5_PRDIV0_DIV_8 = 7 // 16MHz crystal / 8 = 2MHz PLL reference
)

// =============================================================================
// MCG_C6 - Control Register 6
// =============================================================================

const (
	MCG_C6_LOLIE0 = 1 << 7 // Bit 7: Loss of lock interrupt enable

	MCG_C6_PLLS_MASK = 0x40   // Bit 6: PLL select
	MCG_C6_PLLS_FLL  = 0 << 6 //   FLL feeds CLKS mux
	MCG_C6_PLLS_PLL  = 1 << 6 //   PLL feeds CLKS mux

	MCG_C6_CME0 = 1 << 5 // Bit 5: Clock monitor enable

	MCG_C6_VDIV0_MASK = 0x1F // Bits 4-0: PLL multiplier
	// Multiply factor is VDIV0 + 24.
	MCG_C6_VDIV0_MUL_48 = 24 // 2MHz reference * 48 = 96MHz VCO
)

// =============================================================================
// MCG_S - Status Register (read-only)
// =============================================================================

const (
	MCG_S_LOLS0 = 1 << 7 // Bit 7: Loss of lock sticky flag

	MCG_S_LOCK0_MASK   = 0x40   // Bit 6: PLL lock status
	MCG_S_LOCK0_LOCKED = 1 << 6

	MCG_S_PLLST_MASK = 0x20   // Bit 5: PLLS mux source status
	MCG_S_PLLST_FLL  = 0 << 5
	MCG_S_PLLST_PLL  = 1 << 5

	MCG_S_IREFST_MASK     = 0x10   // Bit 4: FLL reference source status
	MCG_S_IREFST_EXTERNAL = 0 << 4
	MCG_S_IREFST_INTERNAL = 1 << 4

	MCG_S_CLKST_MASK     = 0x0C   // Bits 3-2: System clock source status
	MCG_S_CLKST_FLL      = 0 << 2
	MCG_S_CLKST_INTERNAL = 1 << 2
	MCG_S_CLKST_EXTERNAL = 2 << 2
	MCG_S_CLKST_PLL      = 3 << 2
	MCG_S_CLKST_SHIFT    = 2

	MCG_S_OSCINIT0_MASK  = 0x02   // Bit 1: Oscillator initialisation complete
	MCG_S_OSCINIT0_READY = 1 << 1

	MCG_S_IRCST = 1 << 0 // Bit 0: Internal reference clock status
)

// =============================================================================
// Hardware Settling Behaviour
//
// Status bits take time to land on the real part. The engine models that
// time in units of MCG_S reads: a pending transition stays invisible for N
// consecutive status reads and lands on read N+1. Board profiles can
// override every figure; these are the ig32dx256 defaults.
// =============================================================================

const (
	DEFAULT_OSC_STARTUP_READS  = 3 // Crystal startup before OSCINIT0 sets
	DEFAULT_IREF_SWITCH_READS  = 2 // Reference mux switch before IREFST lands
	DEFAULT_CLKST_SWITCH_READS = 2 // System clock mux switch before CLKST lands
	DEFAULT_PLLST_SWITCH_READS = 2 // PLLS mux switch before PLLST lands
	DEFAULT_PLL_LOCK_READS     = 5 // PLL acquisition before LOCK0 sets

	// PLL reference input limits. The PLL only locks when PRDIV0 divides
	// the crystal into this window.
	PLL_REF_MIN_HZ = 2000000
	PLL_REF_MAX_HZ = 4000000

	// VCO output ceiling.
	PLL_VCO_MAX_HZ = 100000000
)
