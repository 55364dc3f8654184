// sim_constants.go - System Integration Module register addresses and constants
// See registers.go for the complete memory map reference.

package main

// SIM register addresses (32-bit, word access only). The block straddles two
// pages: SOPT1 sits at the base, everything else at base+0x1000 and up.
const (
	SIM_SOPT1   = SIM_BASE + 0x0000 // Options register 1 (USB regulator, OSC32K select)
	SIM_SOPT2   = SIM_BASE + 0x1004 // Options register 2 (peripheral clock routing)
	SIM_SOPT4   = SIM_BASE + 0x100C // Options register 4 (TPM triggers)
	SIM_SOPT5   = SIM_BASE + 0x1010 // Options register 5 (UART pin muxing)
	SIM_SOPT7   = SIM_BASE + 0x1018 // Options register 7 (ADC triggers)
	SIM_SDID    = SIM_BASE + 0x1024 // Device identification (read-only)
	SIM_SCGC4   = SIM_BASE + 0x1034 // Clock gating control 4 (UART0, I2C, SPI, CMP)
	SIM_SCGC5   = SIM_BASE + 0x1038 // Clock gating control 5 (ports, LPTMR, TSI)
	SIM_SCGC6   = SIM_BASE + 0x103C // Clock gating control 6 (TPM, ADC, RTC, DMAMUX)
	SIM_SCGC7   = SIM_BASE + 0x1040 // Clock gating control 7 (DMA)
	SIM_CLKDIV1 = SIM_BASE + 0x1044 // System clock dividers
	SIM_FCFG1   = SIM_BASE + 0x104C // Flash configuration (read-only)
	SIM_COPC    = SIM_BASE + 0x1100 // COP watchdog control (write-once)
	SIM_SRVCOP  = SIM_BASE + 0x1104 // COP service register (write-only)
)

// SIM_SOPT2 bits
const (
	SIM_SOPT2_UART0SRC_MASK     = 0x0C000000 // Bits 27-26: UART0 clock source
	SIM_SOPT2_UART0SRC_DISABLED = 0 << 26
	SIM_SOPT2_UART0SRC_PLLFLL   = 1 << 26 // PLL/FLL clock per PLLFLLSEL
	SIM_SOPT2_UART0SRC_OSCERCLK = 2 << 26
	SIM_SOPT2_UART0SRC_MCGIRCLK = 3 << 26

	SIM_SOPT2_TPMSRC_MASK = 0x03000000 // Bits 25-24: TPM clock source

	SIM_SOPT2_PLLFLLSEL_MASK     = 0x00010000 // Bit 16: PLL/FLL clock select
	SIM_SOPT2_PLLFLLSEL_FLL      = 0 << 16
	SIM_SOPT2_PLLFLLSEL_PLL_DIV2 = 1 << 16 // MCGPLLCLK / 2
)

// SIM_SCGC4 clock gate bits
const (
	SIM_SCGC4_I2C0  = 1 << 6
	SIM_SCGC4_I2C1  = 1 << 7
	SIM_SCGC4_UART0 = 1 << 10
	SIM_SCGC4_UART1 = 1 << 11
	SIM_SCGC4_UART2 = 1 << 12
	SIM_SCGC4_USB   = 1 << 18
	SIM_SCGC4_CMP   = 1 << 19
	SIM_SCGC4_SPI0  = 1 << 22
	SIM_SCGC4_SPI1  = 1 << 23
)

// SIM_SCGC5 clock gate bits
const (
	SIM_SCGC5_LPTMR = 1 << 0
	SIM_SCGC5_TSI   = 1 << 5
	SIM_SCGC5_PORTA = 1 << 9
	SIM_SCGC5_PORTB = 1 << 10
	SIM_SCGC5_PORTC = 1 << 11
	SIM_SCGC5_PORTD = 1 << 12
	SIM_SCGC5_PORTE = 1 << 13

	SIM_SCGC5_ALL_PORTS = SIM_SCGC5_PORTA | SIM_SCGC5_PORTB | SIM_SCGC5_PORTC |
		SIM_SCGC5_PORTD | SIM_SCGC5_PORTE
)

// SIM_CLKDIV1 fields. Divide factor is field value + 1.
const (
	SIM_CLKDIV1_OUTDIV1_MASK  = 0xF0000000 // Bits 31-28: Core/system clock divider
	SIM_CLKDIV1_OUTDIV1_SHIFT = 28
	SIM_CLKDIV1_OUTDIV4_MASK  = 0x00070000 // Bits 18-16: Bus/flash clock divider
	SIM_CLKDIV1_OUTDIV4_SHIFT = 16
)

// SIM_COPC fields. The register is write-once after reset: the first write
// latches and every later write is ignored, so firmware must disable (or
// configure) the watchdog in its very first act.
const (
	SIM_COPC_COPW_MASK   = 0x01 // Bit 0: Windowed mode
	SIM_COPC_COPW_NORMAL = 0 << 0

	SIM_COPC_COPCLKS_MASK     = 0x02 // Bit 1: Clock select
	SIM_COPC_COPCLKS_INT_1KHZ = 0 << 1
	SIM_COPC_COPCLKS_BUS      = 1 << 1

	SIM_COPC_COPT_MASK     = 0x0C // Bits 3-2: Timeout select
	SIM_COPC_COPT_DISABLED = 0 << 2
	SIM_COPC_COPT_SHORT    = 1 << 2 // 2^5 cycle timeout
	SIM_COPC_COPT_MEDIUM   = 2 << 2 // 2^8 cycle timeout
	SIM_COPC_COPT_LONG     = 3 << 2 // 2^10 cycle timeout
)

// COP timeout budgets in bus accesses, indexed by COPT field value. The
// engine counts bus transactions as its timebase.
const (
	COP_TIMEOUT_SHORT  = 1 << 5
	COP_TIMEOUT_MEDIUM = 1 << 8
	COP_TIMEOUT_LONG   = 1 << 10
)

// SIM_SRVCOP service sequence. Writing 0x55 then 0xAA restarts the counter;
// any other value or ordering forces an immediate reset.
const (
	SIM_SRVCOP_FIRST  = 0x55
	SIM_SRVCOP_SECOND = 0xAA
)

// SIM_SDID fields for the simulated part.
const (
	SIM_SDID_FAMID_MASK  = 0x70000000
	SIM_SDID_FAMID_IG32  = 0x10000000
	SIM_SDID_PINID_MASK  = 0x0000000F
	SIM_SDID_PINID_64PIN = 0x00000005
)
