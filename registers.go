// registers.go - Centralized register address map for the Ignition Engine

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
registers.go - Master Register Address Map

This file provides a centralized reference for all memory regions and
memory-mapped peripheral blocks of the simulated IG32 microcontroller.
Individual peripheral models define their own detailed bitfield constants
in separate *_constants.go files.

MEMORY MAP OVERVIEW
===================

Address Range            Size    Region              Constants File
---------------------------------------------------------------------------
0x00000000-0x000000BF    192B    Vector table        vector_table.go
0x00000400-0x0000040F    16B     Flash config field  flash_config.go
0x00000000-0x0003FFFF    256KB   Program flash       board_config.go (sizes)
0x20000000-0x2001FFFF    128KB   SRAM                board_config.go (sizes)

0x40047000-0x40048107    ~4KB    SIM                 sim_constants.go
0x40064000-0x40064007    8B      MCG                 mcg_constants.go
0x40065000-0x40065000    1B      OSC0                osc_constants.go
0x4006A000-0x4006A007    8B      UART0               uart_constants.go
0x4007E000-0x4007E003    4B      SMC                 smc_constants.go

Flash and SRAM sizes above are the ig32dx256 defaults. Board profiles may
resize both memories, but peripheral block addresses are silicon properties
and never move.

PERIPHERAL REGISTER DETAILS
===========================

SIM - System Integration Module (0x40047000) - sim_constants.go
  SIM_SOPT2   (+0x1004)  PLLFLLSEL, UART0SRC peripheral clock routing
  SIM_SCGC4   (+0x1034)  UART0/I2C/SPI/CMP clock gates
  SIM_SCGC5   (+0x1038)  PORTA-PORTE/LPTMR/TSI clock gates
  SIM_CLKDIV1 (+0x1044)  OUTDIV1 core divider, OUTDIV4 bus/flash divider
  SIM_COPC    (+0x1100)  COP watchdog control, write-once after reset
  SIM_SRVCOP  (+0x1104)  COP service register

MCG - Multipurpose Clock Generator (0x40064000) - mcg_constants.go
  MCG_C1 (+0x00)  CLKS system clock select, FRDIV, IREFS
  MCG_C2 (+0x01)  RANGE0, HGO0, EREFS0 oscillator options
  MCG_C3 (+0x02)  SCTRIM slow internal reference trim
  MCG_C4 (+0x03)  DMX32, DRST_DRS FLL range
  MCG_C5 (+0x04)  PRDIV0 PLL external reference divider
  MCG_C6 (+0x05)  PLLS PLL select, VDIV0 multiplier
  MCG_S  (+0x06)  LOCK0, PLLST, IREFST, CLKST, OSCINIT0 status

OSC0 - System Oscillator (0x40065000) - osc_constants.go
  OSC0_CR (+0x00)  ERCLKEN, SC2P/SC4P/SC8P/SC16P load capacitors

UART0 - Serial Port (0x4006A000) - uart_constants.go
  UART0_BDH/BDL (+0x00/+0x01)  baud rate divisor
  UART0_C2      (+0x03)        TE/RE transmitter and receiver enables
  UART0_S1      (+0x04)        TDRE/TC/RDRF/OR status
  UART0_D       (+0x07)        transmit/receive data

SMC - System Mode Controller (0x4007E000) - smc_constants.go
  SMC_PMPROT   (+0x00)  AVLP/ALLS/AVLLS power mode unlock, set-only
  SMC_PMCTRL   (+0x01)  run/stop mode control
  SMC_STOPCTRL (+0x02)  stop mode options
  SMC_PMSTAT   (+0x03)  current power mode status

ACCESS WIDTHS
=============

MCG, OSC0, UART0 and SMC registers are 8 bits wide and must be accessed
with byte reads and writes. SIM registers are 32 bits wide and must be
accessed with aligned word reads and writes. The bus enforces both rules;
a mismatched access raises a bus fault.
*/

package main

// =============================================================================
// Memory Region Base Addresses and Boundaries
// =============================================================================

const (
	// Program flash. The vector table and the flash configuration field
	// occupy the bottom of this region; board profiles set the overall size.
	FLASH_BASE = 0x00000000

	// Vector table: 48 word-sized entries at the bottom of flash.
	VECTOR_BASE  = 0x00000000
	VECTOR_COUNT = 48
	VECTOR_END   = VECTOR_BASE + VECTOR_COUNT*4 - 1

	// Flash configuration field, consumed by the machine at power-on.
	FLASH_CONFIG_BASE = 0x00000400
	FLASH_CONFIG_SIZE = 16
	FLASH_CONFIG_END  = FLASH_CONFIG_BASE + FLASH_CONFIG_SIZE - 1

	// SRAM window.
	SRAM_BASE = 0x20000000

	// Peripheral bridge. Everything in this window is memory-mapped I/O.
	PERIPH_BASE = 0x40000000
	PERIPH_END  = 0x4007FFFF
)

// =============================================================================
// Peripheral Block Base Addresses
// =============================================================================

const (
	// System Integration Module
	SIM_BASE = 0x40047000
	SIM_END  = 0x40048107

	// Multipurpose Clock Generator
	MCG_BASE = 0x40064000
	MCG_END  = 0x40064007

	// System oscillator
	OSC0_BASE = 0x40065000
	OSC0_END  = 0x40065000

	// UART0 serial port
	UART0_BASE = 0x4006A000
	UART0_END  = 0x4006A007

	// System Mode Controller
	SMC_BASE = 0x4007E000
	SMC_END  = 0x4007E003
)

// =============================================================================
// Helper Functions
// =============================================================================

// IsPeripheralAddress returns true if the address falls inside the
// memory-mapped peripheral bridge.
func IsPeripheralAddress(addr uint32) bool {
	return addr >= PERIPH_BASE && addr <= PERIPH_END
}

// IsVectorAddress returns true if the address falls inside the vector table.
func IsVectorAddress(addr uint32) bool {
	return addr <= VECTOR_END
}

// IsFlashConfigAddress returns true if the address falls inside the flash
// configuration field.
func IsFlashConfigAddress(addr uint32) bool {
	return addr >= FLASH_CONFIG_BASE && addr <= FLASH_CONFIG_END
}

// PeripheralName returns the block name for a peripheral address, or
// "Unknown" when the address maps to no modelled block.
func PeripheralName(addr uint32) string {
	switch {
	case addr >= SIM_BASE && addr <= SIM_END:
		return "SIM"
	case addr >= MCG_BASE && addr <= MCG_END:
		return "MCG"
	case addr >= OSC0_BASE && addr <= OSC0_END:
		return "OSC0"
	case addr >= UART0_BASE && addr <= UART0_END:
		return "UART0"
	case addr >= SMC_BASE && addr <= SMC_END:
		return "SMC"
	default:
		return "Unknown"
	}
}
