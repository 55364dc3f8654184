// uart_constants.go - UART0 register addresses and constants
// See registers.go for the complete memory map reference.

package main

// UART0 register addresses (8-bit, byte access only)
const (
	UART0_BDH = UART0_BASE + 0x00 // Baud rate high (bits 12-8 of divisor)
	UART0_BDL = UART0_BASE + 0x01 // Baud rate low (bits 7-0 of divisor)
	UART0_C1  = UART0_BASE + 0x02 // Control 1 (frame format)
	UART0_C2  = UART0_BASE + 0x03 // Control 2 (enables)
	UART0_S1  = UART0_BASE + 0x04 // Status 1
	UART0_S2  = UART0_BASE + 0x05 // Status 2
	UART0_C3  = UART0_BASE + 0x06 // Control 3
	UART0_D   = UART0_BASE + 0x07 // Data
)

// UART0_BDH fields
const (
	UART0_BDH_SBR_MASK = 0x1F // Bits 4-0: Divisor bits 12-8
)

// UART0_C2 bits
const (
	UART0_C2_TIE = 1 << 7 // Bit 7: Transmit interrupt enable
	UART0_C2_RIE = 1 << 5 // Bit 5: Receive interrupt enable
	UART0_C2_TE  = 1 << 3 // Bit 3: Transmitter enable
	UART0_C2_RE  = 1 << 2 // Bit 2: Receiver enable
)

// UART0_S1 bits
const (
	UART0_S1_TDRE = 1 << 7 // Bit 7: Transmit data register empty
	UART0_S1_TC   = 1 << 6 // Bit 6: Transmission complete
	UART0_S1_RDRF = 1 << 5 // Bit 5: Receive data register full
	UART0_S1_IDLE = 1 << 4 // Bit 4: Idle line detected
	UART0_S1_OR   = 1 << 3 // Bit 3: Receiver overrun
	UART0_S1_NF   = 1 << 2 // Bit 2: Noise flag
	UART0_S1_FE   = 1 << 1 // Bit 1: Framing error
	UART0_S1_PF   = 1 << 0 // Bit 0: Parity error
)

// Console wiring defaults. The UART0 clock is the PLL/2 output selected via
// SIM_SOPT2; with 48MHz and 16x oversampling a divisor of 26 lands within
// a quarter percent of 115200 baud.
const (
	UART0_OVERSAMPLE_RATIO  = 16
	UART0_DEFAULT_BAUD      = 115200
	UART0_DEFAULT_SBR_115K2 = 26
)
