// firmware_demo.go - built-in demonstration firmware

/*
firmware_demo.go - Demo Firmware

The simulator's equivalent of the blink sketch. The reset handler has
already brought the clocks up by the time Main runs; the demo routes the
PLL to UART0, programs 115200 8N1, and prints a greeting held in its
initialized-data section. That one line of output proves most of the boot
in a single observable: the banner bytes travelled flash -> SRAM in the
data-copy step, and they only reach the host if the clock tree and the
SOPT2 routing actually work.

Typed characters echo back from the UART0 vector handler, which counts
them in a .bss word. The count starts at zero only because the zero-fill
step did its job.
*/

package main

import "fmt"

const (
	DEMO_BAUD      = 115200
	DEMO_DATA_LOAD = 0x00000800
	DEMO_BSS_WORDS = 16
)

// demoBanner lives in the .data image, NUL-terminated the way a C string
// would be. Main reads it back out of SRAM, not from this slice.
var demoBanner = []byte("\nIG32 ignition complete\ntype away, the UART echoes\n> \x00")

// DemoFirmware builds the built-in firmware for a part with the given SRAM
// size. The data image is the banner padded to a word boundary.
func DemoFirmware(sramSize uint32) *Firmware {
	image := make([]byte, (len(demoBanner)+3)&^3)
	copy(image, demoBanner)

	dataStart := uint32(SRAM_BASE)
	dataEnd := dataStart + uint32(len(image))
	return &Firmware{
		Name: "ig32-demo",
		Layout: MemoryLayout{
			DataLoadAddr: DEMO_DATA_LOAD,
			DataStart:    dataStart,
			DataEnd:      dataEnd,
			BSSStart:     dataEnd,
			BSSEnd:       dataEnd + DEMO_BSS_WORDS*4,
			StackTop:     SRAM_BASE + sramSize,
		},
		DataImage: image,
		Handlers: map[int]VectorHandler{
			VECTOR_UART0: demoEcho,
		},
		Main:   demoMain,
		Config: DefaultFlashConfig(),
	}
}

// demoRxCountAddr is the echo counter's home in .bss.
func demoRxCountAddr(m *Machine) uint32 {
	return m.Firmware().Layout.BSSStart
}

// demoMain is the application entry point. Clock bring-up already happened
// in the reset handler; this is the part a product's main() would do.
func demoMain(m *Machine) {
	hw := m.HW()

	// Route the PLL/2 peripheral clock to UART0. The gate in SCGC4 is
	// already open; without this write the port has power but no clock,
	// and the first transmit would wait on TDRE forever.
	hw.SIM().RouteAuxClock(SIM_SOPT2_UART0SRC_PLLFLL)

	// Baud divisor for 115200. Product firmware hardcodes this figure;
	// the demo derives it so every board profile still gets a readable
	// console.
	sbr := m.UART0ClockHz() / (UART0_OVERSAMPLE_RATIO * DEMO_BAUD)
	if sbr == 0 {
		sbr = 1
	}
	uart := hw.UART0()
	uart.SetBaudDivisor(sbr)
	uart.WriteControl2(UART0_C2_TE | UART0_C2_RE | UART0_C2_RIE)

	// Walk the banner out of SRAM, where the data-copy step put it.
	for addr := m.Firmware().Layout.DataStart; ; addr++ {
		b := hw.Read8(addr)
		if b == 0 {
			break
		}
		demoPutByte(m, b)
	}
}

// demoPutByte transmits one byte, polling S1 for transmit-ready first. A
// bounded wait policy turns a dead transmitter into a halt instead of a
// hung process.
func demoPutByte(m *Machine, b uint8) {
	uart := m.HW().UART0()
	polls := 0
	for uart.Status1()&UART0_S1_TDRE == 0 {
		polls++
		if m.waitPolicy.MaxPolls > 0 && polls >= m.waitPolicy.MaxPolls {
			m.halt(fmt.Sprintf("gave up waiting for UART0 TDRE after %d polls", polls))
		}
	}
	uart.WriteData(b)
}

// demoEcho services the UART0 vector: read the byte, bump the .bss
// counter, send it back.
func demoEcho(m *Machine) {
	hw := m.HW()
	uart := hw.UART0()
	if uart.Status1()&UART0_S1_RDRF == 0 {
		return
	}
	b := uart.ReadData()
	hw.Write32(demoRxCountAddr(m), hw.Read32(demoRxCountAddr(m))+1)
	demoPutByte(m, b)
}
