// vector_table.go - exception/interrupt vector table model

/*
vector_table.go - Vector Table

The 48-entry table lives in simulated flash at address zero, exactly as the
hardware sees it: word 0 is the initial stack pointer, word 1 the reset
entry, words 2..47 the exception and interrupt handlers. Handlers are Go
funcs, but the table itself stores addresses. Each registered handler is
assigned a synthetic code address with bit 0 set (thumb-style), the words
go into flash little-endian, and dispatch reads the word back out of flash
and resolves it to the Go func. Unassigned slots hold the default handler's
address byte-for-byte, the same way a weak-alias link step fills them.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Core exception and IRQ slot indices. Slots not named here are unused on
// this part and stay on the default handler.
const (
	VECTOR_STACK_TOP  = 0
	VECTOR_RESET      = 1
	VECTOR_NMI        = 2
	VECTOR_HARD_FAULT = 3
	VECTOR_SVCALL     = 11
	VECTOR_PENDSV     = 14
	VECTOR_SYSTICK    = 15

	VECTOR_IRQ_BASE = 16

	VECTOR_DMA0        = 16
	VECTOR_DMA1        = 17
	VECTOR_DMA2        = 18
	VECTOR_DMA3        = 19
	VECTOR_FTFA        = 21
	VECTOR_LOW_VOLTAGE = 22
	VECTOR_LLWU        = 23
	VECTOR_I2C0        = 24
	VECTOR_I2C1        = 25
	VECTOR_SPI0        = 26
	VECTOR_SPI1        = 27
	VECTOR_UART0       = 28
	VECTOR_UART1       = 29
	VECTOR_UART2       = 30
	VECTOR_ADC0        = 31
	VECTOR_CMP0        = 32
	VECTOR_TPM0        = 33
	VECTOR_TPM1        = 34
	VECTOR_TPM2        = 35
	VECTOR_RTC_ALARM   = 36
	VECTOR_RTC_SECONDS = 37
	VECTOR_PIT         = 38
	VECTOR_I2S0        = 39
	VECTOR_USB_OTG     = 40
	VECTOR_DAC0        = 41
	VECTOR_TSI0        = 42
	VECTOR_MCG         = 43
	VECTOR_LPTMR0      = 44
	VECTOR_PORTA       = 46
	VECTOR_PORTCD      = 47
)

// Synthetic handler code placement. Addresses are allocated downward from
// a region above the flash configuration field, one stride per handler,
// with the thumb bit set on every stored word.
const (
	VECTOR_CODE_BASE   = 0x00001000
	VECTOR_CODE_STRIDE = 0x20
	THUMB_CODE_BIT     = 0x1
)

var vectorNames = map[int]string{
	VECTOR_STACK_TOP:   "Initial SP",
	VECTOR_RESET:       "Reset",
	VECTOR_NMI:         "NMI",
	VECTOR_HARD_FAULT:  "HardFault",
	VECTOR_SVCALL:      "SVCall",
	VECTOR_PENDSV:      "PendSV",
	VECTOR_SYSTICK:     "SysTick",
	VECTOR_DMA0:        "DMA0",
	VECTOR_DMA1:        "DMA1",
	VECTOR_DMA2:        "DMA2",
	VECTOR_DMA3:        "DMA3",
	VECTOR_FTFA:        "FTFA",
	VECTOR_LOW_VOLTAGE: "PMC LVD",
	VECTOR_LLWU:        "LLWU",
	VECTOR_I2C0:        "I2C0",
	VECTOR_I2C1:        "I2C1",
	VECTOR_SPI0:        "SPI0",
	VECTOR_SPI1:        "SPI1",
	VECTOR_UART0:       "UART0",
	VECTOR_UART1:       "UART1",
	VECTOR_UART2:       "UART2",
	VECTOR_ADC0:        "ADC0",
	VECTOR_CMP0:        "CMP0",
	VECTOR_TPM0:        "TPM0",
	VECTOR_TPM1:        "TPM1",
	VECTOR_TPM2:        "TPM2",
	VECTOR_RTC_ALARM:   "RTC Alarm",
	VECTOR_RTC_SECONDS: "RTC Seconds",
	VECTOR_PIT:         "PIT",
	VECTOR_I2S0:        "I2S0",
	VECTOR_USB_OTG:     "USB OTG",
	VECTOR_DAC0:        "DAC0",
	VECTOR_TSI0:        "TSI0",
	VECTOR_MCG:         "MCG",
	VECTOR_LPTMR0:      "LPTMR0",
	VECTOR_PORTA:       "Port A",
	VECTOR_PORTCD:      "Port C/D",
}

// VectorName returns the slot's peripheral or exception name, or "Unused"
// for slots this part does not wire.
func VectorName(index int) string {
	if name, ok := vectorNames[index]; ok {
		return name
	}
	return "Unused"
}

// VectorHandler is the Go side of a vector table entry. Handlers receive
// the machine so they can touch registers the way real handler code would.
type VectorHandler func(m *Machine)

type VectorTable struct {
	mutex sync.Mutex

	initialSP uint32
	words     [VECTOR_COUNT]uint32

	byAddress map[uint32]VectorHandler
	nextCode  uint32

	defaultWord uint32
}

// NewVectorTable builds a table with every handler slot pointing at the
// default handler. The default handler's synthetic address is allocated
// first so it is stable and byte-comparable across slots.
func NewVectorTable(initialSP uint32, defaultHandler VectorHandler) *VectorTable {
	vt := &VectorTable{
		initialSP: initialSP,
		byAddress: make(map[uint32]VectorHandler),
		nextCode:  VECTOR_CODE_BASE,
	}
	vt.defaultWord = vt.place(defaultHandler)
	vt.words[VECTOR_STACK_TOP] = initialSP
	for i := 1; i < VECTOR_COUNT; i++ {
		vt.words[i] = vt.defaultWord
	}
	return vt
}

// place allocates a synthetic thumb-style address for a handler. Called
// with the mutex held or before the table is shared.
func (vt *VectorTable) place(fn VectorHandler) uint32 {
	addr := vt.nextCode | THUMB_CODE_BIT
	vt.byAddress[addr] = fn
	vt.nextCode += VECTOR_CODE_STRIDE
	return addr
}

// Assign installs a handler at a slot. Passing nil restores the default
// handler. Slot 0 holds the stack pointer and cannot take a handler.
func (vt *VectorTable) Assign(index int, fn VectorHandler) error {
	if index <= VECTOR_STACK_TOP || index >= VECTOR_COUNT {
		return fmt.Errorf("vector index %d out of range (1..%d)", index, VECTOR_COUNT-1)
	}
	vt.mutex.Lock()
	defer vt.mutex.Unlock()
	if fn == nil {
		vt.words[index] = vt.defaultWord
		return nil
	}
	vt.words[index] = vt.place(fn)
	return nil
}

// Word returns the stored table word for a slot.
func (vt *VectorTable) Word(index int) uint32 {
	vt.mutex.Lock()
	defer vt.mutex.Unlock()
	if index < 0 || index >= VECTOR_COUNT {
		return 0
	}
	return vt.words[index]
}

// InitialSP returns the stack pointer word from slot 0.
func (vt *VectorTable) InitialSP() uint32 {
	return vt.Word(VECTOR_STACK_TOP)
}

// IsDefault reports whether a slot still resolves to the default handler.
func (vt *VectorTable) IsDefault(index int) bool {
	vt.mutex.Lock()
	defer vt.mutex.Unlock()
	if index <= VECTOR_STACK_TOP || index >= VECTOR_COUNT {
		return false
	}
	return vt.words[index] == vt.defaultWord
}

// Resolve maps a table word read from flash back to its Go handler.
func (vt *VectorTable) Resolve(word uint32) (VectorHandler, bool) {
	if word&THUMB_CODE_BIT == 0 {
		return nil, false
	}
	vt.mutex.Lock()
	defer vt.mutex.Unlock()
	fn, ok := vt.byAddress[word]
	return fn, ok
}

// Image renders the table as the 192-byte little-endian block the machine
// places at flash address zero.
func (vt *VectorTable) Image() []byte {
	vt.mutex.Lock()
	defer vt.mutex.Unlock()
	out := make([]byte, VECTOR_COUNT*4)
	for i, w := range vt.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// ValidateVectorImage checks the first two words of a flash image: the
// stack pointer must land inside SRAM and the reset entry must carry the
// thumb bit. Run at firmware load, before the image reaches flash.
func ValidateVectorImage(image []byte, sramBase, sramSize uint32) error {
	if len(image) < 8 {
		return fmt.Errorf("vector image too short: %d bytes", len(image))
	}
	sp := binary.LittleEndian.Uint32(image[0:])
	if sp <= sramBase || sp > sramBase+sramSize {
		return fmt.Errorf("initial SP 0x%08X outside SRAM 0x%08X..0x%08X",
			sp, sramBase, sramBase+sramSize)
	}
	entry := binary.LittleEndian.Uint32(image[4:])
	if entry&THUMB_CODE_BIT == 0 {
		return fmt.Errorf("reset entry 0x%08X missing thumb bit", entry)
	}
	return nil
}
