// machine_bus.go - Machine bus for the Ignition Engine

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
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

/*
machine_bus.go - Machine Bus for the Ignition Engine

This module implements the memory bus that forms the backbone of the IG32
machine model. It provides a unified interface for byte, halfword and word
accesses across the three regions of the IG32 address space: program flash at
the bottom of memory, SRAM at 0x20000000, and the memory-mapped peripheral
bridge at 0x40000000. The implementation emphasises faithful fault behaviour
and precise control over memory layout, both of which are critical for
accurate microcontroller simulation.

Core Features:

    Program flash and SRAM backed by contiguous byte slices, sized per the
    selected board profile.
    Support for memory-mapped peripherals via an I/O region mapping table
    that uses page masking and fixed page sizes.
    Little-endian read/write operations, matching the IG32 core.
    Enforcement of silicon access rules: word alignment, per-peripheral
    access widths, and flash write protection.
    Fault reporting in two flavours: plain accessors that log a warning and
    return zero (used by the machine monitor), and WithFault accessors that
    surface the failure to the caller (used by boot firmware).

Technical Details:

    The MachineBus struct fulfils the Bus32 interface, encapsulating the two
    memory regions and a mapping of peripheral I/O regions.
    I/O regions are registered with a start address, an end address, a
    declared access width, and callback functions (onRead and onWrite) that
    model the peripheral's registers.
    Memory page keys are calculated using a page mask (0xFFFFFF00) and a
    page increment of 0x100, so lookups cost one map probe per access.
    Flash is read-only through the bus, as it is on the real part; images
    are installed through WriteFlashDirect before the machine powers on.
    An access hook fires once per bus transaction. The COP watchdog uses it
    as its timebase, counting accesses the way the silicon counts bus
    clocks.

Fault Model:

    Accesses that the silicon would escalate to a fault are modelled as
    BusFault values: unmapped addresses, misaligned halfword or word
    accesses, accesses of the wrong width for a peripheral block, and
    writes to flash. Reads of write-only registers return zero and writes
    to read-only registers are discarded, matching the hardware, which
    ignores both rather than faulting.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

const (
	DEFAULT_FLASH_SIZE = 256 * 1024
	DEFAULT_SRAM_SIZE  = 128 * 1024
	PAGE_SIZE          = 0x100
	PAGE_MASK          = 0xFFFFFF00
)

// AccessWidth is the register width a peripheral block declares when it is
// mapped onto the bus. The bus rejects accesses of any other width.
type AccessWidth int

const (
	Access8 AccessWidth = iota
	Access16
	Access32
)

func (w AccessWidth) String() string {
	switch w {
	case Access8:
		return "byte"
	case Access16:
		return "halfword"
	case Access32:
		return "word"
	default:
		return "unknown"
	}
}

// BusFaultKind classifies why a bus access failed.
type BusFaultKind int

const (
	// BusFaultUnmapped means no memory or peripheral decodes the address.
	BusFaultUnmapped BusFaultKind = iota
	// BusFaultMisaligned means a halfword or word access to an odd address.
	BusFaultMisaligned
	// BusFaultWidth means the access width does not match the peripheral.
	BusFaultWidth
	// BusFaultFlashWrite means a write landed in program flash.
	BusFaultFlashWrite
	// BusFaultUngated means the peripheral's SIM clock gate is closed.
	BusFaultUngated
)

// BusFault describes a failed bus access. It satisfies the error interface
// so callers can thread it through normal error paths.
type BusFault struct {
	Op    string // "Read8", "Write32", ...
	Addr  uint32
	Kind  BusFaultKind
	Width AccessWidth // declared width of the target region, for BusFaultWidth
}

func (f *BusFault) Error() string {
	switch f.Kind {
	case BusFaultUnmapped:
		return fmt.Sprintf("%s at unmapped address 0x%08X", f.Op, f.Addr)
	case BusFaultMisaligned:
		return fmt.Sprintf("misaligned %s at address 0x%08X", f.Op, f.Addr)
	case BusFaultWidth:
		return fmt.Sprintf("%s at 0x%08X: %s registers are %s-access only", f.Op, f.Addr, PeripheralName(f.Addr), f.Width)
	case BusFaultFlashWrite:
		return fmt.Sprintf("%s to read-only flash at 0x%08X", f.Op, f.Addr)
	case BusFaultUngated:
		return fmt.Sprintf("%s at 0x%08X: %s is clock-gated off", f.Op, f.Addr, PeripheralName(f.Addr))
	default:
		return fmt.Sprintf("%s fault at 0x%08X", f.Op, f.Addr)
	}
}

type Bus32 interface {
	/*
		Bus32 defines the interface for memory operations within the
		IG32 machine. It provides methods to read and write 8, 16 and
		32-bit values as well as to reset the volatile memory state.

		Implementations must honour the silicon access rules: flash is
		read-only, word and halfword accesses must be aligned, and
		peripheral registers accept only their declared width.
	*/

	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, value uint16)
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
	Reset()
}

type MachineBus struct {
	/*
		MachineBus implements the Bus32 interface and serves as the
		primary memory bus for the IG32 machine.

		It maintains the program flash and SRAM blocks and a mapping
		of memory-mapped peripheral regions. The bus itself carries no
		locks; the machine drives it from a single goroutine and each
		peripheral engine guards its own register state.
	*/

	flash []byte
	sram  []byte

	mapping map[uint32][]IORegion

	// Fires once per bus transaction. The COP watchdog registers here
	// and uses access counts as its timebase.
	accessHook func()

	// Fires after every successful transaction, in bus order. The boot
	// tracer records the access sequence through it.
	traceHook func(op string, addr uint32, width AccessWidth, value uint32)

	// Most recent fault surfaced through a WithFault accessor.
	lastFault *BusFault

	// Sealed state to prevent I/O mapping after the machine powers on.
	sealed atomic.Bool
}

type IORegion struct {
	/*
		IORegion represents a memory-mapped peripheral region. Each
		region is defined by its start and end addresses, the access
		width its registers require, and callback functions invoked
		when a bus access falls within the region's boundaries.

		A nil onRead models a write-only register (reads return zero);
		a nil onWrite models a read-only register (writes are
		discarded).
	*/
	start   uint32
	end     uint32
	width   AccessWidth
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32)
}

func NewMachineBus(flashSize, sramSize uint32) *MachineBus {
	/*
		NewMachineBus initialises and returns a new MachineBus
		instance with the given flash and SRAM sizes. Board profiles
		supply the sizes; NewDefaultMachineBus covers the common case.
	*/

	return &MachineBus{
		flash:   make([]byte, flashSize),
		sram:    make([]byte, sramSize),
		mapping: make(map[uint32][]IORegion),
	}
}

// NewDefaultMachineBus returns a bus sized for the ig32dx256 reference part:
// 256KB of program flash and 128KB of SRAM.
func NewDefaultMachineBus() *MachineBus {
	return NewMachineBus(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE)
}

// FlashBytes returns a direct reference to the underlying flash slice.
// The firmware loader and flash persistence layer use it to install and
// snapshot images without going through bus write protection.
func (bus *MachineBus) FlashBytes() []byte {
	return bus.flash
}

// SRAMBytes returns a direct reference to the underlying SRAM slice.
func (bus *MachineBus) SRAMBytes() []byte {
	return bus.sram
}

// WriteFlashDirect writes bytes directly into flash, bypassing bus write
// protection. This models the external programmer that burns the image
// before the part powers on.
func (bus *MachineBus) WriteFlashDirect(addr uint32, data []byte) error {
	if uint64(addr)+uint64(len(data)) > uint64(len(bus.flash)) {
		return fmt.Errorf("flash image write at 0x%08X (%d bytes) exceeds %d byte flash", addr, len(data), len(bus.flash))
	}
	copy(bus.flash[addr:], data)
	return nil
}

// SetAccessHook registers a callback fired once per bus transaction.
// Peek accessors do not fire it, so monitor inspection never advances
// the watchdog.
func (bus *MachineBus) SetAccessHook(hook func()) {
	bus.accessHook = hook
}

// SetTraceHook registers a callback fired after each successful bus
// transaction. Peek and Poke accessors never fire it, so monitor
// inspection leaves the trace untouched.
func (bus *MachineBus) SetTraceHook(hook func(op string, addr uint32, width AccessWidth, value uint32)) {
	bus.traceHook = hook
}

// SealMappings prevents further MapIO calls. This is called when the machine
// powers on to ensure the region table remains stable during execution.
func (bus *MachineBus) SealMappings() {
	bus.sealed.CompareAndSwap(false, true)
}

func (bus *MachineBus) MapIO(start, end uint32, width AccessWidth, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) {
	if bus.sealed.Load() {
		panic(fmt.Sprintf("MapIO called after power-on (mapping range $%08X-$%08X)", start, end))
	}
	region := IORegion{
		start:   start,
		end:     end,
		width:   width,
		onRead:  onRead,
		onWrite: onWrite,
	}

	firstPage := start & PAGE_MASK
	lastPage := end & PAGE_MASK
	for page := firstPage; page <= lastPage; page += PAGE_SIZE {
		bus.mapping[page] = append(bus.mapping[page], region)
	}
}

// findIORegion looks up the peripheral region for the given address.
func (bus *MachineBus) findIORegion(addr uint32) *IORegion {
	page := addr & PAGE_MASK
	if regions, exists := bus.mapping[page]; exists {
		for i := range regions {
			if addr >= regions[i].start && addr <= regions[i].end {
				return &regions[i]
			}
		}
	}
	return nil
}

func (bus *MachineBus) tickAccess() {
	if bus.accessHook != nil {
		bus.accessHook()
	}
}

func (bus *MachineBus) note(op string, addr uint32, width AccessWidth, value uint32) {
	if bus.traceHook != nil {
		bus.traceHook(op, addr, width, value)
	}
}

// inFlash reports whether an access of the given size fits inside flash.
func (bus *MachineBus) inFlash(addr, size uint32) bool {
	return uint64(addr)+uint64(size) <= uint64(len(bus.flash))
}

// inSRAM reports whether an access of the given size fits inside SRAM.
func (bus *MachineBus) inSRAM(addr, size uint32) bool {
	return addr >= SRAM_BASE && uint64(addr-SRAM_BASE)+uint64(size) <= uint64(len(bus.sram))
}

// dispatchRead routes a peripheral read through the region table, enforcing
// the declared access width.
func (bus *MachineBus) dispatchRead(op string, addr uint32, width AccessWidth) (uint32, *BusFault) {
	region := bus.findIORegion(addr)
	if region == nil {
		return 0, &BusFault{Op: op, Addr: addr, Kind: BusFaultUnmapped}
	}
	if region.width != width {
		return 0, &BusFault{Op: op, Addr: addr, Kind: BusFaultWidth, Width: region.width}
	}
	if region.onRead == nil {
		// Write-only register: reads return zero.
		return 0, nil
	}
	return region.onRead(addr), nil
}

// dispatchWrite routes a peripheral write through the region table, enforcing
// the declared access width.
func (bus *MachineBus) dispatchWrite(op string, addr uint32, width AccessWidth, value uint32) *BusFault {
	region := bus.findIORegion(addr)
	if region == nil {
		return &BusFault{Op: op, Addr: addr, Kind: BusFaultUnmapped}
	}
	if region.width != width {
		return &BusFault{Op: op, Addr: addr, Kind: BusFaultWidth, Width: region.width}
	}
	if region.onWrite != nil {
		region.onWrite(addr, value)
	}
	// Read-only register: write discarded.
	return nil
}

// =============================================================================
// Core access paths
// =============================================================================

func (bus *MachineBus) read8(addr uint32) (uint8, *BusFault) {
	if bus.inFlash(addr, 1) {
		return bus.flash[addr], nil
	}
	if bus.inSRAM(addr, 1) {
		return bus.sram[addr-SRAM_BASE], nil
	}
	if IsPeripheralAddress(addr) {
		value, fault := bus.dispatchRead("Read8", addr, Access8)
		return uint8(value), fault
	}
	return 0, &BusFault{Op: "Read8", Addr: addr, Kind: BusFaultUnmapped}
}

func (bus *MachineBus) write8(addr uint32, value uint8) *BusFault {
	if bus.inFlash(addr, 1) {
		return &BusFault{Op: "Write8", Addr: addr, Kind: BusFaultFlashWrite}
	}
	if bus.inSRAM(addr, 1) {
		bus.sram[addr-SRAM_BASE] = value
		return nil
	}
	if IsPeripheralAddress(addr) {
		return bus.dispatchWrite("Write8", addr, Access8, uint32(value))
	}
	return &BusFault{Op: "Write8", Addr: addr, Kind: BusFaultUnmapped}
}

func (bus *MachineBus) read16(addr uint32) (uint16, *BusFault) {
	if addr&1 != 0 {
		return 0, &BusFault{Op: "Read16", Addr: addr, Kind: BusFaultMisaligned}
	}
	if bus.inFlash(addr, 2) {
		return binary.LittleEndian.Uint16(bus.flash[addr : addr+2]), nil
	}
	if bus.inSRAM(addr, 2) {
		offset := addr - SRAM_BASE
		return binary.LittleEndian.Uint16(bus.sram[offset : offset+2]), nil
	}
	if IsPeripheralAddress(addr) {
		// No IG32 peripheral carries halfword registers, so this always
		// reports the region's true width.
		value, fault := bus.dispatchRead("Read16", addr, Access16)
		return uint16(value), fault
	}
	return 0, &BusFault{Op: "Read16", Addr: addr, Kind: BusFaultUnmapped}
}

func (bus *MachineBus) write16(addr uint32, value uint16) *BusFault {
	if addr&1 != 0 {
		return &BusFault{Op: "Write16", Addr: addr, Kind: BusFaultMisaligned}
	}
	if bus.inFlash(addr, 2) {
		return &BusFault{Op: "Write16", Addr: addr, Kind: BusFaultFlashWrite}
	}
	if bus.inSRAM(addr, 2) {
		offset := addr - SRAM_BASE
		binary.LittleEndian.PutUint16(bus.sram[offset:offset+2], value)
		return nil
	}
	if IsPeripheralAddress(addr) {
		return bus.dispatchWrite("Write16", addr, Access16, uint32(value))
	}
	return &BusFault{Op: "Write16", Addr: addr, Kind: BusFaultUnmapped}
}

func (bus *MachineBus) read32(addr uint32) (uint32, *BusFault) {
	if addr&3 != 0 {
		return 0, &BusFault{Op: "Read32", Addr: addr, Kind: BusFaultMisaligned}
	}
	if bus.inFlash(addr, 4) {
		return binary.LittleEndian.Uint32(bus.flash[addr : addr+4]), nil
	}
	if bus.inSRAM(addr, 4) {
		offset := addr - SRAM_BASE
		return binary.LittleEndian.Uint32(bus.sram[offset : offset+4]), nil
	}
	if IsPeripheralAddress(addr) {
		return bus.dispatchRead("Read32", addr, Access32)
	}
	return 0, &BusFault{Op: "Read32", Addr: addr, Kind: BusFaultUnmapped}
}

func (bus *MachineBus) write32(addr uint32, value uint32) *BusFault {
	if addr&3 != 0 {
		return &BusFault{Op: "Write32", Addr: addr, Kind: BusFaultMisaligned}
	}
	if bus.inFlash(addr, 4) {
		return &BusFault{Op: "Write32", Addr: addr, Kind: BusFaultFlashWrite}
	}
	if bus.inSRAM(addr, 4) {
		offset := addr - SRAM_BASE
		binary.LittleEndian.PutUint32(bus.sram[offset:offset+4], value)
		return nil
	}
	if IsPeripheralAddress(addr) {
		return bus.dispatchWrite("Write32", addr, Access32, value)
	}
	return &BusFault{Op: "Write32", Addr: addr, Kind: BusFaultUnmapped}
}

// =============================================================================
// Bus32 interface: plain accessors
//
// These log a warning and return zero on fault, which suits interactive
// monitor use. Boot firmware uses the WithFault variants below so faults
// can halt the machine the way they halt the real part.
// =============================================================================

func (bus *MachineBus) Read8(addr uint32) uint8 {
	bus.tickAccess()
	value, fault := bus.read8(addr)
	if fault != nil {
		fmt.Printf("Warning: %s\n", fault)
		return 0
	}
	bus.note("read", addr, Access8, uint32(value))
	return value
}

func (bus *MachineBus) Write8(addr uint32, value uint8) {
	bus.tickAccess()
	if fault := bus.write8(addr, value); fault != nil {
		fmt.Printf("Warning: %s\n", fault)
		return
	}
	bus.note("write", addr, Access8, uint32(value))
}

func (bus *MachineBus) Read16(addr uint32) uint16 {
	bus.tickAccess()
	value, fault := bus.read16(addr)
	if fault != nil {
		fmt.Printf("Warning: %s\n", fault)
		return 0
	}
	bus.note("read", addr, Access16, uint32(value))
	return value
}

func (bus *MachineBus) Write16(addr uint32, value uint16) {
	bus.tickAccess()
	if fault := bus.write16(addr, value); fault != nil {
		fmt.Printf("Warning: %s\n", fault)
		return
	}
	bus.note("write", addr, Access16, uint32(value))
}

func (bus *MachineBus) Read32(addr uint32) uint32 {
	bus.tickAccess()
	value, fault := bus.read32(addr)
	if fault != nil {
		fmt.Printf("Warning: %s\n", fault)
		return 0
	}
	bus.note("read", addr, Access32, value)
	return value
}

func (bus *MachineBus) Write32(addr uint32, value uint32) {
	bus.tickAccess()
	if fault := bus.write32(addr, value); fault != nil {
		fmt.Printf("Warning: %s\n", fault)
		return
	}
	bus.note("write", addr, Access32, value)
}

// =============================================================================
// WithFault accessors
// =============================================================================

func (bus *MachineBus) Read8WithFault(addr uint32) (uint8, bool) {
	bus.tickAccess()
	value, fault := bus.read8(addr)
	if fault != nil {
		bus.lastFault = fault
		return 0, false
	}
	bus.note("read", addr, Access8, uint32(value))
	return value, true
}

func (bus *MachineBus) Write8WithFault(addr uint32, value uint8) bool {
	bus.tickAccess()
	if fault := bus.write8(addr, value); fault != nil {
		bus.lastFault = fault
		return false
	}
	bus.note("write", addr, Access8, uint32(value))
	return true
}

func (bus *MachineBus) Read16WithFault(addr uint32) (uint16, bool) {
	bus.tickAccess()
	value, fault := bus.read16(addr)
	if fault != nil {
		bus.lastFault = fault
		return 0, false
	}
	bus.note("read", addr, Access16, uint32(value))
	return value, true
}

func (bus *MachineBus) Write16WithFault(addr uint32, value uint16) bool {
	bus.tickAccess()
	if fault := bus.write16(addr, value); fault != nil {
		bus.lastFault = fault
		return false
	}
	bus.note("write", addr, Access16, uint32(value))
	return true
}

func (bus *MachineBus) Read32WithFault(addr uint32) (uint32, bool) {
	bus.tickAccess()
	value, fault := bus.read32(addr)
	if fault != nil {
		bus.lastFault = fault
		return 0, false
	}
	bus.note("read", addr, Access32, value)
	return value, true
}

func (bus *MachineBus) Write32WithFault(addr uint32, value uint32) bool {
	bus.tickAccess()
	if fault := bus.write32(addr, value); fault != nil {
		bus.lastFault = fault
		return false
	}
	bus.note("write", addr, Access32, value)
	return true
}

// LastFault returns the most recent fault surfaced through a WithFault
// accessor, or nil if none has occurred.
func (bus *MachineBus) LastFault() *BusFault {
	return bus.lastFault
}

// =============================================================================
// Peek accessors
//
// Monitor inspection paths. These dispatch like normal reads but never fire
// the access hook, so peeking at memory does not advance the COP watchdog.
// =============================================================================

func (bus *MachineBus) Peek8(addr uint32) (uint8, bool) {
	value, fault := bus.read8(addr)
	return value, fault == nil
}

func (bus *MachineBus) Peek32(addr uint32) (uint32, bool) {
	value, fault := bus.read32(addr)
	return value, fault == nil
}

// Poke8 writes a byte without firing the access hook. SRAM and peripheral
// targets only; flash stays protected even from the monitor.
func (bus *MachineBus) Poke8(addr uint32, value uint8) bool {
	return bus.write8(addr, value) == nil
}

// Poke32 writes a word without firing the access hook.
func (bus *MachineBus) Poke32(addr uint32, value uint32) bool {
	return bus.write32(addr, value) == nil
}

func (bus *MachineBus) Reset() {
	/*
		Reset clears SRAM to zero. Flash is non-volatile and survives
		reset untouched; peripheral registers are reset by their own
		engines via ResetAllPeripherals.
	*/

	for i := range bus.sram {
		bus.sram[i] = 0
	}
	bus.lastFault = nil
}
