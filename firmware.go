// firmware.go - firmware container and memory layout

/*
firmware.go - Firmware Container

A Firmware bundles everything a linked image would carry: the memory
layout (the stand-in for linker symbols like etext and the data/bss
bounds), the initialized-data payload destined for flash, handler
assignments by vector index, the one-shot runtime init hook and the main
entry. The layout is validated at load time so the boot-time memory
initializer can trust its bounds unconditionally.
*/

package main

import "fmt"

// MemoryLayout is the linker-symbol stand-in. DataLoadAddr is where the
// initialized-data image sits in flash; DataStart/DataEnd bound its SRAM
// destination; BSSStart/BSSEnd bound the zero-fill region.
type MemoryLayout struct {
	DataLoadAddr uint32
	DataStart    uint32
	DataEnd      uint32
	BSSStart     uint32
	BSSEnd       uint32
	StackTop     uint32
}

// DataSize returns the initialized-data byte count.
func (l MemoryLayout) DataSize() uint32 {
	return l.DataEnd - l.DataStart
}

// BSSSize returns the zero-fill byte count.
func (l MemoryLayout) BSSSize() uint32 {
	return l.BSSEnd - l.BSSStart
}

// Validate checks the layout against the machine geometry. Every bound
// must be word-aligned with end at or above start, data and BSS must land
// inside SRAM (which also keeps destinations clear of the vector table and
// the flash configuration field), and the flash source must fit the image.
func (l MemoryLayout) Validate(flashSize, sramSize uint32) error {
	for _, f := range []struct {
		name  string
		value uint32
	}{
		{"data load address", l.DataLoadAddr},
		{"data start", l.DataStart},
		{"data end", l.DataEnd},
		{"bss start", l.BSSStart},
		{"bss end", l.BSSEnd},
		{"stack top", l.StackTop},
	} {
		if f.value&3 != 0 {
			return fmt.Errorf("%s 0x%08X is not word aligned", f.name, f.value)
		}
	}
	if l.DataEnd < l.DataStart {
		return fmt.Errorf("data end 0x%08X below data start 0x%08X", l.DataEnd, l.DataStart)
	}
	if l.BSSEnd < l.BSSStart {
		return fmt.Errorf("bss end 0x%08X below bss start 0x%08X", l.BSSEnd, l.BSSStart)
	}
	sramEnd := SRAM_BASE + sramSize
	if l.DataSize() > 0 {
		if l.DataStart < SRAM_BASE || l.DataEnd > sramEnd {
			return fmt.Errorf("data region 0x%08X..0x%08X outside SRAM", l.DataStart, l.DataEnd)
		}
		if uint64(l.DataLoadAddr)+uint64(l.DataSize()) > uint64(flashSize) {
			return fmt.Errorf("data image at 0x%08X (+%d) exceeds flash size %d",
				l.DataLoadAddr, l.DataSize(), flashSize)
		}
	}
	if l.BSSSize() > 0 {
		if l.BSSStart < SRAM_BASE || l.BSSEnd > sramEnd {
			return fmt.Errorf("bss region 0x%08X..0x%08X outside SRAM", l.BSSStart, l.BSSEnd)
		}
	}
	if l.StackTop <= SRAM_BASE || l.StackTop > sramEnd {
		return fmt.Errorf("stack top 0x%08X outside SRAM 0x%08X..0x%08X",
			l.StackTop, SRAM_BASE, sramEnd)
	}
	return nil
}

// Firmware is a loadable program image plus its Go-side behavior.
type Firmware struct {
	Name   string
	Layout MemoryLayout

	// Handlers are assigned by vector index (2..47). Slot 1, the reset
	// entry, always belongs to the boot sequence and is wired by the
	// machine itself.
	Handlers map[int]VectorHandler

	// RuntimeInit runs exactly once per boot, after memory init and
	// before Main. The libc/constructor stand-in.
	RuntimeInit func(m *Machine)

	// Main is the application entry. It is not expected to return.
	Main func(m *Machine)

	// DataImage is the initialized-data payload, placed in flash at
	// Layout.DataLoadAddr. Length must equal Layout.DataSize().
	DataImage []byte

	Config FlashConfig
}

// Validate checks the firmware against the machine geometry before any of
// it reaches flash.
func (fw *Firmware) Validate(flashSize, sramSize uint32) error {
	if fw.Main == nil {
		return fmt.Errorf("firmware %q has no main entry", fw.Name)
	}
	if err := fw.Layout.Validate(flashSize, sramSize); err != nil {
		return fmt.Errorf("firmware %q layout: %v", fw.Name, err)
	}
	if uint32(len(fw.DataImage)) != fw.Layout.DataSize() {
		return fmt.Errorf("firmware %q data image is %d bytes, layout claims %d",
			fw.Name, len(fw.DataImage), fw.Layout.DataSize())
	}
	for index := range fw.Handlers {
		if index < VECTOR_NMI || index >= VECTOR_COUNT {
			return fmt.Errorf("firmware %q assigns handler to invalid vector %d", fw.Name, index)
		}
	}
	return nil
}
