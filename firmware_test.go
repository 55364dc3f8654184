package main

import (
	"strings"
	"testing"
)

// validTestLayout mirrors the demo firmware's geometry: data image in flash
// at 0x800, copied to the bottom of SRAM, bss right behind it.
func validTestLayout() MemoryLayout {
	return MemoryLayout{
		DataLoadAddr: 0x800,
		DataStart:    SRAM_BASE,
		DataEnd:      SRAM_BASE + 0x40,
		BSSStart:     SRAM_BASE + 0x40,
		BSSEnd:       SRAM_BASE + 0x80,
		StackTop:     SRAM_BASE + 0x4000,
	}
}

func TestMemoryLayoutSizes(t *testing.T) {
	l := validTestLayout()
	if got := l.DataSize(); got != 0x40 {
		t.Fatalf("expected data size 0x40, got 0x%X", got)
	}
	if got := l.BSSSize(); got != 0x40 {
		t.Fatalf("expected bss size 0x40, got 0x%X", got)
	}
	if err := l.Validate(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE); err != nil {
		t.Fatalf("expected demo-shaped layout to validate, got %v", err)
	}
}

func TestMemoryLayoutValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MemoryLayout)
		wantErr string
	}{
		{
			"misaligned data start",
			func(l *MemoryLayout) { l.DataStart += 2 },
			"not word aligned",
		},
		{
			"data end below start",
			func(l *MemoryLayout) { l.DataEnd = l.DataStart - 8 },
			"below data start",
		},
		{
			"bss end below start",
			func(l *MemoryLayout) { l.BSSEnd = l.BSSStart - 4 },
			"below bss start",
		},
		{
			"data below SRAM",
			func(l *MemoryLayout) { l.DataStart = 0x1000; l.DataEnd = 0x1040 },
			"outside SRAM",
		},
		{
			"data past SRAM end",
			func(l *MemoryLayout) {
				l.DataStart = SRAM_BASE + DEFAULT_SRAM_SIZE - 4
				l.DataEnd = SRAM_BASE + DEFAULT_SRAM_SIZE + 4
			},
			"outside SRAM",
		},
		{
			"data image past flash end",
			func(l *MemoryLayout) { l.DataLoadAddr = DEFAULT_FLASH_SIZE - 4 },
			"exceeds flash size",
		},
		{
			"bss outside SRAM",
			func(l *MemoryLayout) { l.BSSStart = 0x2000; l.BSSEnd = 0x2040 },
			"outside SRAM",
		},
		{
			"stack top below SRAM",
			func(l *MemoryLayout) { l.StackTop = SRAM_BASE },
			"stack top",
		},
		{
			"stack top past SRAM",
			func(l *MemoryLayout) { l.StackTop = SRAM_BASE + DEFAULT_SRAM_SIZE + 4 },
			"stack top",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := validTestLayout()
			tc.mutate(&l)
			err := l.Validate(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE)
			if err == nil {
				t.Fatal("expected validation to fail")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestMemoryLayoutEmptyRegionsAllowed(t *testing.T) {
	// A firmware with no initialized data and no bss only needs a stack.
	l := MemoryLayout{StackTop: SRAM_BASE + 0x1000}
	if err := l.Validate(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE); err != nil {
		t.Fatalf("expected empty regions to validate, got %v", err)
	}
}

func TestFirmwareValidate(t *testing.T) {
	makeFirmware := func() *Firmware {
		return &Firmware{
			Name:      "test",
			Layout:    validTestLayout(),
			Main:      func(m *Machine) {},
			DataImage: make([]byte, 0x40),
			Config:    DefaultFlashConfig(),
		}
	}

	if err := makeFirmware().Validate(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE); err != nil {
		t.Fatalf("expected well-formed firmware to validate, got %v", err)
	}

	noMain := makeFirmware()
	noMain.Main = nil
	if err := noMain.Validate(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE); err == nil ||
		!strings.Contains(err.Error(), "no main entry") {
		t.Fatalf("expected missing-main error, got %v", err)
	}

	shortImage := makeFirmware()
	shortImage.DataImage = make([]byte, 0x20)
	if err := shortImage.Validate(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE); err == nil ||
		!strings.Contains(err.Error(), "layout claims") {
		t.Fatalf("expected data image size error, got %v", err)
	}

	badVector := makeFirmware()
	badVector.Handlers = map[int]VectorHandler{VECTOR_RESET: func(m *Machine) {}}
	if err := badVector.Validate(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE); err == nil ||
		!strings.Contains(err.Error(), "invalid vector") {
		t.Fatalf("expected reset-slot rejection, got %v", err)
	}

	badLayout := makeFirmware()
	badLayout.Layout.StackTop = 0
	if err := badLayout.Validate(DEFAULT_FLASH_SIZE, DEFAULT_SRAM_SIZE); err == nil ||
		!strings.Contains(err.Error(), "layout") {
		t.Fatalf("expected layout error to be wrapped, got %v", err)
	}
}
