package main

import (
	"encoding/binary"
	"testing"
)

func newTestVectorTable(t *testing.T) *VectorTable {
	t.Helper()
	return NewVectorTable(0x20004000, func(m *Machine) {})
}

func TestVectorTableDefaultsFillAllSlots(t *testing.T) {
	vt := newTestVectorTable(t)

	if got := vt.InitialSP(); got != 0x20004000 {
		t.Fatalf("expected initial SP 0x20004000, got 0x%08X", got)
	}
	defaultWord := vt.Word(VECTOR_RESET)
	if defaultWord&THUMB_CODE_BIT == 0 {
		t.Fatalf("expected default word to carry the thumb bit, got 0x%08X", defaultWord)
	}
	for i := 1; i < VECTOR_COUNT; i++ {
		if vt.Word(i) != defaultWord {
			t.Fatalf("expected slot %d on the default word, got 0x%08X", i, vt.Word(i))
		}
		if !vt.IsDefault(i) {
			t.Fatalf("expected IsDefault for slot %d", i)
		}
	}
}

func TestVectorTableAssignAndResolve(t *testing.T) {
	vt := newTestVectorTable(t)
	fired := false
	if err := vt.Assign(VECTOR_UART0, func(m *Machine) { fired = true }); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	word := vt.Word(VECTOR_UART0)
	if word == vt.Word(VECTOR_RESET) {
		t.Fatal("expected assigned slot to leave the default word")
	}
	if vt.IsDefault(VECTOR_UART0) {
		t.Fatal("expected IsDefault to be false after Assign")
	}

	handler, ok := vt.Resolve(word)
	if !ok {
		t.Fatalf("expected word 0x%08X to resolve", word)
	}
	handler(nil)
	if !fired {
		t.Fatal("expected resolved handler to run")
	}

	// Assigning nil restores the default.
	if err := vt.Assign(VECTOR_UART0, nil); err != nil {
		t.Fatalf("Assign(nil) failed: %v", err)
	}
	if !vt.IsDefault(VECTOR_UART0) {
		t.Fatal("expected slot back on the default after Assign(nil)")
	}
}

func TestVectorTableRejectsBadSlots(t *testing.T) {
	vt := newTestVectorTable(t)
	handler := func(m *Machine) {}

	if err := vt.Assign(VECTOR_STACK_TOP, handler); err == nil {
		t.Fatal("expected Assign to refuse the stack pointer slot")
	}
	if err := vt.Assign(-1, handler); err == nil {
		t.Fatal("expected Assign to refuse a negative slot")
	}
	if err := vt.Assign(VECTOR_COUNT, handler); err == nil {
		t.Fatal("expected Assign to refuse a slot past the table")
	}
}

func TestVectorTableResolveRejectsStrangers(t *testing.T) {
	vt := newTestVectorTable(t)

	if _, ok := vt.Resolve(0x00001000); ok {
		t.Fatal("expected word without thumb bit to fail resolution")
	}
	if _, ok := vt.Resolve(0x0000F001); ok {
		t.Fatal("expected unallocated code address to fail resolution")
	}
}

func TestVectorTableImageLayout(t *testing.T) {
	vt := newTestVectorTable(t)
	vt.Assign(VECTOR_HARD_FAULT, func(m *Machine) {})

	image := vt.Image()
	if len(image) != VECTOR_COUNT*4 {
		t.Fatalf("expected %d byte image, got %d", VECTOR_COUNT*4, len(image))
	}
	if got := binary.LittleEndian.Uint32(image[0:]); got != 0x20004000 {
		t.Fatalf("expected SP word first, got 0x%08X", got)
	}
	if got := binary.LittleEndian.Uint32(image[VECTOR_HARD_FAULT*4:]); got != vt.Word(VECTOR_HARD_FAULT) {
		t.Fatalf("expected image slot 3 to match table word, got 0x%08X", got)
	}
}

func TestVectorHandlersGetDistinctAddresses(t *testing.T) {
	vt := newTestVectorTable(t)
	vt.Assign(VECTOR_NMI, func(m *Machine) {})
	vt.Assign(VECTOR_SYSTICK, func(m *Machine) {})

	a, b := vt.Word(VECTOR_NMI), vt.Word(VECTOR_SYSTICK)
	if a == b {
		t.Fatalf("expected distinct synthetic addresses, both 0x%08X", a)
	}
	if (b-a)%VECTOR_CODE_STRIDE != 0 {
		t.Fatalf("expected stride-spaced addresses, got 0x%08X and 0x%08X", a, b)
	}
}

func TestVectorNameLookup(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{VECTOR_RESET, "Reset"},
		{VECTOR_HARD_FAULT, "HardFault"},
		{VECTOR_UART0, "UART0"},
		{20, "Unused"},
		{45, "Unused"},
	}
	for _, tc := range tests {
		if got := VectorName(tc.index); got != tc.want {
			t.Fatalf("expected %q for vector %d, got %q", tc.want, tc.index, got)
		}
	}
}

func TestValidateVectorImage(t *testing.T) {
	good := make([]byte, 8)
	binary.LittleEndian.PutUint32(good[0:], 0x20004000)
	binary.LittleEndian.PutUint32(good[4:], 0x00001001)

	if err := ValidateVectorImage(good, SRAM_BASE, DEFAULT_SRAM_SIZE); err != nil {
		t.Fatalf("expected valid image to pass, got %v", err)
	}

	tests := []struct {
		name  string
		sp    uint32
		entry uint32
	}{
		{"SP below SRAM", 0x1FFF0000, 0x00001001},
		{"SP past SRAM end", SRAM_BASE + DEFAULT_SRAM_SIZE + 4, 0x00001001},
		{"entry missing thumb bit", 0x20004000, 0x00001000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			image := make([]byte, 8)
			binary.LittleEndian.PutUint32(image[0:], tc.sp)
			binary.LittleEndian.PutUint32(image[4:], tc.entry)
			if err := ValidateVectorImage(image, SRAM_BASE, DEFAULT_SRAM_SIZE); err == nil {
				t.Fatal("expected validation to fail")
			}
		})
	}

	if err := ValidateVectorImage([]byte{1, 2, 3}, SRAM_BASE, DEFAULT_SRAM_SIZE); err == nil {
		t.Fatal("expected short image to fail")
	}
}
