package main

import (
	"bytes"
	"testing"
)

func TestFirmwareWithPayload_Layout(t *testing.T) {
	base := DemoFirmware(DEFAULT_SRAM_SIZE)
	payload := []byte{0x48, 0x49, 0x21, 0x0A, 0x00}

	fw := FirmwareWithPayload(base, 0x2000, payload)

	if fw.Name != "ig32-demo+payload" {
		t.Fatalf("expected the payload suffix in the name, got %q", fw.Name)
	}
	if fw.Layout.DataLoadAddr != 0x2000 {
		t.Fatalf("expected load address 0x2000, got 0x%08X", fw.Layout.DataLoadAddr)
	}
	if fw.Layout.DataStart != SRAM_BASE {
		t.Fatalf("expected the data section at the bottom of SRAM, got 0x%08X", fw.Layout.DataStart)
	}
	if fw.Layout.DataEnd != SRAM_BASE+8 {
		t.Fatalf("expected a 5-byte payload padded to 8, got end 0x%08X", fw.Layout.DataEnd)
	}
	if fw.Layout.BSSStart != fw.Layout.DataEnd {
		t.Fatalf("expected .bss right after .data, got 0x%08X", fw.Layout.BSSStart)
	}
	if fw.Layout.BSSEnd != fw.Layout.BSSStart+DEMO_BSS_WORDS*4 {
		t.Fatalf("expected the demo's .bss size kept, got end 0x%08X", fw.Layout.BSSEnd)
	}
	if fw.Layout.StackTop != base.Layout.StackTop {
		t.Fatalf("expected the stack top untouched, got 0x%08X", fw.Layout.StackTop)
	}
	if len(fw.DataImage) != 8 {
		t.Fatalf("expected an 8-byte image, got %d", len(fw.DataImage))
	}
	if !bytes.Equal(fw.DataImage[:5], payload) {
		t.Fatal("expected the payload bytes at the front of the image")
	}
	for i := 5; i < 8; i++ {
		if fw.DataImage[i] != 0 {
			t.Fatalf("expected zero padding at byte %d, got 0x%02X", i, fw.DataImage[i])
		}
	}
}

func TestFirmwareWithPayload_LeavesBaseAlone(t *testing.T) {
	base := DemoFirmware(DEFAULT_SRAM_SIZE)
	wantImage := len(base.DataImage)

	FirmwareWithPayload(base, 0x2000, []byte("replacement"))

	if base.Name != "ig32-demo" {
		t.Fatalf("expected the base firmware untouched, got name %q", base.Name)
	}
	if base.Layout.DataLoadAddr != DEMO_DATA_LOAD {
		t.Fatalf("expected the base load address untouched, got 0x%08X", base.Layout.DataLoadAddr)
	}
	if len(base.DataImage) != wantImage {
		t.Fatalf("expected the base image untouched, got %d bytes", len(base.DataImage))
	}
}

func TestFirmwareWithPayload_WordAligned(t *testing.T) {
	base := DemoFirmware(DEFAULT_SRAM_SIZE)
	fw := FirmwareWithPayload(base, 0x2000, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if len(fw.DataImage) != 8 {
		t.Fatalf("expected no padding on a word-aligned payload, got %d bytes", len(fw.DataImage))
	}
}

func TestFirmwareWithPayload_Boots(t *testing.T) {
	payload := []byte("hello from the payload\n")

	m := NewDefaultMachine()
	fw := FirmwareWithPayload(DemoFirmware(m.SRAMSize()), DEMO_DATA_LOAD, payload)
	if err := m.LoadFirmware(fw); err != nil {
		t.Fatalf("LoadFirmware failed: %v", err)
	}
	var console bytes.Buffer
	m.UART().SetOutput(&console)
	if err := m.PowerOn(); err != nil {
		t.Fatalf("PowerOn failed: %v", err)
	}

	err := m.Run()
	stall, ok := err.(*StallError)
	if !ok || stall.Vector != VECTOR_RESET {
		t.Fatalf("expected the firmware parked after main, got %v", err)
	}

	// The payload, not the built-in banner, is what reaches the console.
	if console.String() != string(payload) {
		t.Fatalf("expected %q on the console, got %q", payload, console.String())
	}

	// 23 bytes pad to 24, and the memory-init stage reports the padded size.
	for _, st := range m.BootStages() {
		if st.Name == "memory initialized" {
			if st.Detail != "data 24 bytes, bss 64 bytes" {
				t.Fatalf("expected the padded sizes in the stage detail, got %q", st.Detail)
			}
			return
		}
	}
	t.Fatal("expected a memory initialized stage")
}
