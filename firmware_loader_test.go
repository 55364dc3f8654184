package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCRCTrailerRoundTrip(t *testing.T) {
	payload := []byte("ignition payload")
	wrapped := AppendCRCTrailer(payload)

	if len(wrapped) != len(payload)+CRC_TRAILER_SIZE {
		t.Fatalf("expected %d bytes with trailer, got %d", len(payload)+CRC_TRAILER_SIZE, len(wrapped))
	}
	if !HasCRCTrailer(wrapped) {
		t.Fatal("expected trailer to be detected")
	}
	if HasCRCTrailer(payload) {
		t.Fatal("expected bare payload to carry no trailer")
	}

	got, err := VerifyCRCTrailer(wrapped)
	if err != nil {
		t.Fatalf("VerifyCRCTrailer failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("expected payload back, got %q", got)
	}
}

func TestCRCTrailerCatchesCorruption(t *testing.T) {
	wrapped := AppendCRCTrailer([]byte("ignition payload"))
	wrapped[3] ^= 0x01

	if _, err := VerifyCRCTrailer(wrapped); err == nil {
		t.Fatal("expected corrupt payload to be refused")
	} else if !strings.Contains(err.Error(), "CRC mismatch") {
		t.Fatalf("expected CRC mismatch error, got %v", err)
	}

	if _, err := VerifyCRCTrailer([]byte("no trailer here")); err == nil {
		t.Fatal("expected trailer-less image to be refused by VerifyCRCTrailer")
	}
}

func TestLoadFlashImageRaw(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	plain := filepath.Join(dir, "plain.bin")
	if err := os.WriteFile(plain, payload, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	bus := NewDefaultMachineBus()
	if err := LoadFlashImage(bus, plain, 0x800); err != nil {
		t.Fatalf("LoadFlashImage failed: %v", err)
	}
	if got := bus.Read32(0x800); got != 0xEFBEADDE {
		t.Fatalf("expected payload in flash, got 0x%08X", got)
	}
}

func TestLoadFlashImageStripsTrailer(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	wrapped := filepath.Join(dir, "wrapped.bin")
	if err := os.WriteFile(wrapped, AppendCRCTrailer(payload), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	bus := NewDefaultMachineBus()
	if err := LoadFlashImage(bus, wrapped, 0x400); err != nil {
		t.Fatalf("LoadFlashImage failed: %v", err)
	}
	for i, want := range payload {
		if got := bus.FlashBytes()[0x400+i]; got != want {
			t.Fatalf("flash byte %d: expected 0x%02X, got 0x%02X", i, want, got)
		}
	}
	// The trailer itself must not reach flash.
	if got := bus.FlashBytes()[0x400+len(payload)]; got != 0 {
		t.Fatalf("expected trailer dropped, found 0x%02X after payload", got)
	}
}

func TestLoadFlashImageRefusesCorruptTrailer(t *testing.T) {
	dir := t.TempDir()
	wrapped := AppendCRCTrailer([]byte{1, 2, 3, 4})
	wrapped[0] ^= 0xFF

	path := filepath.Join(dir, "corrupt.bin")
	if err := os.WriteFile(path, wrapped, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	bus := NewDefaultMachineBus()
	if err := LoadFlashImage(bus, path, 0x800); err == nil {
		t.Fatal("expected corrupt image to be refused")
	}
	if got := bus.FlashBytes()[0x800]; got != 0 {
		t.Fatalf("expected no bytes burned from a corrupt image, got 0x%02X", got)
	}
}

func TestIntelHexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.hex")
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i * 3)
	}

	if err := WriteIntelHexImage(path, 0x400, payload); err != nil {
		t.Fatalf("WriteIntelHexImage failed: %v", err)
	}

	base, flat, err := ReadFirmwareImage(path, 0)
	if err != nil {
		t.Fatalf("ReadFirmwareImage failed: %v", err)
	}
	if base != 0x400 {
		t.Fatalf("expected base 0x400 from hex records, got 0x%08X", base)
	}
	if len(flat) != len(payload) {
		t.Fatalf("expected %d bytes back, got %d", len(payload), len(flat))
	}
	for i, want := range payload {
		if flat[i] != want {
			t.Fatalf("byte %d: expected 0x%02X, got 0x%02X", i, want, flat[i])
		}
	}

	// The same file burns straight into flash at its recorded address.
	bus := NewDefaultMachineBus()
	if err := LoadFlashImage(bus, path, 0); err != nil {
		t.Fatalf("LoadFlashImage failed: %v", err)
	}
	if got := bus.FlashBytes()[0x400]; got != payload[0] {
		t.Fatalf("expected hex image at its own address, got 0x%02X", got)
	}
}

func TestReadFirmwareImageRawReportsLoadAddr(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.bin")
	if err := os.WriteFile(path, []byte{9, 8, 7}, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	base, data, err := ReadFirmwareImage(path, 0x1234)
	if err != nil {
		t.Fatalf("ReadFirmwareImage failed: %v", err)
	}
	if base != 0x1234 {
		t.Fatalf("expected raw image to report the given address, got 0x%08X", base)
	}
	if len(data) != 3 || data[0] != 9 {
		t.Fatalf("expected raw payload back, got %v", data)
	}
}

func TestLoadFlashImageMissingFile(t *testing.T) {
	bus := NewDefaultMachineBus()
	if err := LoadFlashImage(bus, filepath.Join(t.TempDir(), "absent.bin"), 0); err == nil {
		t.Fatal("expected missing file to error")
	}
}

func TestIsHexPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"app.hex", true},
		{"APP.HEX", true},
		{"app.ihex", true},
		{"app.ihx", true},
		{"app.bin", false},
		{"hex", false},
	}
	for _, tc := range tests {
		if got := isHexPath(tc.path); got != tc.want {
			t.Fatalf("isHexPath(%q): expected %v, got %v", tc.path, tc.want, got)
		}
	}
}
