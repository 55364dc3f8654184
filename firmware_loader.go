// firmware_loader.go - flash image loading (raw binary, Intel HEX, CRC trailer)

/*
firmware_loader.go - Firmware Image Loader

Loads payload images into simulated flash the way a programmer pod loads a
real part. Two container formats:

    raw binary     placed at an explicit load address
    Intel HEX      addresses carried in the file, parsed with gohex

Raw images may carry a six-byte trailer: the ASCII magic "IGCR" followed
by a little-endian CRC-16/CCITT of the payload. When the trailer is
present the checksum must verify; a corrupt image is refused before a
single byte lands in flash. igncfg emits the trailer; the loader and tests
verify it with the same table.
*/

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
	"github.com/sigurn/crc16"
)

// CRC trailer layout: magic, then the checksum over everything before it.
const (
	CRC_TRAILER_MAGIC = "IGCR"
	CRC_TRAILER_SIZE  = 6
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// PayloadCRC computes the checksum the trailer carries.
func PayloadCRC(payload []byte) uint16 {
	return crc16.Checksum(payload, crcTable)
}

// AppendCRCTrailer returns payload with the verification trailer attached.
func AppendCRCTrailer(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+CRC_TRAILER_SIZE)
	out = append(out, payload...)
	out = append(out, CRC_TRAILER_MAGIC...)
	var crc [2]byte
	binary.LittleEndian.PutUint16(crc[:], PayloadCRC(payload))
	return append(out, crc[:]...)
}

// HasCRCTrailer reports whether the image ends in a verification trailer.
func HasCRCTrailer(data []byte) bool {
	if len(data) < CRC_TRAILER_SIZE {
		return false
	}
	return bytes.Equal(data[len(data)-CRC_TRAILER_SIZE:len(data)-2], []byte(CRC_TRAILER_MAGIC))
}

// VerifyCRCTrailer checks the trailer and returns the bare payload.
func VerifyCRCTrailer(data []byte) ([]byte, error) {
	if !HasCRCTrailer(data) {
		return nil, fmt.Errorf("image carries no CRC trailer")
	}
	payload := data[:len(data)-CRC_TRAILER_SIZE]
	want := binary.LittleEndian.Uint16(data[len(data)-2:])
	got := PayloadCRC(payload)
	if got != want {
		return nil, fmt.Errorf("image CRC mismatch: computed 0x%04X, trailer says 0x%04X", got, want)
	}
	return payload, nil
}

// stripCRCTrailer verifies and removes the trailer when present; images
// without one pass through untouched.
func stripCRCTrailer(data []byte) ([]byte, error) {
	if !HasCRCTrailer(data) {
		return data, nil
	}
	return VerifyCRCTrailer(data)
}

// isHexPath reports whether the filename claims Intel HEX content.
func isHexPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex", ".ihx":
		return true
	default:
		return false
	}
}

// LoadFlashImage burns an image file into flash before power-on. Intel
// HEX files carry their own addresses; raw binaries land at loadAddr.
func LoadFlashImage(bus *MachineBus, path string, loadAddr uint32) error {
	if isHexPath(path) {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("firmware image: %v", err)
		}
		defer f.Close()
		mem := gohex.NewMemory()
		if err := mem.ParseIntelHex(f); err != nil {
			return fmt.Errorf("firmware image %s: %v", path, err)
		}
		for _, segment := range mem.GetDataSegments() {
			if err := bus.WriteFlashDirect(segment.Address, segment.Data); err != nil {
				return fmt.Errorf("firmware image %s: %v", path, err)
			}
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("firmware image: %v", err)
	}
	payload, err := stripCRCTrailer(data)
	if err != nil {
		return fmt.Errorf("firmware image %s: %v", path, err)
	}
	if err := bus.WriteFlashDirect(loadAddr, payload); err != nil {
		return fmt.Errorf("firmware image %s: %v", path, err)
	}
	return nil
}

// ReadFirmwareImage loads an image file into a flat byte slice and returns
// its base address: raw binaries report the given loadAddr, HEX files the
// lowest segment address with gaps filled with erased-flash 0xFF.
func ReadFirmwareImage(path string, loadAddr uint32) (uint32, []byte, error) {
	if !isHexPath(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, nil, fmt.Errorf("firmware image: %v", err)
		}
		payload, err := stripCRCTrailer(data)
		if err != nil {
			return 0, nil, fmt.Errorf("firmware image %s: %v", path, err)
		}
		return loadAddr, payload, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("firmware image: %v", err)
	}
	defer f.Close()
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(f); err != nil {
		return 0, nil, fmt.Errorf("firmware image %s: %v", path, err)
	}
	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return 0, nil, fmt.Errorf("firmware image %s holds no data records", path)
	}

	base := segments[0].Address
	end := segments[0].Address + uint32(len(segments[0].Data))
	for _, segment := range segments[1:] {
		if segment.Address < base {
			base = segment.Address
		}
		if segEnd := segment.Address + uint32(len(segment.Data)); segEnd > end {
			end = segEnd
		}
	}

	flat := make([]byte, end-base)
	for i := range flat {
		flat[i] = 0xFF
	}
	for _, segment := range segments {
		copy(flat[segment.Address-base:], segment.Data)
	}
	return base, flat, nil
}

// WriteIntelHexImage emits data at addr as Intel HEX records.
func WriteIntelHexImage(path string, addr uint32, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("hex output: %v", err)
	}
	defer f.Close()
	mem := gohex.NewMemory()
	if err := mem.AddBinary(addr, data); err != nil {
		return fmt.Errorf("hex output: %v", err)
	}
	mem.DumpIntelHex(f, 16)
	return nil
}
