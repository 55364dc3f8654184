// igncfg.go - flash configuration field generator for IG32 parts

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

igncfg — flash configuration field generator for the Ignition Engine
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IgnitionEngine
License: GPLv3 or later

The IG32 reads sixteen bytes at flash offset 0x400 on every power-on:

  0x400-0x407  backdoor comparison key
  0x408-0x40B  FPROT3..FPROT0 region protection
  0x40C        FSEC   security byte (SEC, MEEN, KEYEN fields)
  0x40D        FOPT   option byte (LPBOOT, NMI_DIS, FAST_INIT ...)
  0x40E-0x40F  reserved, erased state 0xFF

A blank (all-0xFF) FSEC reads as SECURED with mass erase DISABLED: a part
programmed with an empty config block is bricked for good. This tool exists
so nobody learns that twice. It refuses to emit a bricking configuration
unless told -i-mean-it.

Usage:
  igncfg config.yaml -out flashcfg.hex      emit Intel HEX at 0x400
  igncfg config.yaml -out flashcfg.bin      emit the raw 16 bytes
  igncfg config.yaml -out f.bin -crc        append a CRC-16/CCITT trailer
  igncfg -show flashcfg.hex                 decode an existing block
*/

package main

import (
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
	"github.com/sigurn/crc16"
	"gopkg.in/yaml.v2"
)

// Flash configuration field geometry.
const (
	configBase = 0x00000400
	configSize = 16

	fsecSecMask         = 0x03
	fsecSecUnsecured    = 0x02
	fsecMeenMask        = 0x30
	fsecMeenEnabled     = 0x30
	fsecMeenDisabled    = 0x20
	fsecKeyenMask       = 0xC0
	fsecKeyenEnabled    = 0x80
	fsecReservedSet     = 0x0C // unimplemented FSEC bits read erased
	foptLPBootMask      = 0x11 // LPBOOT1 (0x10) and LPBOOT0 (0x01)
	foptNMIDis          = 0x04
	foptResetPinCfg     = 0x08
	foptFastInit        = 0x20
	foptReservedSet     = 0xC2 // unimplemented FOPT bits read erased
	crcTrailerMagic     = "IGCR"
	crcTrailerTotalSize = 6
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// configYAML is the operator-facing schema. Everything is optional; the
// defaults produce the unsecured development configuration.
type configYAML struct {
	BackdoorKey *string `yaml:"backdoor_key"` // 16 hex digits
	Protect     *string `yaml:"protect"`      // 8 hex digits, FPROT3..FPROT0
	Security    *struct {
		Secured   *bool   `yaml:"secured"`
		MassErase *string `yaml:"mass_erase"` // enabled | disabled
		Backdoor  *string `yaml:"backdoor"`   // enabled | disabled
	} `yaml:"security"`
	Options *struct {
		LPBoot    *int  `yaml:"lp_boot"` // 0..3 core divider select
		NMI       *bool `yaml:"nmi"`
		ResetPin  *bool `yaml:"reset_pin_filter"`
		FastInit  *bool `yaml:"fast_init"`
	} `yaml:"options"`
}

func fail(format string, args ...interface{}) {
	fmt.Printf("Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	var (
		outPath  string
		showPath string
		withCRC  bool
		iMeanIt  bool
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&outPath, "out", "", "Output file (.hex for Intel HEX at 0x400, .bin for raw bytes)")
	flagSet.StringVar(&showPath, "show", "", "Decode an existing config block instead of emitting one")
	flagSet.BoolVar(&withCRC, "crc", false, "Append a CRC-16/CCITT trailer to .bin output")
	flagSet.BoolVar(&iMeanIt, "i-mean-it", false, "Allow emitting a configuration that permanently bricks the part")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: igncfg config.yaml -out flashcfg.hex|flashcfg.bin  |  igncfg -show <image>")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fail("%v", err)
	}

	if showPath != "" {
		block, err := readConfigBlock(showPath)
		if err != nil {
			fail("%v", err)
		}
		describe(block)
		return
	}

	configPath := flagSet.Arg(0)
	if configPath == "" || outPath == "" {
		flagSet.Usage()
		os.Exit(1)
	}

	block, err := buildConfigBlock(configPath)
	if err != nil {
		fail("%v", err)
	}

	if bricked(block) && !iMeanIt {
		fail("this configuration secures the part with mass erase disabled; it can never be recovered. Pass -i-mean-it if that is truly the intent")
	}

	if err := writeConfigBlock(outPath, block, withCRC); err != nil {
		fail("%v", err)
	}
	fmt.Printf("Wrote %s\n", outPath)
	describe(block)
}

// buildConfigBlock assembles the sixteen bytes from the YAML document.
func buildConfigBlock(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %v", err)
	}
	var doc configYAML
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("config %s: %v", path, err)
	}

	block := make([]byte, configSize)
	for i := range block {
		block[i] = 0xFF
	}

	if doc.BackdoorKey != nil {
		key, err := hex.DecodeString(*doc.BackdoorKey)
		if err != nil || len(key) != 8 {
			return nil, fmt.Errorf("backdoor_key must be 16 hex digits")
		}
		copy(block[0:8], key)
	}

	if doc.Protect != nil {
		prot, err := hex.DecodeString(*doc.Protect)
		if err != nil || len(prot) != 4 {
			return nil, fmt.Errorf("protect must be 8 hex digits (FPROT3..FPROT0)")
		}
		copy(block[8:12], prot)
	}

	fsec := uint8(fsecReservedSet | fsecSecUnsecured | fsecMeenEnabled | fsecKeyenEnabled)
	if doc.Security != nil {
		s := doc.Security
		if s.Secured != nil && *s.Secured {
			fsec = fsec&^fsecSecMask | 0x03
		}
		if s.MassErase != nil {
			switch *s.MassErase {
			case "enabled":
				fsec = fsec&^fsecMeenMask | fsecMeenEnabled
			case "disabled":
				fsec = fsec&^fsecMeenMask | fsecMeenDisabled
			default:
				return nil, fmt.Errorf("security.mass_erase must be enabled or disabled")
			}
		}
		if s.Backdoor != nil {
			switch *s.Backdoor {
			case "enabled":
				fsec = fsec&^fsecKeyenMask | fsecKeyenEnabled
			case "disabled":
				fsec = fsec &^ fsecKeyenMask
			default:
				return nil, fmt.Errorf("security.backdoor must be enabled or disabled")
			}
		}
	}
	block[12] = fsec

	fopt := uint8(foptReservedSet | foptLPBootMask | foptNMIDis | foptResetPinCfg | foptFastInit)
	if doc.Options != nil {
		o := doc.Options
		if o.LPBoot != nil {
			if *o.LPBoot < 0 || *o.LPBoot > 3 {
				return nil, fmt.Errorf("options.lp_boot must be 0..3")
			}
			fopt &^= foptLPBootMask
			if *o.LPBoot&0x1 != 0 {
				fopt |= 0x01
			}
			if *o.LPBoot&0x2 != 0 {
				fopt |= 0x10
			}
		}
		if o.NMI != nil && !*o.NMI {
			fopt &^= foptNMIDis
		}
		if o.ResetPin != nil && !*o.ResetPin {
			fopt &^= foptResetPinCfg
		}
		if o.FastInit != nil && !*o.FastInit {
			fopt &^= foptFastInit
		}
	}
	block[13] = fopt

	return block, nil
}

// bricked reports the unrecoverable combination: secured with mass erase
// disabled.
func bricked(block []byte) bool {
	fsec := block[12]
	return fsec&fsecSecMask != fsecSecUnsecured && fsec&fsecMeenMask == fsecMeenDisabled
}

// writeConfigBlock emits the block in the format the extension names.
func writeConfigBlock(path string, block []byte, withCRC bool) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex", ".ihx":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("output: %v", err)
		}
		defer f.Close()
		mem := gohex.NewMemory()
		if err := mem.AddBinary(configBase, block); err != nil {
			return fmt.Errorf("output: %v", err)
		}
		mem.DumpIntelHex(f, 16)
		return nil
	default:
		out := block
		if withCRC {
			out = append(append(append([]byte{}, block...), crcTrailerMagic...), 0, 0)
			binary.LittleEndian.PutUint16(out[len(out)-2:], crc16.Checksum(block, crcTable))
		}
		if err := os.WriteFile(path, out, 0644); err != nil {
			return fmt.Errorf("output: %v", err)
		}
		return nil
	}
}

// readConfigBlock loads a block back for -show: Intel HEX files supply the
// bytes at 0x400, raw files supply them at offset zero (trailer tolerated).
func readConfigBlock(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex", ".ihx":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("image: %v", err)
		}
		defer f.Close()
		mem := gohex.NewMemory()
		if err := mem.ParseIntelHex(f); err != nil {
			return nil, fmt.Errorf("image %s: %v", path, err)
		}
		for _, seg := range mem.GetDataSegments() {
			if configBase >= seg.Address && configBase+configSize <= seg.Address+uint32(len(seg.Data)) {
				off := configBase - seg.Address
				return seg.Data[off : off+configSize], nil
			}
		}
		return nil, fmt.Errorf("image %s holds no data at 0x%X", path, configBase)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("image: %v", err)
		}
		if len(data) >= configSize+crcTrailerTotalSize &&
			string(data[len(data)-crcTrailerTotalSize:len(data)-2]) == crcTrailerMagic {
			payload := data[:len(data)-crcTrailerTotalSize]
			want := binary.LittleEndian.Uint16(data[len(data)-2:])
			if got := crc16.Checksum(payload, crcTable); got != want {
				return nil, fmt.Errorf("image %s CRC mismatch: computed 0x%04X, trailer says 0x%04X", path, got, want)
			}
			data = payload
		}
		if len(data) < configSize {
			return nil, fmt.Errorf("image %s holds %d bytes, need %d", path, len(data), configSize)
		}
		return data[:configSize], nil
	}
}

// describe prints the decoded block the way the reference manual tables it.
func describe(block []byte) {
	fsec := block[12]
	fopt := block[13]

	fmt.Printf("backdoor key  %X\n", block[0:8])
	fmt.Printf("protection    FPROT3..0 = %02X %02X %02X %02X\n", block[8], block[9], block[10], block[11])

	secured := fsec&fsecSecMask != fsecSecUnsecured
	fmt.Printf("FSEC = 0x%02X   secured=%v", fsec, secured)
	switch fsec & fsecMeenMask {
	case fsecMeenDisabled:
		fmt.Printf(" mass_erase=disabled")
	default:
		fmt.Printf(" mass_erase=enabled")
	}
	if fsec&fsecKeyenMask == fsecKeyenEnabled {
		fmt.Printf(" backdoor=enabled\n")
	} else {
		fmt.Printf(" backdoor=disabled\n")
	}
	if bricked(block) {
		fmt.Printf("              *** UNRECOVERABLE: secured with mass erase disabled ***\n")
	}

	lpBoot := 0
	if fopt&0x01 != 0 {
		lpBoot |= 0x1
	}
	if fopt&0x10 != 0 {
		lpBoot |= 0x2
	}
	dividers := [4]int{8, 4, 2, 1}
	fmt.Printf("FOPT = 0x%02X   lp_boot=%d (core /%d at reset) nmi=%v fast_init=%v\n",
		fopt, lpBoot, dividers[lpBoot], fopt&foptNMIDis != 0, fopt&foptFastInit != 0)
}
