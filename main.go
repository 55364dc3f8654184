// main.go - Main entry point for the Ignition Engine IG32 simulator

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
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓   ▄████  ███▄    █ ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒  ██▒ ▀█▒ ██ ▀█   █▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▒▒██░▄▄▄░▓██  ▀█ ██▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▒░▓█  ██▓▓██▒  ▐▌██░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░░░▒▓███▀▒▒██░   ▓██░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓    ░▒   ▒ ░ ▒░   ▒ ▒░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░  ░   ░ ░ ░░   ░ ▒ ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░ ░ ░   ░    ░   ░ ░ ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░         ░          ░ ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nReset-time bring-up of the IG32 microcontroller, simulated to the register.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IgnitionEngine")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	boilerPlate()

	var (
		boardPath    string
		firmwarePath string
		loadAddr     string
		scenarioPath string
		flashFile    string
		showTrace    bool
		monitorMode  bool
		consoleMode  bool
		maxPolls     int
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&boardPath, "board", "", "Board profile YAML (built-in ig32dx256 when omitted)")
	flagSet.StringVar(&firmwarePath, "firmware", "", "Payload image (.bin or .hex) burned as the demo's data section")
	flagSet.StringVar(&loadAddr, "load-addr", "0x0800", "Flash address for raw payload images (hex or decimal)")
	flagSet.StringVar(&scenarioPath, "scenario", "", "Lua scenario script applied before power-on")
	flagSet.StringVar(&flashFile, "flash-file", "", "Persist flash contents to this file across runs")
	flagSet.BoolVar(&showTrace, "trace", false, "Print the bus trace after the run")
	flagSet.BoolVar(&monitorMode, "monitor", false, "Drop into the ignition monitor instead of booting")
	flagSet.BoolVar(&consoleMode, "console", false, "Bridge the host terminal to UART0")
	flagSet.IntVar(&maxPolls, "max-polls", 0, "Bound status polls (0 polls forever, like the silicon code)")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./ignition_engine [-board file.yaml] [-firmware image] [-scenario file.lua] [-monitor|-console] [-trace]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	profile := DefaultBoardProfile()
	if boardPath != "" {
		p, err := LoadBoardProfile(boardPath)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		profile = p
	}

	m := NewMachine(profile)
	if maxPolls > 0 {
		m.SetWaitPolicy(BoundedWaitPolicy(maxPolls))
	}

	var store *FlashStore
	if flashFile != "" {
		s, err := OpenFlashStore(flashFile)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		store = s
		defer store.Close()
		restored, err := store.Restore(m.Bus())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if restored {
			fmt.Printf("Restored flash image from %s\n", flashFile)
		}
	}

	fw := DemoFirmware(m.SRAMSize())
	if firmwarePath != "" {
		base, ok := ParseAddress(loadAddr)
		if !ok {
			fmt.Printf("Error: bad load address %q\n", loadAddr)
			os.Exit(1)
		}
		imageBase, payload, err := ReadFirmwareImage(firmwarePath, base)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fw = FirmwareWithPayload(fw, imageBase, payload)
		fmt.Printf("Payload %s: %d bytes at 0x%08X\n", firmwarePath, len(payload), imageBase)
	}

	if err := m.LoadFirmware(fw); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if scenarioPath != "" {
		if err := ApplyScenarioFile(m, scenarioPath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Scenario %s applied\n", scenarioPath)
	}

	if monitorMode {
		mon := NewIgnitionMonitor(m, os.Stdin, os.Stdout)
		if err := mon.Run(); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		saveFlash(store, m, flashFile)
		return
	}

	if err := m.PowerOn(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var host *ConsoleHost
	if consoleMode {
		host = NewConsoleHost(m)
		host.Start()
	} else {
		m.UART().SetOutput(os.Stdout)
	}

	failed := false
	switch err := m.Run().(type) {
	case nil:
		fmt.Println("\nApplication main returned")
	case *StallError:
		if err.Vector == VECTOR_RESET {
			fmt.Println("\nFirmware parked after main; machine idle")
		} else {
			fmt.Printf("\n%v\n", err)
			failed = true
		}
	default:
		fmt.Printf("\n%v\n", err)
		failed = true
	}

	if host != nil {
		host.Wait()
		host.Stop()
	}

	out := colorable.NewColorableStdout()
	PrintBootReport(out, m)

	if showTrace {
		for _, entry := range m.Tracer().Entries() {
			fmt.Fprintf(out, "%s\n", entry.String())
		}
		fmt.Fprintf(out, "%d of %d accesses retained\n", m.Tracer().Len(), m.Tracer().Total())
	}

	saveFlash(store, m, flashFile)

	if failed {
		os.Exit(1)
	}
}

// saveFlash persists the flash array when a backing file is in use.
func saveFlash(store *FlashStore, m *Machine, path string) {
	if store == nil {
		return
	}
	if err := store.Save(m.Bus()); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Flash image saved to %s\n", path)
}

// FirmwareWithPayload swaps the demo's data section for an external image.
// The payload prints as a NUL-terminated string, so plain text files make
// serviceable test payloads.
func FirmwareWithPayload(fw *Firmware, loadAddr uint32, payload []byte) *Firmware {
	image := make([]byte, (len(payload)+3)&^3)
	copy(image, payload)

	out := *fw
	out.Name = fw.Name + "+payload"
	out.Layout.DataLoadAddr = loadAddr
	out.Layout.DataStart = SRAM_BASE
	out.Layout.DataEnd = SRAM_BASE + uint32(len(image))
	out.Layout.BSSStart = out.Layout.DataEnd
	out.Layout.BSSEnd = out.Layout.BSSStart + DEMO_BSS_WORDS*4
	out.DataImage = image
	return &out
}
