// boot_monitor.go - Ignition Monitor command parser and handlers

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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// MonitorCommand is a parsed command with name and arguments.
type MonitorCommand struct {
	Name string
	Args []string
}

// ParseCommand tokenizes a raw input line. shlex handles quoting, so
// arguments with spaces survive intact.
func ParseCommand(input string) (MonitorCommand, error) {
	parts, err := shlex.Split(input)
	if err != nil {
		return MonitorCommand{}, err
	}
	if len(parts) == 0 {
		return MonitorCommand{}, nil
	}
	return MonitorCommand{Name: strings.ToLower(parts[0]), Args: parts[1:]}, nil
}

// ParseAddress parses a monitor address in various formats:
// $hex, 0xhex, bare hex, #decimal
func ParseAddress(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// #decimal
	if strings.HasPrefix(s, "#") {
		v, err := strconv.ParseUint(s[1:], 10, 32)
		return uint32(v), err == nil
	}

	// $hex
	if strings.HasPrefix(s, "$") {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		return uint32(v), err == nil
	}

	// 0x or 0X hex
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		return uint32(v), err == nil
	}

	// bare hex
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err == nil
}

// IgnitionMonitor is a line-mode inspector for a stalled or idle machine.
// Everything it reads goes through Peek, so the watchdog never ticks and
// the bus trace stays clean while you poke around.
type IgnitionMonitor struct {
	machine *Machine
	in      io.Reader
	out     io.Writer
}

func NewIgnitionMonitor(m *Machine, in io.Reader, out io.Writer) *IgnitionMonitor {
	return &IgnitionMonitor{machine: m, in: in, out: out}
}

func (mon *IgnitionMonitor) printf(format string, args ...interface{}) {
	fmt.Fprintf(mon.out, format, args...)
}

// Run drives the REPL until quit or EOF. A secured part refuses debug
// access outright, the same as a locked debug port on silicon.
func (mon *IgnitionMonitor) Run() error {
	if err := mon.machine.DebugAccessAllowed(); err != nil {
		return fmt.Errorf("monitor refused: %v", err)
	}

	mon.printf("IGNITION MONITOR - type ? for help\n")
	scanner := bufio.NewScanner(mon.in)
	for {
		mon.printf("ign> ")
		if !scanner.Scan() {
			mon.printf("\n")
			return scanner.Err()
		}
		cmd, err := ParseCommand(scanner.Text())
		if err != nil {
			mon.printf("parse error: %v\n", err)
			continue
		}
		if cmd.Name == "" {
			continue
		}
		if mon.ExecuteCommand(cmd) {
			return nil
		}
	}
}

// ExecuteCommand dispatches a parsed command to the appropriate handler.
// Returns true if the monitor should exit.
func (mon *IgnitionMonitor) ExecuteCommand(cmd MonitorCommand) bool {
	switch cmd.Name {
	case "regs", "r":
		return mon.cmdRegisters(cmd)
	case "clocks", "c":
		return mon.cmdClocks(cmd)
	case "mem", "m":
		return mon.cmdMemoryDump(cmd)
	case "vectors", "v":
		return mon.cmdVectors(cmd)
	case "trace", "t":
		return mon.cmdTrace(cmd)
	case "stages":
		return mon.cmdStages(cmd)
	case "go", "g":
		return mon.cmdGo(cmd)
	case "reset":
		return mon.cmdReset(cmd)
	case "quit", "q", "x":
		return true
	case "?", "help":
		return mon.cmdHelp(cmd)
	default:
		mon.printf("Unknown command: %s (? for help)\n", cmd.Name)
		return false
	}
}

func (mon *IgnitionMonitor) cmdHelp(cmd MonitorCommand) bool {
	mon.printf("regs              peripheral register dump\n")
	mon.printf("clocks            derived clock tree\n")
	mon.printf("mem <addr> [n]    hex dump n bytes (default 64)\n")
	mon.printf("vectors           vector table with handler status\n")
	mon.printf("trace [n]         last n bus accesses (default 16)\n")
	mon.printf("stages            boot stage results\n")
	mon.printf("go                run the reset sequence\n")
	mon.printf("reset             hard reset, keep flash\n")
	mon.printf("quit              leave the monitor\n")
	return false
}

// peekable filters out addresses whose engines escalate gated accesses.
// Dumping a gated peripheral shows unreadable bytes, not a hard fault.
func (mon *IgnitionMonitor) peekable(addr uint32) bool {
	if addr >= UART0_BASE && addr <= UART0_END {
		return !mon.machine.SIM().UART0Gated()
	}
	return true
}

// peek32 reads a register for display without ticking the watchdog.
func (mon *IgnitionMonitor) peek32(addr uint32) uint32 {
	if !mon.peekable(addr) {
		return 0
	}
	v, _ := mon.machine.Bus().Peek32(addr)
	return v
}

func (mon *IgnitionMonitor) peek8(addr uint32) uint8 {
	if !mon.peekable(addr) {
		return 0
	}
	v, _ := mon.machine.Bus().Peek8(addr)
	return v
}

func (mon *IgnitionMonitor) cmdRegisters(cmd MonitorCommand) bool {
	m := mon.machine
	mon.printf("SIM   SOPT2=%08X SCGC4=%08X SCGC5=%08X CLKDIV1=%08X COPC=%02X\n",
		mon.peek32(SIM_SOPT2), mon.peek32(SIM_SCGC4), mon.peek32(SIM_SCGC5),
		mon.peek32(SIM_CLKDIV1), uint8(mon.peek32(SIM_COPC)))
	mon.printf("MCG   C1=%02X C2=%02X C5=%02X C6=%02X S=%02X (%s)\n",
		mon.peek8(MCG_C1), mon.peek8(MCG_C2), mon.peek8(MCG_C5),
		mon.peek8(MCG_C6), m.MCG().PeekStatus(), m.MCG().Mode())
	mon.printf("OSC0  CR=%02X\n", mon.peek8(OSC0_CR))
	mon.printf("SMC   PMPROT=%02X\n", mon.peek8(SMC_PMPROT))
	if m.SIM().UART0Gated() {
		mon.printf("UART0 gated (SCGC4)\n")
	} else {
		bdh, bdl, c2 := m.UART().PeekControl()
		mon.printf("UART0 BDH=%02X BDL=%02X C2=%02X S1=%02X\n",
			bdh, bdl, c2, m.UART().PeekStatus())
	}
	mon.printf("state=%s resets=%d stalled=%d\n",
		m.State(), m.ResetCount(), m.StalledVector())
	return false
}

func (mon *IgnitionMonitor) cmdClocks(cmd MonitorCommand) bool {
	m := mon.machine
	coreHz, busHz := m.CoreClocks()
	mon.printf("crystal  %d Hz\n", m.CrystalHz())
	mon.printf("MCG      %s mode, MCGOUTCLK %d Hz\n", m.MCG().Mode(), m.MCG().OutClockHz())
	mon.printf("core     %d Hz (/%d)\n", coreHz, m.SIM().OutDiv1())
	mon.printf("bus      %d Hz (/%d)\n", busHz, m.SIM().OutDiv4())
	mon.printf("UART0    %d Hz module clock\n", m.UART0ClockHz())
	return false
}

func (mon *IgnitionMonitor) cmdMemoryDump(cmd MonitorCommand) bool {
	if len(cmd.Args) < 1 {
		mon.printf("mem <addr> [count]\n")
		return false
	}
	addr, ok := ParseAddress(cmd.Args[0])
	if !ok {
		mon.printf("Bad address: %s\n", cmd.Args[0])
		return false
	}
	count := 64
	if len(cmd.Args) >= 2 {
		if v, ok := ParseAddress(cmd.Args[1]); ok {
			count = int(v)
		}
	}

	bus := mon.machine.Bus()
	for count > 0 {
		var hexParts []string
		var asciiParts []byte
		for j := 0; j < 16; j++ {
			if j >= count {
				hexParts = append(hexParts, "  ")
				asciiParts = append(asciiParts, ' ')
				continue
			}
			target := addr + uint32(j)
			if !mon.peekable(target) {
				hexParts = append(hexParts, "--")
				asciiParts = append(asciiParts, ' ')
				continue
			}
			b, ok := bus.Peek8(target)
			if !ok {
				hexParts = append(hexParts, "--")
				asciiParts = append(asciiParts, ' ')
				continue
			}
			hexParts = append(hexParts, fmt.Sprintf("%02X", b))
			if b >= 0x20 && b < 0x7F {
				asciiParts = append(asciiParts, b)
			} else {
				asciiParts = append(asciiParts, '.')
			}
		}
		hexStr := strings.Join(hexParts[:8], " ") + "  " + strings.Join(hexParts[8:], " ")
		mon.printf("%08X: %s  %s\n", addr, hexStr, string(asciiParts))
		addr += 16
		count -= 16
	}
	return false
}

func (mon *IgnitionMonitor) cmdVectors(cmd MonitorCommand) bool {
	vt := mon.machine.Vectors()
	if vt == nil {
		mon.printf("No firmware loaded\n")
		return false
	}
	mon.printf("initial SP %08X\n", vt.InitialSP())
	for i := 1; i < VECTOR_COUNT; i++ {
		if vt.IsDefault(i) {
			continue
		}
		mon.printf("%2d  %08X  %s\n", i, vt.Word(i), VectorName(i))
	}
	return false
}

func (mon *IgnitionMonitor) cmdTrace(cmd MonitorCommand) bool {
	n := 16
	if len(cmd.Args) >= 1 {
		if v, ok := ParseAddress(cmd.Args[0]); ok {
			n = int(v)
		}
	}
	tracer := mon.machine.Tracer()
	entries := tracer.Last(n)
	if len(entries) == 0 {
		mon.printf("Trace empty\n")
		return false
	}
	for _, e := range entries {
		mon.printf("%s\n", e.String())
	}
	mon.printf("%d shown of %d total\n", len(entries), tracer.Total())
	return false
}

func (mon *IgnitionMonitor) cmdStages(cmd MonitorCommand) bool {
	stages := mon.machine.BootStages()
	if len(stages) == 0 {
		mon.printf("No boot attempted\n")
		return false
	}
	for _, s := range stages {
		status := "ok"
		if !s.OK {
			status = "FAILED"
		}
		mon.printf("%-28s %-6s %s\n", s.Name, status, s.Detail)
	}
	for _, v := range mon.machine.Violations() {
		mon.printf("violation: %s\n", v)
	}
	return false
}

func (mon *IgnitionMonitor) cmdGo(cmd MonitorCommand) bool {
	m := mon.machine
	if m.State() == POWER_OFF {
		if err := m.PowerOn(); err != nil {
			mon.printf("power-on failed: %v\n", err)
			return false
		}
	}
	if err := m.Run(); err != nil {
		mon.printf("%v\n", err)
	} else {
		mon.printf("application main returned\n")
	}
	return false
}

func (mon *IgnitionMonitor) cmdReset(cmd MonitorCommand) bool {
	m := mon.machine
	if m.State() == POWER_OFF {
		mon.printf("Machine is powered off\n")
		return false
	}
	m.Reset()
	mon.printf("Reset complete (count %d)\n", m.ResetCount())
	return false
}
