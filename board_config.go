// board_config.go - YAML board profiles

/*
board_config.go - Board Profiles

A board profile describes the part and the board it sits on: memory
geometry, the crystal and its load capacitance, the PLL divider plan, the
COP configuration the firmware should write, and the MCG settle figures.
Profiles load from YAML; any field left out keeps the built-in ig32dx256
reference value, so a profile file only has to say what is different about
its board.

Dividers are written in human form (divide by 8, multiply by 48) and
converted to register fields here, with the PLL input and VCO windows
checked at load time: a profile that could never lock is a profile error,
not a boot mystery.
*/

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type BoardProfile struct {
	Name          string
	FlashSize     uint32
	SRAMSize      uint32
	CrystalHz     uint32
	CrystalLoadPF int
	EnforceCaps   bool
	Timing        MCGTiming
	Clock         ClockPlan
	COPCWrite     uint32
	TraceLimit    int
}

// DefaultBoardProfile returns the ig32dx256 reference board: 256KB flash,
// 128KB SRAM, 16MHz crystal with 10pF load, 48MHz core plan, COP disabled
// by the boot sequence.
func DefaultBoardProfile() BoardProfile {
	return BoardProfile{
		Name:          "ig32dx256",
		FlashSize:     DEFAULT_FLASH_SIZE,
		SRAMSize:      DEFAULT_SRAM_SIZE,
		CrystalHz:     DEFAULT_CRYSTAL_HZ,
		CrystalLoadPF: 10,
		Timing:        DefaultMCGTiming(),
		Clock:         DefaultClockPlan(),
	}
}

// boardYAML mirrors the profile file. Pointer fields distinguish "absent,
// keep the default" from an explicit zero.
type boardYAML struct {
	Name          *string `yaml:"name"`
	FlashKB       *int    `yaml:"flash_kb"`
	SRAMKB        *int    `yaml:"sram_kb"`
	CrystalHz     *uint32 `yaml:"crystal_hz"`
	CrystalLoadPF *int    `yaml:"crystal_load_pf"`
	EnforceCaps   *bool   `yaml:"enforce_caps"`

	COP *struct {
		Mode *string `yaml:"mode"` // disabled, short, medium, long
	} `yaml:"cop"`

	Timing *struct {
		OscStartupReads  *int `yaml:"osc_startup_reads"`
		IrefSwitchReads  *int `yaml:"iref_switch_reads"`
		ClkstSwitchReads *int `yaml:"clkst_switch_reads"`
		PllstSwitchReads *int `yaml:"pllst_switch_reads"`
		PllLockReads     *int `yaml:"pll_lock_reads"`
	} `yaml:"timing"`

	PLL *struct {
		Prdiv   *int `yaml:"prdiv"`   // divide value, 1..32
		Vdiv    *int `yaml:"vdiv"`    // multiply value, 24..55
		Outdiv1 *int `yaml:"outdiv1"` // core divider, 1..16
		Outdiv4 *int `yaml:"outdiv4"` // bus divider, 1..8
	} `yaml:"pll"`

	TraceLimit *int `yaml:"trace_limit"`
}

// LoadBoardProfile reads a YAML profile and applies it over the defaults.
func LoadBoardProfile(path string) (BoardProfile, error) {
	profile := DefaultBoardProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("board profile: %v", err)
	}
	var doc boardYAML
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return profile, fmt.Errorf("board profile %s: %v", path, err)
	}

	if doc.Name != nil {
		profile.Name = *doc.Name
	}
	if doc.FlashKB != nil {
		profile.FlashSize = uint32(*doc.FlashKB) * 1024
	}
	if doc.SRAMKB != nil {
		profile.SRAMSize = uint32(*doc.SRAMKB) * 1024
	}
	if doc.CrystalHz != nil {
		profile.CrystalHz = *doc.CrystalHz
	}
	if doc.CrystalLoadPF != nil {
		profile.CrystalLoadPF = *doc.CrystalLoadPF
	}
	if doc.EnforceCaps != nil {
		profile.EnforceCaps = *doc.EnforceCaps
	}
	if doc.TraceLimit != nil {
		profile.TraceLimit = *doc.TraceLimit
	}

	if doc.COP != nil && doc.COP.Mode != nil {
		copc, err := copcValueForMode(*doc.COP.Mode)
		if err != nil {
			return profile, fmt.Errorf("board profile %s: %v", path, err)
		}
		profile.COPCWrite = copc
	}

	if doc.Timing != nil {
		t := &profile.Timing
		if doc.Timing.OscStartupReads != nil {
			t.OscStartupReads = *doc.Timing.OscStartupReads
		}
		if doc.Timing.IrefSwitchReads != nil {
			t.IrefSwitchReads = *doc.Timing.IrefSwitchReads
		}
		if doc.Timing.ClkstSwitchReads != nil {
			t.ClkstSwitchReads = *doc.Timing.ClkstSwitchReads
		}
		if doc.Timing.PllstSwitchReads != nil {
			t.PllstSwitchReads = *doc.Timing.PllstSwitchReads
		}
		if doc.Timing.PllLockReads != nil {
			t.PllLockReads = *doc.Timing.PllLockReads
		}
	}

	if doc.PLL != nil {
		if err := applyPLLPlan(&profile, doc.PLL.Prdiv, doc.PLL.Vdiv, doc.PLL.Outdiv1, doc.PLL.Outdiv4); err != nil {
			return profile, fmt.Errorf("board profile %s: %v", path, err)
		}
	}

	if err := profile.Validate(); err != nil {
		return profile, fmt.Errorf("board profile %s: %v", path, err)
	}
	return profile, nil
}

func copcValueForMode(mode string) (uint32, error) {
	switch mode {
	case "disabled":
		return 0, nil
	case "short":
		return SIM_COPC_COPT_SHORT, nil
	case "medium":
		return SIM_COPC_COPT_MEDIUM, nil
	case "long":
		return SIM_COPC_COPT_LONG, nil
	default:
		return 0, fmt.Errorf("unknown cop mode %q (want disabled, short, medium or long)", mode)
	}
}

// applyPLLPlan converts human divider figures into register fields.
func applyPLLPlan(profile *BoardProfile, prdiv, vdiv, outdiv1, outdiv4 *int) error {
	if prdiv != nil {
		if *prdiv < 1 || *prdiv > 32 {
			return fmt.Errorf("pll prdiv %d out of range 1..32", *prdiv)
		}
		profile.Clock.PRDIV = uint8(*prdiv - 1)
	}
	if vdiv != nil {
		if *vdiv < PLL_VDIV_BASE || *vdiv > PLL_VDIV_BASE+31 {
			return fmt.Errorf("pll vdiv %d out of range %d..%d", *vdiv, PLL_VDIV_BASE, PLL_VDIV_BASE+31)
		}
		profile.Clock.VDIV = uint8(*vdiv - PLL_VDIV_BASE)
	}
	div1 := (profile.Clock.CLKDIV1 & SIM_CLKDIV1_OUTDIV1_MASK) >> SIM_CLKDIV1_OUTDIV1_SHIFT
	div4 := (profile.Clock.CLKDIV1 & SIM_CLKDIV1_OUTDIV4_MASK) >> SIM_CLKDIV1_OUTDIV4_SHIFT
	if outdiv1 != nil {
		if *outdiv1 < 1 || *outdiv1 > 16 {
			return fmt.Errorf("pll outdiv1 %d out of range 1..16", *outdiv1)
		}
		div1 = uint32(*outdiv1 - 1)
	}
	if outdiv4 != nil {
		if *outdiv4 < 1 || *outdiv4 > 8 {
			return fmt.Errorf("pll outdiv4 %d out of range 1..8", *outdiv4)
		}
		div4 = uint32(*outdiv4 - 1)
	}
	profile.Clock.CLKDIV1 = div1<<SIM_CLKDIV1_OUTDIV1_SHIFT | div4<<SIM_CLKDIV1_OUTDIV4_SHIFT
	return nil
}

// Validate checks the assembled profile for a bootable configuration.
func (p BoardProfile) Validate() error {
	switch p.FlashSize {
	case 32 * 1024, 64 * 1024, 128 * 1024, 256 * 1024:
	default:
		return fmt.Errorf("flash size %d is not a supported part option (32, 64, 128 or 256 KB)", p.FlashSize)
	}
	if p.SRAMSize == 0 || p.SRAMSize%1024 != 0 {
		return fmt.Errorf("sram size %d must be a non-zero multiple of 1024", p.SRAMSize)
	}
	if p.CrystalHz < 4000000 || p.CrystalHz > 32000000 {
		return fmt.Errorf("crystal %d Hz outside the supported 4..32 MHz window", p.CrystalHz)
	}

	refHz := p.CrystalHz / (uint32(p.Clock.PRDIV) + 1)
	if refHz < PLL_REF_MIN_HZ || refHz > PLL_REF_MAX_HZ {
		return fmt.Errorf("PLL reference %d Hz outside the %d..%d window (crystal %d / prdiv %d)",
			refHz, PLL_REF_MIN_HZ, PLL_REF_MAX_HZ, p.CrystalHz, uint32(p.Clock.PRDIV)+1)
	}
	vcoHz := refHz * (uint32(p.Clock.VDIV) + PLL_VDIV_BASE)
	if vcoHz > PLL_VCO_MAX_HZ {
		return fmt.Errorf("PLL output %d Hz exceeds the %d Hz VCO ceiling", vcoHz, PLL_VCO_MAX_HZ)
	}
	return nil
}
