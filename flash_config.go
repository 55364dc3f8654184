// flash_config.go - flash configuration field (16 bytes at 0x400)

/*
flash_config.go - Flash Configuration Field

Sixteen bytes at flash offset 0x400, consumed by the machine at power-on
before any firmware instruction runs: an 8-byte backdoor key, four flash
protection bytes, the security byte FSEC and the option byte FOPT. Getting
these wrong on real hardware locks you out of your own part, so the
simulator honors the same outcomes: a secured FSEC refuses monitor access,
and a secured part with mass erase disabled refuses to power on at all,
which is the unrecoverable brick. FOPT's LPBOOT bits pick the reset-time
core clock divider, visible in SIM_CLKDIV1 before the firmware reprograms
it.
*/

package main

import (
	"errors"
	"fmt"
)

// FSEC fields. SEC reads unsecured only for the 10 pattern; every other
// value secures the part. MEEN at 10 disables mass erase.
const (
	FSEC_SEC_MASK      = 0x03
	FSEC_SEC_UNSECURED = 0x02

	FSEC_FSLACC_MASK = 0x0C

	FSEC_MEEN_MASK     = 0x30
	FSEC_MEEN_DISABLED = 0x20

	FSEC_KEYEN_MASK    = 0xC0
	FSEC_KEYEN_ENABLED = 0x80
)

// FOPT fields.
const (
	FOPT_LPBOOT0       = 0x01
	FOPT_NMI_DIS       = 0x04
	FOPT_RESET_PIN_CFG = 0x08
	FOPT_LPBOOT1       = 0x10
	FOPT_FAST_INIT     = 0x20
)

// Shipping defaults: key and protection erased, FSEC unsecured with the
// backdoor disabled, FOPT fast init with the NMI pin off.
const (
	FSEC_DEFAULT = 0xFE
	FOPT_DEFAULT = 0xFB
)

var (
	ErrDeviceSecured = errors.New("device is secured: debug access refused")
	ErrDeviceBricked = errors.New("device is secured with mass erase disabled: part is unrecoverable")
)

type FlashConfig struct {
	BackdoorKey [8]byte
	FProt       [4]byte
	FSec        byte
	FOpt        byte
}

// DefaultFlashConfig returns the field an erased, factory-fresh part
// carries.
func DefaultFlashConfig() FlashConfig {
	fc := FlashConfig{FSec: FSEC_DEFAULT, FOpt: FOPT_DEFAULT}
	for i := range fc.BackdoorKey {
		fc.BackdoorKey[i] = 0xFF
	}
	for i := range fc.FProt {
		fc.FProt[i] = 0xFF
	}
	return fc
}

// ParseFlashConfig decodes the 16-byte field.
func ParseFlashConfig(b []byte) (FlashConfig, error) {
	var fc FlashConfig
	if len(b) != FLASH_CONFIG_SIZE {
		return fc, fmt.Errorf("flash config field must be %d bytes, got %d", FLASH_CONFIG_SIZE, len(b))
	}
	copy(fc.BackdoorKey[:], b[0:8])
	copy(fc.FProt[:], b[8:12])
	fc.FSec = b[12]
	fc.FOpt = b[13]
	return fc, nil
}

// ReadFlashConfig pulls the field out of a full flash image.
func ReadFlashConfig(flash []byte) (FlashConfig, error) {
	if len(flash) < int(FLASH_CONFIG_END)+1 {
		return FlashConfig{}, fmt.Errorf("flash image too small for config field: %d bytes", len(flash))
	}
	return ParseFlashConfig(flash[FLASH_CONFIG_BASE : FLASH_CONFIG_END+1])
}

// Bytes renders the field back into its 16-byte flash layout.
func (fc FlashConfig) Bytes() [FLASH_CONFIG_SIZE]byte {
	var out [FLASH_CONFIG_SIZE]byte
	copy(out[0:8], fc.BackdoorKey[:])
	copy(out[8:12], fc.FProt[:])
	out[12] = fc.FSec
	out[13] = fc.FOpt
	out[14] = 0xFF
	out[15] = 0xFF
	return out
}

// Secured reports whether the SEC field locks out debug access.
func (fc FlashConfig) Secured() bool {
	return fc.FSec&FSEC_SEC_MASK != FSEC_SEC_UNSECURED
}

// MassEraseDisabled reports whether MEEN forbids the mass-erase escape
// hatch.
func (fc FlashConfig) MassEraseDisabled() bool {
	return fc.FSec&FSEC_MEEN_MASK == FSEC_MEEN_DISABLED
}

// BackdoorEnabled reports whether the 8-byte key unlock path is open.
func (fc FlashConfig) BackdoorEnabled() bool {
	return fc.FSec&FSEC_KEYEN_MASK == FSEC_KEYEN_ENABLED
}

// Bricked is the unrecoverable combination: secured and no mass erase.
func (fc FlashConfig) Bricked() bool {
	return fc.Secured() && fc.MassEraseDisabled()
}

// NMIEnabled reports whether the NMI pin function is active.
func (fc FlashConfig) NMIEnabled() bool {
	return fc.FOpt&FOPT_NMI_DIS != 0
}

// FastInit reports whether the part skips the slow reset ramp.
func (fc FlashConfig) FastInit() bool {
	return fc.FOpt&FOPT_FAST_INIT != 0
}

// lpBootDividers maps LPBOOT1:LPBOOT0 to the reset-time OUTDIV1 divider.
var lpBootDividers = [4]uint32{8, 4, 2, 1}

// BootCoreDivider returns the OUTDIV1 divide value the part wakes up with.
func (fc FlashConfig) BootCoreDivider() uint32 {
	idx := 0
	if fc.FOpt&FOPT_LPBOOT0 != 0 {
		idx |= 1
	}
	if fc.FOpt&FOPT_LPBOOT1 != 0 {
		idx |= 2
	}
	return lpBootDividers[idx]
}

// ResetCLKDIV1 computes the SIM_CLKDIV1 value established at power-on:
// the LPBOOT core divider plus the fixed divide-by-2 flash divider.
func (fc FlashConfig) ResetCLKDIV1() uint32 {
	div := fc.BootCoreDivider()
	return (div-1)<<SIM_CLKDIV1_OUTDIV1_SHIFT | 1<<SIM_CLKDIV1_OUTDIV4_SHIFT
}

// CheckPowerOn enforces the security policy at machine power-on.
func (fc FlashConfig) CheckPowerOn() error {
	if fc.Bricked() {
		return ErrDeviceBricked
	}
	return nil
}

// CheckDebugAccess enforces the security policy for the monitor.
func (fc FlashConfig) CheckDebugAccess() error {
	if fc.Secured() {
		return ErrDeviceSecured
	}
	return nil
}
