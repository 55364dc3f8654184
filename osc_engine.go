// osc_engine.go - System oscillator hardware model

/*
osc_engine.go - OSC0 Engine

Models the crystal oscillator's single control register. The oscillator's
startup timing lives in the MCG engine (OSCINIT0 settling); this engine
tracks the ERCLKEN output enable and the selected load capacitance, which
the boot report quotes when describing the crystal configuration.
*/

package main

import "sync"

type OSCEngine struct {
	mutex sync.Mutex

	cr uint8
}

func NewOSCEngine() *OSCEngine {
	return &OSCEngine{}
}

func (e *OSCEngine) HandleRead(addr uint32) uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if addr == OSC0_CR {
		return uint32(e.cr)
	}
	return 0
}

func (e *OSCEngine) HandleWrite(addr uint32, value uint32) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if addr == OSC0_CR {
		e.cr = uint8(value)
	}
}

// ExternalClockEnabled reports whether ERCLK is driven to peripherals.
func (e *OSCEngine) ExternalClockEnabled() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.cr&OSC0_CR_ERCLKEN != 0
}

// LoadCapacitancePF returns the summed load capacitor selection in pF.
func (e *OSCEngine) LoadCapacitancePF() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	pf := 0
	if e.cr&OSC0_CR_SC2P != 0 {
		pf += 2
	}
	if e.cr&OSC0_CR_SC4P != 0 {
		pf += 4
	}
	if e.cr&OSC0_CR_SC8P != 0 {
		pf += 8
	}
	if e.cr&OSC0_CR_SC16P != 0 {
		pf += 16
	}
	return pf
}
