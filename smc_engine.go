// smc_engine.go - System Mode Controller hardware model

/*
smc_engine.go - SMC Engine

Models the power mode controller. PMPROT is the interesting register: its
bits are set-only until the next power-on reset, so firmware gets exactly
one chance per boot to widen the set of permitted low power modes and can
never narrow it. A write that tries to clear an already granted permission
simply leaves it granted.

The simulated part never leaves RUN during bring-up, so PMSTAT is pinned to
RUN; PMCTRL and STOPCTRL are stored and reported but acted on only by a
future stop mode model.
*/

package main

import "sync"

type SMCEngine struct {
	mutex sync.Mutex

	pmprot   uint8
	pmctrl   uint8
	stopctrl uint8
	pmstat   uint8
}

func NewSMCEngine() *SMCEngine {
	e := &SMCEngine{}
	e.resetState()
	return e
}

func (e *SMCEngine) resetState() {
	e.pmprot = 0
	e.pmctrl = SMC_PMCTRL_RUNM_RUN | SMC_PMCTRL_STOPM_STOP
	e.stopctrl = SMC_STOPCTRL_VLLSM_VLLS3
	e.pmstat = SMC_PMSTAT_RUN
}

func (e *SMCEngine) HandleRead(addr uint32) uint32 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	switch addr {
	case SMC_PMPROT:
		return uint32(e.pmprot)
	case SMC_PMCTRL:
		return uint32(e.pmctrl)
	case SMC_STOPCTRL:
		return uint32(e.stopctrl)
	case SMC_PMSTAT:
		return uint32(e.pmstat)
	default:
		return 0
	}
}

func (e *SMCEngine) HandleWrite(addr uint32, value uint32) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	v := uint8(value)
	switch addr {
	case SMC_PMPROT:
		// Set-only: new permissions accumulate, cleared bits are ignored.
		e.pmprot |= v & SMC_PMPROT_ALL
	case SMC_PMCTRL:
		// STOPA is read-only within the register.
		e.pmctrl = v &^ SMC_PMCTRL_STOPA
	case SMC_STOPCTRL:
		e.stopctrl = v
	case SMC_PMSTAT:
		// Read-only; discarded.
	}
}

// AllowedModes returns the accumulated PMPROT permission bits.
func (e *SMCEngine) AllowedModes() uint8 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.pmprot
}

// AllModesAllowed reports whether every power mode family has been unlocked.
func (e *SMCEngine) AllModesAllowed() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.pmprot&SMC_PMPROT_ALL == SMC_PMPROT_ALL
}
