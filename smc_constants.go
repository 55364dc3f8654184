// smc_constants.go - System Mode Controller register addresses and constants
// See registers.go for the complete memory map reference.

package main

// SMC register addresses (8-bit, byte access only)
const (
	SMC_PMPROT   = SMC_BASE + 0x00 // Power mode protection (write-once, set-only)
	SMC_PMCTRL   = SMC_BASE + 0x01 // Power mode control
	SMC_STOPCTRL = SMC_BASE + 0x02 // Stop control
	SMC_PMSTAT   = SMC_BASE + 0x03 // Power mode status (read-only)
)

// SMC_PMPROT bits. Each bit unlocks a family of low power modes. Set bits
// stick until the next power-on reset; writes can only add permissions,
// never revoke them.
const (
	SMC_PMPROT_AVLLS = 1 << 1 // Bit 1: Allow very-low-leakage stop modes
	SMC_PMPROT_ALLS  = 1 << 3 // Bit 3: Allow low-leakage stop mode
	SMC_PMPROT_AVLP  = 1 << 5 // Bit 5: Allow very-low-power modes

	SMC_PMPROT_ALL = SMC_PMPROT_AVLLS | SMC_PMPROT_ALLS | SMC_PMPROT_AVLP
)

// SMC_PMCTRL fields
const (
	SMC_PMCTRL_STOPM_MASK  = 0x07 // Bits 2-0: Stop mode select
	SMC_PMCTRL_STOPM_STOP  = 0 << 0
	SMC_PMCTRL_STOPM_VLPS  = 2 << 0
	SMC_PMCTRL_STOPM_LLS   = 3 << 0
	SMC_PMCTRL_STOPM_VLLSX = 4 << 0

	SMC_PMCTRL_STOPA = 1 << 3 // Bit 3: Previous stop aborted (read-only)

	SMC_PMCTRL_RUNM_MASK = 0x60 // Bits 6-5: Run mode select
	SMC_PMCTRL_RUNM_RUN  = 0 << 5
	SMC_PMCTRL_RUNM_VLPR = 2 << 5
)

// SMC_STOPCTRL fields
const (
	SMC_STOPCTRL_VLLSM_MASK  = 0x07 // Bits 2-0: VLLS mode select
	SMC_STOPCTRL_VLLSM_VLLS0 = 0 << 0
	SMC_STOPCTRL_VLLSM_VLLS1 = 1 << 0
	SMC_STOPCTRL_VLLSM_VLLS3 = 3 << 0

	SMC_STOPCTRL_PORPO = 1 << 5 // Bit 5: Power-on-reset detect disabled in VLLS0

	SMC_STOPCTRL_PSTOPO_MASK   = 0xC0 // Bits 7-6: Partial stop option
	SMC_STOPCTRL_PSTOPO_STOP   = 0 << 6
	SMC_STOPCTRL_PSTOPO_PSTOP1 = 1 << 6
	SMC_STOPCTRL_PSTOPO_PSTOP2 = 2 << 6
)

// SMC_PMSTAT values. Exactly one bit is set at a time.
const (
	SMC_PMSTAT_RUN  = 1 << 0
	SMC_PMSTAT_STOP = 1 << 1
	SMC_PMSTAT_VLPR = 1 << 2
	SMC_PMSTAT_VLPW = 1 << 3
	SMC_PMSTAT_VLPS = 1 << 4
	SMC_PMSTAT_LLS  = 1 << 5
	SMC_PMSTAT_VLLS = 1 << 6
)
