//go:build tinygo

package core

import "device/riscv"

// GINTENR (CSR 0x800) is the QingKe alias of the machine interrupt enable
// bits; bit 3 is MIE.
const gintenrMIE = 0x8

// State is the restore token returned by DisableInterrupts.
type State uintptr

// DisableInterrupts clears the global interrupt enable and returns whether it
// was set before.
//
//go:inline
func DisableInterrupts() State {
	prev := riscv.AsmFull("csrrc {}, 0x800, {mask}", map[string]interface{}{
		"mask": gintenrMIE,
	})
	return State(prev & gintenrMIE)
}

// RestoreInterrupts re-enables interrupts only if the token says they were
// enabled when it was taken.
//
//go:inline
func RestoreInterrupts(state State) {
	if state&gintenrMIE != 0 {
		riscv.AsmFull("csrs 0x800, {mask}", map[string]interface{}{
			"mask": gintenrMIE,
		})
	}
}

// InterruptsEnabled reports the live global interrupt enable bit.
func InterruptsEnabled() bool {
	return riscv.AsmFull("csrr {}, 0x800", nil)&gintenrMIE != 0
}
