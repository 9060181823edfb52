//go:build !tinygo

package core

// State is the restore token returned by DisableInterrupts.
type State uintptr

// globalEnable models GINTENR.MIE on host builds. Firmware runs with
// interrupts enabled once the runtime is up, so the model starts enabled.
var globalEnable = true

// DisableInterrupts clears the simulated global enable and returns its
// previous value.
func DisableInterrupts() State {
	prev := globalEnable
	globalEnable = false
	if prev {
		return 1
	}
	return 0
}

// RestoreInterrupts re-enables the simulated global enable if the token was
// taken while it was set.
func RestoreInterrupts(state State) {
	if state != 0 {
		globalEnable = true
	}
}

// InterruptsEnabled reports the simulated global enable.
func InterruptsEnabled() bool {
	return globalEnable
}
