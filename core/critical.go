package core

// Critical runs fn with interrupts masked and restores the previous state
// afterwards. fn must not block or yield.
func Critical(fn func()) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)
	fn()
}
