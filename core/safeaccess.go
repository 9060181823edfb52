package core

// R8_SAFE_ACCESS_SIG gates writes to the clock and power registers.
const (
	regSafeAccessSig uintptr = 0x40001040

	safeAccessSig1 = 0x57
	safeAccessSig2 = 0xA8
	safeAccessLock = 0x00

	// nops after each signature write before the next bus access lands
	safeAccessPad = 2
)

// SafeAccess opens the write-protected register window.
type SafeAccess struct {
	regs RegisterFile
}

// NewSafeAccess binds the unlock sequence to a register file.
func NewSafeAccess(regs RegisterFile) *SafeAccess {
	return &SafeAccess{regs: regs}
}

// WithUnlocked runs fn with the protected registers writable and interrupts
// masked. fn must finish all protected writes before returning: a nested
// WithUnlocked re-locks when the inner call exits.
func (s *SafeAccess) WithUnlocked(fn func()) {
	state := DisableInterrupts()
	s.regs.Store8(regSafeAccessSig, safeAccessSig1)
	nops(safeAccessPad)
	s.regs.Store8(regSafeAccessSig, safeAccessSig2)
	nops(safeAccessPad)

	fn()

	s.regs.Store8(regSafeAccessSig, safeAccessLock)
	nops(safeAccessPad)
	RestoreInterrupts(state)
}
