//go:build tinygo

package core

import "device/riscv"

// nops issues n no-operation instructions. Used for the short pipeline pads
// the clock and safe-access registers need after a write.
func nops(n int) {
	for i := 0; i < n; i++ {
		riscv.Asm("nop")
	}
}

// spinCycles busy-waits for about n core cycles (two nops per iteration,
// loop overhead ignored, matching the vendor SDK delays).
func spinCycles(n uint32) {
	for i := uint32(0); i < n/2; i++ {
		riscv.Asm("nop")
		riscv.Asm("nop")
	}
}
