//go:build !tinygo

package core

// Host builds have no pipeline to pad and nothing to settle.

func nops(n int) {}

func spinCycles(n uint32) {}
