//go:build tinygo

package core

import (
	"runtime/volatile"
	"unsafe"
)

type mmio struct{}

// MMIO is the chip's real register space.
var MMIO RegisterFile = mmio{}

func (mmio) Load8(addr uintptr) uint8 {
	return volatile.LoadUint8((*uint8)(unsafe.Pointer(addr)))
}

func (mmio) Store8(addr uintptr, v uint8) {
	volatile.StoreUint8((*uint8)(unsafe.Pointer(addr)), v)
}

func (mmio) Load16(addr uintptr) uint16 {
	return volatile.LoadUint16((*uint16)(unsafe.Pointer(addr)))
}

func (mmio) Store16(addr uintptr, v uint16) {
	volatile.StoreUint16((*uint16)(unsafe.Pointer(addr)), v)
}

func (mmio) Load32(addr uintptr) uint32 {
	return volatile.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

func (mmio) Store32(addr uintptr, v uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(addr)), v)
}
