package core

// RegisterFile is the memory-mapped register space, addressed absolutely.
// Every call is exactly one bus access.
type RegisterFile interface {
	Load8(addr uintptr) uint8
	Store8(addr uintptr, v uint8)
	Load16(addr uintptr) uint16
	Store16(addr uintptr, v uint16)
	Load32(addr uintptr) uint32
	Store32(addr uintptr, v uint32)
}

func setBits8(r RegisterFile, addr uintptr, mask uint8) {
	r.Store8(addr, r.Load8(addr)|mask)
}

func clearBits8(r RegisterFile, addr uintptr, mask uint8) {
	r.Store8(addr, r.Load8(addr)&^mask)
}

func setBits32(r RegisterFile, addr uintptr, mask uint32) {
	r.Store32(addr, r.Load32(addr)|mask)
}

func clearBits32(r RegisterFile, addr uintptr, mask uint32) {
	r.Store32(addr, r.Load32(addr)&^mask)
}
