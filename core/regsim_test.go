package core

import "encoding/binary"

// access is one bus transaction seen by the register model.
type access struct {
	write bool
	addr  uintptr
	width int
	val   uint32
}

// regModel is a host stand-in for the CH58x register space. It behaves like
// the parts of the chip the core touches:
//   - PFIC set/clear banks update the status banks instead of storing
//   - protected clock registers ignore writes unless the safe-access
//     signature is open, and such writes are counted as violations
//   - SysTick CNT reads come from a counter the test drives, optionally
//     advancing on every read to provoke arming races
type regModel struct {
	mem map[uintptr]uint8
	log []access

	counter       uint64
	advanceOnRead uint64

	sigState   int // 0 locked, 1 saw 0x57, 2 unlocked
	violations int
	unlocks    int
	maskedOK   bool // every protected write happened with interrupts masked
}

func newRegModel() *regModel {
	return &regModel{mem: make(map[uintptr]uint8), maskedOK: true}
}

func (m *regModel) resetLog() { m.log = m.log[:0] }

func isProtected(addr uintptr) bool {
	switch {
	case addr >= regClkSysCfg && addr <= regHfckPwrCtrl:
		return true
	case addr == regCk32kConfig, addr == regPllConfig, addr == regFlashCfg:
		return true
	}
	return false
}

func (m *regModel) raw(addr uintptr, width int) uint32 {
	var b [4]byte
	for i := 0; i < width; i++ {
		b[i] = m.mem[addr+uintptr(i)]
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (m *regModel) put(addr uintptr, width int, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	for i := 0; i < width; i++ {
		m.mem[addr+uintptr(i)] = b[i]
	}
}

func (m *regModel) load(addr uintptr, width int) uint32 {
	var v uint32
	switch addr {
	case sysTickBase + stCNTL:
		v = uint32(m.counter)
		m.counter += m.advanceOnRead
	case sysTickBase + stCNTH:
		v = uint32(m.counter >> 32)
	default:
		v = m.raw(addr, width)
	}
	m.log = append(m.log, access{addr: addr, width: width, val: v})
	return v
}

func (m *regModel) store(addr uintptr, width int, v uint32) {
	m.log = append(m.log, access{write: true, addr: addr, width: width, val: v})

	if addr == regSafeAccessSig {
		switch {
		case v == safeAccessSig1:
			m.sigState = 1
		case v == safeAccessSig2 && m.sigState == 1:
			m.sigState = 2
			m.unlocks++
		default:
			m.sigState = 0
		}
		return
	}
	if isProtected(addr) {
		if m.sigState != 2 {
			m.violations++
			return
		}
		if InterruptsEnabled() {
			m.maskedOK = false
		}
	}

	if addr >= pficBase && addr < pficBase+pficIPRIOR {
		off := addr - pficBase
		switch {
		case off >= pficIENR && off < pficIENR+0x20:
			m.put(pficBase+pficISR+off-pficIENR, 4, m.raw(pficBase+pficISR+off-pficIENR, 4)|v)
			return
		case off >= pficIRER && off < pficIRER+0x20:
			m.put(pficBase+pficISR+off-pficIRER, 4, m.raw(pficBase+pficISR+off-pficIRER, 4)&^v)
			return
		case off >= pficIPSR && off < pficIPSR+0x20:
			m.put(pficBase+pficIPR+off-pficIPSR, 4, m.raw(pficBase+pficIPR+off-pficIPSR, 4)|v)
			return
		case off >= pficIPRR && off < pficIPRR+0x20:
			m.put(pficBase+pficIPR+off-pficIPRR, 4, m.raw(pficBase+pficIPR+off-pficIPRR, 4)&^v)
			return
		}
	}

	if addr == sysTickBase+stCTLR && v&stINIT != 0 {
		m.counter = 0
		v &^= stINIT
	}
	m.put(addr, width, v)
}

func (m *regModel) Load8(addr uintptr) uint8       { return uint8(m.load(addr, 1)) }
func (m *regModel) Store8(addr uintptr, v uint8)   { m.store(addr, 1, uint32(v)) }
func (m *regModel) Load16(addr uintptr) uint16     { return uint16(m.load(addr, 2)) }
func (m *regModel) Store16(addr uintptr, v uint16) { m.store(addr, 2, uint32(v)) }
func (m *regModel) Load32(addr uintptr) uint32     { return m.load(addr, 4) }
func (m *regModel) Store32(addr uintptr, v uint32) { m.store(addr, 4, v) }

// compare returns the armed SysTick compare value.
func (m *regModel) compare() uint64 {
	return uint64(m.raw(sysTickBase+stCMPH, 4))<<32 | uint64(m.raw(sysTickBase+stCMPL, 4))
}

// compareEnabled reports STK_CTLR.STIE.
func (m *regModel) compareEnabled() bool {
	return m.raw(sysTickBase+stCTLR, 4)&stSTIE != 0
}

// alarmDue reports whether the hardware would raise the SysTick interrupt.
func (m *regModel) alarmDue() bool {
	return m.compareEnabled() && m.counter >= m.compare()
}

// setSysCfg programs R16_CLK_SYS_CFG directly, bypassing the lock.
func (m *regModel) setSysCfg(v uint16) {
	m.put(regClkSysCfg, 2, uint32(v))
}
