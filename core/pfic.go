package core

// Interrupt is a flat PFIC interrupt number.
type Interrupt uint16

// NumInterrupts is the size of the PFIC id space (eight 32-bit bank words).
const NumInterrupts = 256

// QingKe core interrupts.
const (
	IrqNMI       Interrupt = 2
	IrqHardFault Interrupt = 3
	IrqEcallM    Interrupt = 5
	IrqEcallU    Interrupt = 8
	IrqBreakpt   Interrupt = 9
	IrqSysTick   Interrupt = 12
	IrqSoftware  Interrupt = 14
)

// CH58x peripheral interrupts.
const (
	IrqTMR0 Interrupt = iota + 16
	IrqGPIOA
	IrqGPIOB
	IrqSPI0
	IrqBLEB
	IrqBLEL
	IrqUSB
	IrqUSB2
	IrqTMR1
	IrqTMR2
	IrqUART0
	IrqUART1
	IrqRTC
	IrqADC
	IrqI2C
	IrqPWMX
	IrqTMR3
	IrqUART2
	IrqUART3
	IrqWDOGBAT
)

// Priority is a per-interrupt priority level.
type Priority uint8

// PriorityLevels is how many priority values a controller variant decodes.
type PriorityLevels uint16

const (
	Levels16  PriorityLevels = 16
	Levels256 PriorityLevels = 256
)

const pficBase uintptr = 0xE000E000

// Register banks, relative to pficBase. Set/clear banks are write-1-to-act;
// ISR/IPR/IACTR are the read-back status banks.
const (
	pficISR      uintptr = 0x000
	pficIPR      uintptr = 0x020
	pficITHRESDR uintptr = 0x040
	pficIENR     uintptr = 0x100
	pficIRER     uintptr = 0x180
	pficIPSR     uintptr = 0x200
	pficIPRR     uintptr = 0x280
	pficIACTR    uintptr = 0x300
	pficIPRIOR   uintptr = 0x400
)

// PFIC is the programmable fast interrupt controller.
type PFIC struct {
	regs   RegisterFile
	base   uintptr
	levels PriorityLevels
}

// NewPFIC returns the controller at its fixed base address.
func NewPFIC(regs RegisterFile, levels PriorityLevels) *PFIC {
	if levels != Levels16 && levels != Levels256 {
		panic("pfic: unsupported priority levels")
	}
	return &PFIC{regs: regs, base: pficBase, levels: levels}
}

// checkIrq panics on an id the controller does not have.
func checkIrq(irq Interrupt) {
	if irq >= NumInterrupts {
		panic("pfic: interrupt out of range")
	}
}

// bankBit maps an interrupt to its word offset and bit within a bank.
func bankBit(irq Interrupt) (word uintptr, bit uint32) {
	checkIrq(irq)
	return uintptr(irq / 32), uint32(irq % 32)
}

func (p *PFIC) write1(bank uintptr, irq Interrupt) {
	word, bit := bankBit(irq)
	p.regs.Store32(p.base+bank+word*4, 1<<bit)
}

func (p *PFIC) test(bank uintptr, irq Interrupt) bool {
	word, bit := bankBit(irq)
	return p.regs.Load32(p.base+bank+word*4)&(1<<bit) != 0
}

// Enable unmasks irq.
func (p *PFIC) Enable(irq Interrupt) { p.write1(pficIENR, irq) }

// Disable masks irq.
func (p *PFIC) Disable(irq Interrupt) { p.write1(pficIRER, irq) }

// IsEnabled reads irq's bit from the enable status bank.
func (p *PFIC) IsEnabled(irq Interrupt) bool { return p.test(pficISR, irq) }

// Pend sets irq pending in software.
func (p *PFIC) Pend(irq Interrupt) { p.write1(pficIPSR, irq) }

// Unpend clears a pending irq.
func (p *PFIC) Unpend(irq Interrupt) { p.write1(pficIPRR, irq) }

// IsPending reads irq's bit from the pending status bank.
func (p *PFIC) IsPending(irq Interrupt) bool { return p.test(pficIPR, irq) }

// IsActive reports whether irq's handler is executing (or preempted).
func (p *PFIC) IsActive(irq Interrupt) bool { return p.test(pficIACTR, irq) }

// SetPriority writes prio to irq's priority byte.
func (p *PFIC) SetPriority(irq Interrupt, prio Priority) {
	checkIrq(irq)
	if uint16(prio) >= uint16(p.levels) {
		panic("pfic: priority out of range")
	}
	p.regs.Store8(p.base+pficIPRIOR+uintptr(irq), uint8(prio))
}

// Priority reads irq's priority byte back. A value the variant cannot
// represent means the hardware is not what we think it is.
func (p *PFIC) Priority(irq Interrupt) Priority {
	checkIrq(irq)
	return p.decode(p.regs.Load8(p.base + pficIPRIOR + uintptr(irq)))
}

// SetThreshold masks every interrupt whose priority is not above prio.
// Zero disables threshold masking.
func (p *PFIC) SetThreshold(prio Priority) {
	if uint16(prio) >= uint16(p.levels) {
		panic("pfic: priority out of range")
	}
	p.regs.Store32(p.base+pficITHRESDR, uint32(prio))
}

// Threshold reads the priority threshold back.
func (p *PFIC) Threshold() Priority {
	return p.decode(uint8(p.regs.Load32(p.base + pficITHRESDR)))
}

func (p *PFIC) decode(v uint8) Priority {
	if uint16(v) >= uint16(p.levels) {
		panic("pfic: undecodable priority")
	}
	return Priority(v)
}
