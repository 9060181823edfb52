package core

import (
	"sync/atomic"

	"ch58xrt/errcode"
	"ch58xrt/protocol"
)

const sysTickBase uintptr = 0xE000F000

// SysTick register offsets. The counter and compare registers are 64 bits
// wide, exposed as low/high word pairs.
const (
	stCTLR uintptr = 0x00
	stSR   uintptr = 0x04
	stCNTL uintptr = 0x08
	stCNTH uintptr = 0x0C
	stCMPL uintptr = 0x10
	stCMPH uintptr = 0x14
)

// STK_CTLR bits.
const (
	stSTE   = 1 << 0 // counter enable
	stSTIE  = 1 << 1 // compare interrupt enable
	stSTCLK = 1 << 2 // 1: HCLK, 0: HCLK/8
	stSTRE  = 1 << 3 // auto reload on compare
	stMODE  = 1 << 4 // 1: count down
	stINIT  = 1 << 5 // reload the counter
)

// STK_SR bits.
const stCNTIF = 1 << 0

// SysTick is the core's free-running counter and its compare register. A
// counter can be claimed by exactly one TimeDriver.
type SysTick struct {
	regs    RegisterFile
	base    uintptr
	claimed uint32
}

// NewSysTick returns the SysTick at its fixed base address.
func NewSysTick(regs RegisterFile) *SysTick {
	return &SysTick{regs: regs, base: sysTickBase}
}

// Counter reads the 64-bit counter. The high word is read before and after
// the low word; a mismatch means the low word wrapped in between.
func (s *SysTick) Counter() uint64 {
	for {
		high1 := s.regs.Load32(s.base + stCNTH)
		low := s.regs.Load32(s.base + stCNTL)
		high2 := s.regs.Load32(s.base + stCNTH)
		if high1 == high2 {
			return uint64(high1)<<32 | uint64(low)
		}
	}
}

func (s *SysTick) setCompare(v uint64) {
	s.regs.Store32(s.base+stCMPL, uint32(v))
	s.regs.Store32(s.base+stCMPH, uint32(v>>32))
}

func (s *SysTick) clearFlag() {
	s.regs.Store32(s.base+stSR, 0)
}

func (s *SysTick) enableCompare() {
	setBits32(s.regs, s.base+stCTLR, stSTIE)
}

func (s *SysTick) disableCompare() {
	clearBits32(s.regs, s.base+stCTLR, stSTIE)
}

// start resets and enables the counter: count up, no reload, HCLK.
func (s *SysTick) start() {
	s.regs.Store32(s.base+stCTLR, stINIT|stSTE)
	s.setCompare(0)
	s.clearFlag()
	clearBits32(s.regs, s.base+stCTLR, stMODE|stSTRE)
	setBits32(s.regs, s.base+stCTLR, stSTCLK)
}

// TimeDriver turns the SysTick counter into a monotonic tick clock and
// multiplexes any number of timed wakes onto its single compare register.
//
// The tick counter is not extended past the 64-bit hardware counter; at
// 80 MHz it wraps after thousands of years. Scheduled wakes cannot
// be cancelled, they simply fire.
type TimeDriver struct {
	st         *SysTick
	cntPerTick uint32
	queue      WakeQueue
}

// InitTimeDriver claims st, derives the tick ratio from the current system
// clock and starts the counter with its interrupt enabled at prio. It is the
// only way to obtain a TimeDriver.
func InitTimeDriver(st *SysTick, freq FrequencySource, pfic *PFIC, prio Priority) (*TimeDriver, error) {
	if !atomic.CompareAndSwapUint32(&st.claimed, 0, 1) {
		return nil, errcode.New(errcode.AlreadyInitialized, "systick", "counter already drives a clock")
	}

	fsys := freq.EffectiveFrequency()
	perTick := TickRatio(fsys)
	if perTick == 0 {
		atomic.StoreUint32(&st.claimed, 0)
		return nil, errcode.New(errcode.ClockTooSlow, "systick", "counter slower than tick rate")
	}

	d := &TimeDriver{
		st:         st,
		cntPerTick: perTick,
	}
	st.start()

	pfic.SetPriority(IrqSysTick, prio)
	pfic.Enable(IrqSysTick)

	RecordTrace(protocol.EvtCounterArmed, 0, d.cntPerTick, fsys)
	DebugPrintln("[TIME] cnt_per_tick=" + utoa(uint64(d.cntPerTick)))
	return d, nil
}

// CountsPerTick returns the fixed counter-to-tick ratio.
func (d *TimeDriver) CountsPerTick() uint32 { return d.cntPerTick }

// Now returns the current tick count.
func (d *TimeDriver) Now() uint64 {
	return d.st.Counter() / uint64(d.cntPerTick)
}

// Pending returns the number of wakes not yet fired.
func (d *TimeDriver) Pending() int {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)
	return d.queue.Len()
}

// ScheduleWake arranges for w to be woken at or after tick at. It never
// blocks. A deadline too large to express in counter units never fires.
func (d *TimeDriver) ScheduleWake(at uint64, w Waker) {
	deadline := NoDeadline
	if at < NoDeadline/uint64(d.cntPerTick) {
		deadline = at * uint64(d.cntPerTick)
	}

	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	rearm := d.queue.Schedule(deadline, w)
	if rearm {
		d.rearm()
	}
	var v1 uint32
	if rearm {
		v1 = 1
	}
	RecordTrace(protocol.EvtWakeScheduled, deadline, v1, 0)
}

// TriggerAlarm is the SysTick interrupt body: fire what is due and arm the
// compare register for whatever is left.
func (d *TimeDriver) TriggerAlarm() {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	d.st.clearFlag()
	d.rearm()
}

// rearm drains due wakes and arms the next deadline, retrying while the
// counter keeps overtaking it. Each retry fires the deadline that was just
// missed, so the loop ends with either an armed future deadline or an empty
// queue. Caller holds the critical section.
func (d *TimeDriver) rearm() {
	var retries uint32
	next := d.fire()
	for !d.setAlarm(next) {
		retries++
		next = d.fire()
	}
	if next != NoDeadline {
		RecordTrace(protocol.EvtAlarmArmed, next, retries, 0)
	}
}

func (d *TimeDriver) fire() uint64 {
	now := d.st.Counter()
	before := d.queue.Len()
	next := d.queue.NextExpiration(now)
	if fired := before - d.queue.Len(); fired > 0 {
		RecordTrace(protocol.EvtWakeFired, now, uint32(fired), 0)
	}
	return next
}

// setAlarm arms the compare register for at. It returns false, leaving the
// compare interrupt disabled, if the counter already reached at, either
// before the write or by the time the write took effect.
func (d *TimeDriver) setAlarm(at uint64) bool {
	st := d.st
	if at == NoDeadline {
		st.disableCompare()
		st.clearFlag()
		RecordTrace(protocol.EvtAlarmIdle, 0, 0, 0)
		return true
	}

	if at <= st.Counter() {
		RecordTrace(protocol.EvtAlarmStale, at, 0, 0)
		return false
	}

	st.setCompare(at)
	st.enableCompare()
	st.clearFlag()

	// Arming is not atomic with the counter.
	if at <= st.Counter() {
		st.disableCompare()
		st.clearFlag()
		RecordTrace(protocol.EvtAlarmStale, at, 1, 0)
		return false
	}
	return true
}
