//go:build tinygo && ch58x

package main

import (
	_ "embed"
	"runtime/volatile"

	"device/riscv"

	"ch58xrt/config"
	"ch58xrt/core"
	"ch58xrt/protocol"
)

//go:embed board.json
var boardJSON []byte

const (
	beatPeriodMillis = 500
	dumpEveryBeats   = 10
)

var timeDriver *core.TimeDriver

// heartbeat is woken from the SysTick interrupt and consumed by main.
type heartbeat struct {
	due volatile.Register8
}

func (h *heartbeat) Wake() { h.due.Set(1) }

func main() {
	postInit()

	cfg, cfgErr := config.LoadConfig(boardJSON)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	regs := core.MMIO
	clk := core.NewClockTree(regs, core.NewSafeAccess(regs))
	clk.Configure(cfg.ClockConfig())

	clocks := clk.Snapshot()
	InitDebugUART(clocks.Fsys, cfg.UARTBaud)
	core.SetDebugWriter(DebugPrintln)
	core.SetDebugEnabled(true)
	core.SetTraceEnabled(cfg.TraceEnabled())

	DebugPrintln("=== CH58x timekeeping core ===")
	if cfgErr != nil {
		DebugPrintln("[CFG] " + cfgErr.Error() + ", using defaults")
	}
	DebugPrintln("[CLK] sysclk=" + cfg.ClockConfig().System.String() +
		" fsys=" + string(protocol.AppendUint(nil, uint64(clocks.Fsys))))

	pfic := core.NewPFIC(regs, cfg.Levels())
	var err error
	timeDriver, err = core.InitTimeDriver(core.NewSysTick(regs), clk, pfic, cfg.Priority())
	if err != nil {
		DebugPrintln("[TIME] " + err.Error())
		panic(err)
	}

	var beat heartbeat
	var beats uint64
	next := timeDriver.Now()
	for {
		next += core.TicksFromMillis(beatPeriodMillis)
		timeDriver.ScheduleWake(next, &beat)
		waitFor(&beat)

		beats++
		DebugPrintln("[TIME] beat=" + string(protocol.AppendUint(nil, beats)) +
			" now=" + string(protocol.AppendUint(nil, timeDriver.Now())))
		if beats%dumpEveryBeats == 0 {
			core.DumpTrace()
			core.ClearTrace()
		}
	}
}

// waitFor sleeps until h is woken. The flag is tested with interrupts masked
// so a wake landing between the test and wfi still ends the sleep: wfi
// resumes on a pending interrupt even when it cannot be taken.
func waitFor(h *heartbeat) {
	for {
		state := core.DisableInterrupts()
		if h.due.Get() != 0 {
			h.due.Set(0)
			core.RestoreInterrupts(state)
			return
		}
		riscv.Asm("wfi")
		core.RestoreInterrupts(state)
	}
}

//go:export SysTick_Handler
func sysTickHandler() {
	if timeDriver != nil {
		timeDriver.TriggerAlarm()
	}
}
