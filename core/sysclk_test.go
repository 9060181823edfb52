package core

import (
	"testing"

	"ch58xrt/protocol"
)

func recordSpins(t *testing.T) *[]uint32 {
	t.Helper()
	var spins []uint32
	old := spin
	spin = func(n uint32) { spins = append(spins, n) }
	t.Cleanup(func() { spin = old })
	return &spins
}

// writeIndex returns the position in the access log of the first write to
// addr whose value satisfies match, or -1.
func writeIndex(m *regModel, addr uintptr, match func(uint32) bool) int {
	for i, a := range m.log {
		if a.write && a.addr == addr && match(a.val) {
			return i
		}
	}
	return -1
}

func lastWriteIndex(m *regModel, addr uintptr) int {
	for i := len(m.log) - 1; i >= 0; i-- {
		if m.log[i].write && m.log[i].addr == addr {
			return i
		}
	}
	return -1
}

func newTestClock(sysCfg uint16, hfck uint8) (*regModel, *ClockTree) {
	m := newRegModel()
	m.setSysCfg(sysCfg)
	m.put(regHfckPwrCtrl, 1, uint32(hfck))
	return m, NewClockTree(m, NewSafeAccess(m))
}

func TestConfigureFrequencies(t *testing.T) {
	recordSpins(t)

	tests := []struct {
		name  string
		sys   SystemClock
		fsys  uint32
		flash uint8
	}{
		{"HSE/5", HSE(5), 32_000_000 / 5, flashCfgHSE},
		{"HSE/1", HSE(1), 32_000_000, flashCfgHSE},
		{"PLL/6", PLL(6), 480_000_000 / 6, flashCfgPLLFast},
		{"PLL/8", PLL(8), 480_000_000 / 8, flashCfgPLL},
		{"PLL/31", PLL(31), 480_000_000 / 31, flashCfgPLL},
		{"32K", Clock32K(), Freq32K, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globalEnable = true
			m, clk := newTestClock(0x05, 0)
			m.put(regPllConfig, 1, pllCfgReserved)

			clk.Configure(ClockConfig{LowSpeed: LowSpeedInternal, System: tt.sys})

			if got := clk.EffectiveFrequency(); got != tt.fsys {
				t.Errorf("EffectiveFrequency() = %d, want %d", got, tt.fsys)
			}
			if got := m.Load8(regFlashCfg); got != tt.flash {
				t.Errorf("FLASH_CFG = 0x%02X, want 0x%02X", got, tt.flash)
			}
			pll := m.Load8(regPllConfig)
			if pll&pllCfgReserved != 0 {
				t.Error("reserved PLL_CONFIG bit left set")
			}
			if pll&pllFlashIOMod == 0 {
				t.Error("FLASH_IO_MOD not set")
			}
			if m.violations != 0 {
				t.Errorf("%d protected writes outside the unlock window", m.violations)
			}
			if !m.maskedOK {
				t.Error("protected write with interrupts enabled")
			}
			if !InterruptsEnabled() {
				t.Error("Configure left interrupts disabled")
			}
			if got := clk.Snapshot().Fsys; got != tt.fsys {
				t.Errorf("Snapshot().Fsys = %d, want %d", got, tt.fsys)
			}
		})
	}
}

func TestConfigurePowersOscillatorOnce(t *testing.T) {
	tests := []struct {
		name  string
		sys   SystemClock
		hfck  uint8
		spins []uint32
	}{
		{"HSE cold", HSE(5), 0, []uint32{hseSettleCycles}},
		{"HSE running", HSE(5), hfckXT32MPon, nil},
		{"PLL cold", PLL(6), hfckXT32MPon, []uint32{pllSettleCycles}},
		{"PLL running", PLL(6), hfckXT32MPon | hfckPLLPon, nil},
		{"32K", Clock32K(), 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spins := recordSpins(t)
			m, clk := newTestClock(0x05, tt.hfck)

			clk.Configure(ClockConfig{LowSpeed: LowSpeedInternal, System: tt.sys})

			if len(*spins) != len(tt.spins) {
				t.Fatalf("spins = %v, want %v", *spins, tt.spins)
			}
			for i := range tt.spins {
				if (*spins)[i] != tt.spins[i] {
					t.Errorf("spin %d = %d, want %d", i, (*spins)[i], tt.spins[i])
				}
			}
			if tt.sys.mode == modePLL && m.Load8(regHfckPwrCtrl)&hfckPLLPon == 0 {
				t.Error("PLL not powered")
			}
		})
	}
}

func TestConfigureOrdering(t *testing.T) {
	recordSpins(t)
	m, clk := newTestClock(0x05, hfckXT32MPon)
	m.put(regPllConfig, 1, pllCfgReserved)

	clk.Configure(ClockConfig{LowSpeed: LowSpeedInternal, System: PLL(6)})

	anyWrite := func(uint32) bool { return true }
	reservedClear := writeIndex(m, regPllConfig, func(v uint32) bool { return v&pllCfgReserved == 0 })
	powerOn := writeIndex(m, regHfckPwrCtrl, func(v uint32) bool { return v&hfckPLLPon != 0 })
	modeSwitch := writeIndex(m, regClkSysCfg, anyWrite)
	flash := writeIndex(m, regFlashCfg, anyWrite)
	flashIO := lastWriteIndex(m, regPllConfig)

	if reservedClear < 0 || powerOn < 0 || modeSwitch < 0 || flash < 0 || flashIO < 0 {
		t.Fatalf("missing writes: reserved=%d pon=%d mode=%d flash=%d io=%d",
			reservedClear, powerOn, modeSwitch, flash, flashIO)
	}
	if !(reservedClear < modeSwitch && powerOn < modeSwitch && modeSwitch < flash && flash < flashIO) {
		t.Errorf("wrong order: reserved=%d pon=%d mode=%d flash=%d io=%d",
			reservedClear, powerOn, modeSwitch, flash, flashIO)
	}
	if got := m.log[modeSwitch].val; got != 1<<clkSysModShift|6 {
		t.Errorf("CLK_SYS_CFG written 0x%04X, want 0x%04X", got, 1<<clkSysModShift|6)
	}
	// One window per step: low-speed, reserved clear, power-on, mode, flash, flash IO.
	if m.unlocks != 6 {
		t.Errorf("unlock windows = %d, want 6", m.unlocks)
	}
}

func TestConfigureExternalLowSpeed(t *testing.T) {
	spins := recordSpins(t)
	m, clk := newTestClock(0x05, hfckXT32MPon)

	clk.Configure(ClockConfig{LowSpeed: LowSpeedExternal, System: HSE(5)})

	// 6.4 MHz out of reset: fsys/10/4 crystal start, fsys/1000 after the switch.
	want := []uint32{160_000, 6_400}
	if len(*spins) != len(want) || (*spins)[0] != want[0] || (*spins)[1] != want[1] {
		t.Fatalf("spins = %v, want %v", *spins, want)
	}

	cfg := m.Load8(regCk32kConfig)
	if cfg&ck32kXTPon == 0 || cfg&ck32kOscXTSel == 0 {
		t.Errorf("CK32K_CONFIG = 0x%02X, crystal not powered and selected", cfg)
	}
	pon := writeIndex(m, regCk32kConfig, func(v uint32) bool { return v&ck32kXTPon != 0 })
	sel := writeIndex(m, regCk32kConfig, func(v uint32) bool { return v&ck32kOscXTSel != 0 })
	if pon < 0 || sel < 0 || pon >= sel {
		t.Errorf("crystal selected before it was powered: pon=%d sel=%d", pon, sel)
	}
}

func TestConfigureInternalLowSpeed(t *testing.T) {
	spins := recordSpins(t)
	m, clk := newTestClock(0x05, hfckXT32MPon)
	m.put(regCk32kConfig, 1, ck32kXTPon|ck32kOscXTSel)

	clk.Configure(ClockConfig{LowSpeed: LowSpeedInternal, System: HSE(5)})

	cfg := m.Load8(regCk32kConfig)
	if cfg&ck32kOscXTSel != 0 {
		t.Error("crystal still selected")
	}
	if cfg&ck32kIntPon == 0 {
		t.Error("internal oscillator not powered")
	}
	if len(*spins) != 0 {
		t.Errorf("internal source should not wait, spins = %v", *spins)
	}
}

func TestEffectiveFrequencyDecode(t *testing.T) {
	tests := []struct {
		cfg  uint16
		want uint32
	}{
		{0x05, 6_400_000},
		{0x01, 32_000_000},
		{0x46, 80_000_000},
		{0x48, 60_000_000},
		{0x40 | 31, 480_000_000 / 31},
		{0xC0, Freq32K},
		{0x85, Freq32K},
		{0x00, Freq32K},
		{0x40, Freq32K},
	}
	for _, tt := range tests {
		_, clk := newTestClock(tt.cfg, 0)
		if got := clk.EffectiveFrequency(); got != tt.want {
			t.Errorf("cfg 0x%02X: EffectiveFrequency() = %d, want %d", tt.cfg, got, tt.want)
		}
	}
	if ResetFrequency != 6_400_000 {
		t.Errorf("ResetFrequency = %d", ResetFrequency)
	}
}

func TestEffectiveFrequencyIsLive(t *testing.T) {
	recordSpins(t)
	m, clk := newTestClock(0x05, 0)

	clk.Configure(ClockConfig{System: PLL(6)})
	if clk.EffectiveFrequency() != 80_000_000 {
		t.Fatalf("EffectiveFrequency() = %d after PLL/6", clk.EffectiveFrequency())
	}

	m.setSysCfg(0x48)
	if got := clk.EffectiveFrequency(); got != 60_000_000 {
		t.Errorf("EffectiveFrequency() = %d, want 60000000 after external switch", got)
	}
}

func TestSystemClockDivider(t *testing.T) {
	if d := HSE(0x25).Divider(); d != 5 {
		t.Errorf("HSE(0x25).Divider() = %d, want 5", d)
	}
	if d := PLL(0xFF).Divider(); d != 31 {
		t.Errorf("PLL(0xFF).Divider() = %d, want 31", d)
	}
	if s := PLL(6).String(); s != "PLL/6" {
		t.Errorf("PLL(6).String() = %q", s)
	}
	if s := Clock32K().String(); s != "32K" {
		t.Errorf("Clock32K().String() = %q", s)
	}
}

func TestConfigureTrace(t *testing.T) {
	recordSpins(t)
	ClearTrace()
	_, clk := newTestClock(0x05, 0)

	clk.Configure(ClockConfig{System: PLL(6)})

	recs := TraceRecords()
	if len(recs) == 0 {
		t.Fatal("no trace records")
	}
	last := recs[len(recs)-1]
	if last.Event != protocol.EvtClockSwitch || last.Value2 != 80_000_000 || last.Value1 != 1<<8|6 {
		t.Errorf("last record = %+v", last)
	}
}

func TestSystemClockFrequencyMatchesHardware(t *testing.T) {
	recordSpins(t)

	clocks := []SystemClock{Clock32K(), HSE(0), PLL(0)}
	for div := uint8(1); div <= clkPllDivMask; div++ {
		clocks = append(clocks, HSE(div), PLL(div))
	}
	for _, sc := range clocks {
		_, clk := newTestClock(0x05, 0)
		clk.Configure(ClockConfig{System: sc})
		if got, want := clk.Snapshot().Fsys, sc.Frequency(); got != want {
			t.Errorf("%v: hardware runs at %d Hz, Frequency() = %d", sc, got, want)
		}
	}
	if HSE(5).Frequency() != ResetFrequency {
		t.Errorf("HSE/5 = %d Hz, want the reset frequency %d", HSE(5).Frequency(), ResetFrequency)
	}
}

// Configure runs before any debug writer can exist (the UART baud depends on
// its result), so it reports only through the trace ring.
func TestConfigureReportsThroughTrace(t *testing.T) {
	resetTrace(t)
	recordSpins(t)

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	SetDebugEnabled(true)

	_, clk := newTestClock(0x05, 0)
	clk.Configure(ClockConfig{System: HSE(2)})

	if len(lines) != 0 {
		t.Errorf("Configure wrote debug output %q", lines)
	}
	if _, ok := hasEvent(TraceRecords(), protocol.EvtClockSwitch); !ok {
		t.Error("clock switch not traced")
	}
}
