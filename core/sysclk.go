package core

import "ch58xrt/protocol"

// Clock and power registers. All writes go through SafeAccess.
const (
	regClkSysCfg   uintptr = 0x40001008 // R16_CLK_SYS_CFG
	regHfckPwrCtrl uintptr = 0x4000100A // R8_HFCK_PWR_CTRL
	regCk32kConfig uintptr = 0x4000102F // R8_CK32K_CONFIG
	regPllConfig   uintptr = 0x4000104B // R8_PLL_CONFIG
	regFlashCfg    uintptr = 0x40001807 // R8_FLASH_CFG
)

// R16_CLK_SYS_CFG fields.
const (
	clkPllDivMask  = 0x1F
	clkSysModShift = 6
	clkSysModMask  = 0x3 << clkSysModShift

	modeHSE  = 0x0
	modePLL  = 0x1
	mode32K  = 0x3
	modeSlow = 0x2 // bit 7 set: 32 kHz regardless of bit 6
)

// R8_HFCK_PWR_CTRL bits.
const (
	hfckXT32MPon = 0x04
	hfckPLLPon   = 0x10
)

// R8_CK32K_CONFIG bits.
const (
	ck32kXTPon    = 0x01
	ck32kIntPon   = 0x02
	ck32kOscXTSel = 0x04
)

// R8_PLL_CONFIG bits.
const (
	pllCfgReserved = 1 << 5 // must be clear before switching source
	pllFlashIOMod  = 1 << 7
)

// Flash timing presets per system clock path.
const (
	flashCfgHSE     = 0x51
	flashCfgPLL     = 0x52
	flashCfgPLLFast = 0x02
)

// Base frequencies feeding the divider.
const (
	FreqHSE        = 32_000_000
	FreqPLL        = 480_000_000
	Freq32K        = 32_000
	ResetFrequency = FreqHSE / 5 // HSE/5 out of reset
)

const (
	hseSettleCycles = 2400
	pllSettleCycles = 4000

	// PLL divider with the low-latency flash preset (480/6 = 80 MHz).
	pllFastDivider = 6

	modeSwitchPad = 4
)

// LowSpeedSource selects the 32 kHz clock.
type LowSpeedSource uint8

const (
	LowSpeedInternal LowSpeedSource = iota
	LowSpeedExternal
)

// SystemClock is the system clock source and divider. Build one with
// Clock32K, HSE or PLL.
type SystemClock struct {
	mode uint8
	div  uint8
}

// Clock32K runs the core from the 32 kHz source.
func Clock32K() SystemClock { return SystemClock{mode: mode32K} }

// HSE divides the 32 MHz crystal. div is masked to 5 bits.
func HSE(div uint8) SystemClock { return SystemClock{mode: modeHSE, div: div & clkPllDivMask} }

// PLL divides the 480 MHz PLL output. div is masked to 5 bits.
func PLL(div uint8) SystemClock { return SystemClock{mode: modePLL, div: div & clkPllDivMask} }

// Divider returns the programmed divider (0 for Clock32K).
func (c SystemClock) Divider() uint8 { return c.div }

// Frequency returns the nominal system clock c produces. A zero divider
// selects the 32 kHz clock, as the hardware does.
func (c SystemClock) Frequency() uint32 {
	if c.div == 0 || c.mode&modeSlow != 0 {
		return Freq32K
	}
	if c.mode == modePLL {
		return FreqPLL / uint32(c.div)
	}
	return FreqHSE / uint32(c.div)
}

func (c SystemClock) String() string {
	switch c.mode {
	case modeHSE:
		return "HSE/" + utoa(uint64(c.div))
	case modePLL:
		return "PLL/" + utoa(uint64(c.div))
	default:
		return "32K"
	}
}

// ClockConfig is a complete clock tree setting.
type ClockConfig struct {
	LowSpeed LowSpeedSource
	System   SystemClock
}

// FrequencySource reports the current system clock.
type FrequencySource interface {
	EffectiveFrequency() uint32
}

// Clocks is a frozen frequency reading.
type Clocks struct {
	Fsys uint32
}

// ClockTree programs the oscillators, dividers and flash timing.
type ClockTree struct {
	regs RegisterFile
	safe *SafeAccess
}

// NewClockTree returns a clock tree using safe for every protected write.
func NewClockTree(regs RegisterFile, safe *SafeAccess) *ClockTree {
	return &ClockTree{regs: regs, safe: safe}
}

// Configure switches the clock tree to cfg. Each protected step gets its own
// unlock window. Oscillators are given fixed settle delays; there is no ready
// flag to poll.
func (c *ClockTree) Configure(cfg ClockConfig) {
	c.configureLowSpeed(cfg.LowSpeed)

	c.safe.WithUnlocked(func() {
		clearBits8(c.regs, regPllConfig, pllCfgReserved)
	})

	c.configureSystem(cfg.System)

	c.safe.WithUnlocked(func() {
		setBits8(c.regs, regPllConfig, pllFlashIOMod)
	})

	RecordTrace(protocol.EvtClockSwitch, 0, uint32(cfg.System.mode)<<8|uint32(cfg.System.div), c.EffectiveFrequency())
}

func (c *ClockTree) configureLowSpeed(src LowSpeedSource) {
	if src == LowSpeedExternal {
		fsys := c.EffectiveFrequency()
		c.safe.WithUnlocked(func() {
			setBits8(c.regs, regCk32kConfig, ck32kXTPon)
		})
		spin(fsys / 10 / 4)
		c.safe.WithUnlocked(func() {
			setBits8(c.regs, regCk32kConfig, ck32kOscXTSel)
		})
		spin(fsys / 1000)
		RecordTrace(protocol.EvtLowSpeedSwitch, 0, 1, 0)
		return
	}

	c.safe.WithUnlocked(func() {
		cfg := c.regs.Load8(regCk32kConfig)
		cfg &^= ck32kOscXTSel
		cfg |= ck32kIntPon
		c.regs.Store8(regCk32kConfig, cfg)
	})
	RecordTrace(protocol.EvtLowSpeedSwitch, 0, 0, 0)
}

func (c *ClockTree) configureSystem(sc SystemClock) {
	switch sc.mode {
	case modeHSE:
		c.powerOn(hfckXT32MPon, hseSettleCycles)
		c.switchMode(sc)
		c.safe.WithUnlocked(func() {
			c.regs.Store8(regFlashCfg, flashCfgHSE)
		})

	case modePLL:
		c.powerOn(hfckPLLPon, pllSettleCycles)
		c.switchMode(sc)
		flash := uint8(flashCfgPLL)
		if sc.div == pllFastDivider {
			flash = flashCfgPLLFast
		}
		c.safe.WithUnlocked(func() {
			c.regs.Store8(regFlashCfg, flash)
		})

	default:
		c.safe.WithUnlocked(func() {
			v := c.regs.Load16(regClkSysCfg)
			c.regs.Store16(regClkSysCfg, v|clkSysModMask)
		})
	}
}

// powerOn starts an oscillator that is not running yet and waits for it.
func (c *ClockTree) powerOn(bit uint8, settle uint32) {
	if c.regs.Load8(regHfckPwrCtrl)&bit != 0 {
		return
	}
	c.safe.WithUnlocked(func() {
		setBits8(c.regs, regHfckPwrCtrl, bit)
	})
	spin(settle)
}

func (c *ClockTree) switchMode(sc SystemClock) {
	c.safe.WithUnlocked(func() {
		c.regs.Store16(regClkSysCfg, uint16(sc.mode)<<clkSysModShift|uint16(sc.div))
		nops(modeSwitchPad)
	})
}

// EffectiveFrequency decodes the live mode and divider fields. It is never
// cached: another writer may have switched the clock since the last call.
func (c *ClockTree) EffectiveFrequency() uint32 {
	cfg := c.regs.Load16(regClkSysCfg)
	return SystemClock{
		mode: uint8((cfg & clkSysModMask) >> clkSysModShift),
		div:  uint8(cfg & clkPllDivMask),
	}.Frequency()
}

// Snapshot freezes the current frequency for consumers that derive fixed
// settings from it, such as a UART baud divisor.
func (c *ClockTree) Snapshot() Clocks {
	return Clocks{Fsys: c.EffectiveFrequency()}
}
