// Package config loads the board profile: clock tree setting, SysTick
// interrupt priority and debug output parameters.
package config

import (
	"encoding/json"
	"strconv"

	"ch58xrt/core"
	"ch58xrt/errcode"
)

// Source names accepted in the profile.
const (
	LowSpeedInternal = "internal"
	LowSpeedExternal = "external"

	SysClk32K = "32k"
	SysClkHSE = "hse"
	SysClkPLL = "pll"
)

// BoardConfig is the JSON board profile.
type BoardConfig struct {
	LowSpeed        string `json:"low_speed"`
	SysClk          string `json:"sysclk"`
	Divider         uint8  `json:"divider"`
	SysTickPriority *int   `json:"systick_priority,omitempty"`
	PriorityLevels  int    `json:"priority_levels"`
	Trace           *bool  `json:"trace,omitempty"`
	UARTBaud        uint32 `json:"uart_baud"`
}

// LoadConfig parses a JSON profile, fills in defaults and validates it.
func LoadConfig(jsonData []byte) (*BoardConfig, error) {
	var config BoardConfig

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "config", Msg: "malformed profile", Err: err}
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing values
func applyDefaults(config *BoardConfig) {
	if config.LowSpeed == "" {
		config.LowSpeed = LowSpeedInternal
	}
	if config.SysClk == "" {
		config.SysClk = SysClkPLL
	}
	if config.Divider == 0 {
		switch config.SysClk {
		case SysClkPLL:
			config.Divider = 6 // 80 MHz
		case SysClkHSE:
			config.Divider = uint8(core.FreqHSE / core.ResetFrequency) // the reset setting
		}
	}
	if config.PriorityLevels == 0 {
		config.PriorityLevels = int(core.Levels16)
	}
	if config.SysTickPriority == nil {
		lowest := config.PriorityLevels - 1
		config.SysTickPriority = &lowest
	}
	if config.Trace == nil {
		on := true
		config.Trace = &on
	}
	if config.UARTBaud == 0 {
		config.UARTBaud = 115200
	}
}

// Validate checks every field against what the chip accepts.
func (c *BoardConfig) Validate() error {
	invalid := func(msg string) error {
		return errcode.New(errcode.InvalidConfig, "config", msg)
	}

	switch c.LowSpeed {
	case LowSpeedInternal, LowSpeedExternal:
	default:
		return invalid("unknown low_speed " + c.LowSpeed)
	}

	switch c.SysClk {
	case SysClk32K:
	case SysClkHSE, SysClkPLL:
		if c.Divider == 0 || c.Divider > 31 {
			return invalid("divider out of range")
		}
	default:
		return invalid("unknown sysclk " + c.SysClk)
	}

	if core.TickRatio(c.ClockConfig().System.Frequency()) == 0 {
		return invalid("system clock too slow for the " + strconv.Itoa(core.TickHz) + " Hz tick")
	}

	if c.PriorityLevels != int(core.Levels16) && c.PriorityLevels != int(core.Levels256) {
		return invalid("priority_levels must be 16 or 256")
	}
	if c.SysTickPriority == nil || *c.SysTickPriority < 0 || *c.SysTickPriority >= c.PriorityLevels {
		return invalid("systick_priority out of range")
	}
	if c.UARTBaud == 0 {
		return invalid("uart_baud must be set")
	}
	return nil
}

// ClockConfig converts the profile into a clock tree setting.
func (c *BoardConfig) ClockConfig() core.ClockConfig {
	cfg := core.ClockConfig{LowSpeed: core.LowSpeedInternal}
	if c.LowSpeed == LowSpeedExternal {
		cfg.LowSpeed = core.LowSpeedExternal
	}

	switch c.SysClk {
	case SysClkHSE:
		cfg.System = core.HSE(c.Divider)
	case SysClkPLL:
		cfg.System = core.PLL(c.Divider)
	default:
		cfg.System = core.Clock32K()
	}
	return cfg
}

// Levels returns the PFIC priority variant.
func (c *BoardConfig) Levels() core.PriorityLevels {
	return core.PriorityLevels(c.PriorityLevels)
}

// Priority returns the SysTick interrupt priority.
func (c *BoardConfig) Priority() core.Priority {
	return core.Priority(*c.SysTickPriority)
}

// TraceEnabled reports whether the trace ring records events.
func (c *BoardConfig) TraceEnabled() bool {
	return c.Trace == nil || *c.Trace
}

// DefaultConfig returns the profile used when none is supplied: internal
// low-speed oscillator, PLL/6 (80 MHz), SysTick at the lowest priority.
func DefaultConfig() *BoardConfig {
	config := &BoardConfig{}
	applyDefaults(config)
	return config
}
