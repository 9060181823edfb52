package core

// TickHz is the rate of the tick returned by TimeDriver.Now. The counter runs
// at HCLK, so any system clock the tree can select (32 kHz and up) yields at
// least one counter unit per tick.
const TickHz = 32_000

// TickRatio returns the whole counter units per tick at system clock fsys,
// or 0 if the clock is too slow to drive the tick.
func TickRatio(fsys uint32) uint32 {
	return fsys / TickHz
}

// TicksFromMicros converts microseconds to ticks, rounding down.
func TicksFromMicros(us uint64) uint64 {
	return us * TickHz / 1_000_000
}

// TicksFromMillis converts milliseconds to ticks.
func TicksFromMillis(ms uint64) uint64 {
	return ms * (TickHz / 1000)
}

// TicksToMicros converts ticks to microseconds.
func TicksToMicros(ticks uint64) uint64 {
	return ticks * 1_000_000 / TickHz
}
