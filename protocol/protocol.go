// Package protocol defines the trace line format the firmware prints on its
// debug UART and the host tooling decodes.
//
// A line looks like
//
//	[TRACE] seq=7 evt=ALARM_ARMED clock=150000 v1=0 v2=0 crc=3FA1
//
// where crc is CRC16 over every byte before " crc=". Encoding is fmt-free so
// it can run inside interrupt-adjacent firmware code.
package protocol

// LinePrefix starts every trace line.
const LinePrefix = "[TRACE]"

// ChecksumField separates the checksummed text from the checksum.
const ChecksumField = " crc="

// Event identifies what a trace record describes.
type Event uint8

const (
	EvtNone Event = iota
	// EvtCounterArmed: v1 = counter units per tick, v2 = counter frequency.
	EvtCounterArmed
	// EvtWakeScheduled: clock = deadline in counter units, v1 = 1 if the
	// compare register was re-armed.
	EvtWakeScheduled
	// EvtAlarmArmed: clock = value written to the compare register,
	// v1 = stale retries before it stuck.
	EvtAlarmArmed
	// EvtAlarmStale: clock = deadline, v1 = 0 if caught before the compare
	// write, 1 if caught by the re-check after it.
	EvtAlarmStale
	// EvtAlarmIdle: no pending wake, compare interrupt disarmed.
	EvtAlarmIdle
	// EvtWakeFired: clock = counter value, v1 = number of wakes fired.
	EvtWakeFired
	// EvtClockSwitch: v1 = mode<<8 | divider, v2 = resulting frequency.
	EvtClockSwitch
	// EvtLowSpeedSwitch: v1 = 1 for the external crystal.
	EvtLowSpeedSwitch

	numEvents
)

var eventNames = [numEvents]string{
	EvtNone:           "NONE",
	EvtCounterArmed:   "COUNTER_ARMED",
	EvtWakeScheduled:  "WAKE_SCHED",
	EvtAlarmArmed:     "ALARM_ARMED",
	EvtAlarmStale:     "ALARM_STALE",
	EvtAlarmIdle:      "ALARM_IDLE",
	EvtWakeFired:      "WAKE_FIRED",
	EvtClockSwitch:    "CLOCK_SWITCH",
	EvtLowSpeedSwitch: "LSE_SWITCH",
}

func (e Event) String() string {
	if e < numEvents {
		return eventNames[e]
	}
	return "UNKNOWN"
}

// ParseEvent maps a trace name back to its Event.
func ParseEvent(name string) (Event, bool) {
	for i, n := range eventNames {
		if n == name {
			return Event(i), true
		}
	}
	return EvtNone, false
}

// Record is one trace ring entry.
type Record struct {
	Seq    uint32
	Event  Event
	Clock  uint64
	Value1 uint32
	Value2 uint32
}

// AppendLine appends the text form of r, including its checksum, to dst.
func AppendLine(dst []byte, r Record) []byte {
	start := len(dst)
	dst = append(dst, LinePrefix...)
	dst = append(dst, " seq="...)
	dst = AppendUint(dst, uint64(r.Seq))
	dst = append(dst, " evt="...)
	dst = append(dst, r.Event.String()...)
	dst = append(dst, " clock="...)
	dst = AppendUint(dst, r.Clock)
	dst = append(dst, " v1="...)
	dst = AppendUint(dst, uint64(r.Value1))
	dst = append(dst, " v2="...)
	dst = AppendUint(dst, uint64(r.Value2))

	crc := CRC16(dst[start:])
	dst = append(dst, ChecksumField...)
	return AppendHex16(dst, crc)
}

// AppendUint appends the decimal form of n.
func AppendUint(dst []byte, n uint64) []byte {
	if n == 0 {
		return append(dst, '0')
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, buf[pos:]...)
}

const hexDigits = "0123456789ABCDEF"

// AppendHex16 appends v as exactly four upper-case hex digits.
func AppendHex16(dst []byte, v uint16) []byte {
	return append(dst,
		hexDigits[v>>12&0xF],
		hexDigits[v>>8&0xF],
		hexDigits[v>>4&0xF],
		hexDigits[v&0xF],
	)
}
