package core

import "ch58xrt/protocol"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates DebugPrintln; the trace ring records regardless.
	debugEnabled bool

	traceRing    [TraceRingSize]protocol.Record
	traceHead    uint8 // Next write position
	traceSeq     uint32
	traceEnabled = true

	lineBuf [96]byte
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(string) {}
	}
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// SetTraceEnabled turns trace capture on or off.
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}

// RecordTrace captures an event in the ring buffer. Safe from interrupt
// context; never allocates.
func RecordTrace(evt protocol.Event, clock uint64, value1, value2 uint32) {
	if !traceEnabled {
		return
	}
	state := DisableInterrupts()
	traceSeq++
	traceRing[traceHead] = protocol.Record{
		Seq:    traceSeq,
		Event:  evt,
		Clock:  clock,
		Value1: value1,
		Value2: value2,
	}
	traceHead = (traceHead + 1) % TraceRingSize
	RestoreInterrupts(state)
}

// TraceRecords returns the buffered events, oldest first.
func TraceRecords() []protocol.Record {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)

	out := make([]protocol.Record, 0, TraceRingSize)
	for i := uint8(0); i < TraceRingSize; i++ {
		r := traceRing[(traceHead+i)%TraceRingSize]
		if r.Event == protocol.EvtNone {
			continue // Empty slot
		}
		out = append(out, r)
	}
	return out
}

// DumpTrace writes the ring, oldest first, as protocol trace lines. Call it
// from thread context; the writer may block on the UART.
func DumpTrace() {
	for _, r := range TraceRecords() {
		debugPrintln(string(protocol.AppendLine(lineBuf[:0], r)))
	}
}

// ClearTrace empties the ring and restarts sequence numbering.
func ClearTrace() {
	state := DisableInterrupts()
	for i := range traceRing {
		traceRing[i] = protocol.Record{}
	}
	traceHead = 0
	traceSeq = 0
	RestoreInterrupts(state)
}
