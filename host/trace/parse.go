// Package trace decodes and summarizes the trace lines the firmware prints on
// its debug UART.
package trace

import (
	"strconv"
	"strings"

	"github.com/google/shlex"

	"ch58xrt/errcode"
	"ch58xrt/protocol"
)

// IsTraceLine reports whether line carries a trace record rather than free
// debug text.
func IsTraceLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), protocol.LinePrefix)
}

// ParseLine decodes one trace line and verifies its checksum.
func ParseLine(line string) (protocol.Record, error) {
	var rec protocol.Record

	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, protocol.LinePrefix) {
		return rec, errcode.New(errcode.InvalidLine, "trace", "missing "+protocol.LinePrefix+" prefix")
	}

	idx := strings.LastIndex(line, protocol.ChecksumField)
	if idx < 0 {
		return rec, errcode.New(errcode.InvalidLine, "trace", "missing checksum")
	}
	body := line[:idx]
	sum, err := strconv.ParseUint(line[idx+len(protocol.ChecksumField):], 16, 16)
	if err != nil {
		return rec, &errcode.E{C: errcode.InvalidLine, Op: "trace", Msg: "malformed checksum", Err: err}
	}
	if got := protocol.CRC16([]byte(body)); got != uint16(sum) {
		return rec, errcode.New(errcode.BadChecksum, "trace",
			"crc "+strconv.FormatUint(sum, 16)+" does not match "+strconv.FormatUint(uint64(got), 16))
	}

	fields, err := shlex.Split(body[len(protocol.LinePrefix):])
	if err != nil {
		return rec, &errcode.E{C: errcode.InvalidLine, Op: "trace", Msg: "tokenize", Err: err}
	}

	seen := 0
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return rec, errcode.New(errcode.InvalidLine, "trace", "field without value: "+f)
		}

		switch key {
		case "evt":
			evt, ok := protocol.ParseEvent(value)
			if !ok {
				return rec, errcode.New(errcode.UnknownEvent, "trace", value)
			}
			rec.Event = evt
		case "seq", "clock", "v1", "v2":
			bits := 32
			if key == "clock" {
				bits = 64
			}
			n, err := strconv.ParseUint(value, 10, bits)
			if err != nil {
				return rec, &errcode.E{C: errcode.InvalidLine, Op: "trace", Msg: "field " + key, Err: err}
			}
			switch key {
			case "seq":
				rec.Seq = uint32(n)
			case "clock":
				rec.Clock = n
			case "v1":
				rec.Value1 = uint32(n)
			case "v2":
				rec.Value2 = uint32(n)
			}
		default:
			// Newer firmware may append fields; they are covered by the
			// checksum but otherwise ignored.
			continue
		}
		seen++
	}

	if seen != 5 {
		return rec, errcode.New(errcode.InvalidLine, "trace", "expected seq, evt, clock, v1 and v2")
	}
	return rec, nil
}
