package trace

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"ch58xrt/protocol"
)

// Summary accumulates statistics over a stream of trace records.
type Summary struct {
	Records    int
	BadLines   int
	Missed     int // sequence numbers skipped between consecutive records
	Restarts   int // sequence went backwards: ring cleared or board reset
	Counts     map[protocol.Event]int
	MaxRetry   uint32 // worst ALARM_ARMED retry count
	CntPerTick uint32

	lastSeq uint32
	started bool
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{Counts: make(map[protocol.Event]int)}
}

// Add folds one record into the summary.
func (s *Summary) Add(r protocol.Record) {
	s.Records++
	s.Counts[r.Event]++

	if s.started {
		switch {
		case r.Seq <= s.lastSeq:
			s.Restarts++
		case r.Seq > s.lastSeq+1:
			s.Missed += int(r.Seq - s.lastSeq - 1)
		}
	}
	s.lastSeq = r.Seq
	s.started = true

	switch r.Event {
	case protocol.EvtAlarmArmed:
		if r.Value1 > s.MaxRetry {
			s.MaxRetry = r.Value1
		}
	case protocol.EvtCounterArmed:
		s.CntPerTick = r.Value1
	}
}

// AddBad counts a line that failed to decode.
func (s *Summary) AddBad() { s.BadLines++ }

// Print writes a human readable report.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Trace summary: %d records, %d bad lines, %d missed, %d restarts\n",
		s.Records, s.BadLines, s.Missed, s.Restarts)
	if s.CntPerTick != 0 {
		fmt.Fprintf(w, "  counter units per tick: %d\n", s.CntPerTick)
	}
	for _, evt := range slices.Sorted(maps.Keys(s.Counts)) {
		fmt.Fprintf(w, "  %-14s %d\n", evt.String(), s.Counts[evt])
	}
	fmt.Fprintf(w, "  worst arming retries: %d\n", s.MaxRetry)
}
