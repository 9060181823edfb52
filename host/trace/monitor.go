package trace

import (
	"bufio"
	"context"
	"fmt"
	"sync"

	"ch58xrt/host/serial"
	"ch58xrt/protocol"
)

// Monitor reads the firmware's debug UART and decodes trace lines as they
// arrive.
type Monitor struct {
	port    serial.Port
	summary *Summary

	closeOnce sync.Once
	closeErr  error

	// OnRecord is called for every decoded trace record.
	OnRecord func(protocol.Record)
	// OnText is called for every non-trace line ("[CLK] ...", "[TIME] ...").
	OnText func(string)
	// OnError is called for trace lines that fail to decode.
	OnError func(line string, err error)
}

// NewMonitor creates a monitor on an already open port.
func NewMonitor(port serial.Port) *Monitor {
	return &Monitor{
		port:    port,
		summary: NewSummary(),
	}
}

// Connect opens device and returns a monitor reading from it.
func Connect(device string, baud int) (*Monitor, error) {
	cfg := serial.DefaultConfig(device)
	if baud != 0 {
		cfg.Baud = baud
	}
	return ConnectWithConfig(cfg)
}

// ConnectWithConfig opens a port with a custom serial config.
func ConnectWithConfig(cfg *serial.Config) (*Monitor, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush serial port: %w", err)
	}
	return NewMonitor(port), nil
}

// Summary returns the statistics gathered so far.
func (m *Monitor) Summary() *Summary { return m.summary }

// Close closes the underlying port. Later calls, including the one Run makes
// on cancellation, return the first result.
func (m *Monitor) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.port.Close()
	})
	return m.closeErr
}

// Run reads lines until the port reaches EOF, fails, or ctx is cancelled.
// Cancellation closes the port to unblock the pending read.
func (m *Monitor) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(m.port)
	for scanner.Scan() {
		m.handleLine(scanner.Text())
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return scanner.Err()
}

func (m *Monitor) handleLine(line string) {
	if !IsTraceLine(line) {
		if m.OnText != nil && line != "" {
			m.OnText(line)
		}
		return
	}

	rec, err := ParseLine(line)
	if err != nil {
		m.summary.AddBad()
		if m.OnError != nil {
			m.OnError(line, err)
		}
		return
	}

	m.summary.Add(rec)
	if m.OnRecord != nil {
		m.OnRecord(rec)
	}
}
