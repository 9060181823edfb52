package serial

import (
	"io"
	"os"
)

// Port represents a serial port interface
// Implementations:
// - Native serial (using github.com/tarm/serial)
// - Capture file replay (OpenFile)
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the board's debug UART
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration matching the firmware's UART1
// default (115200 8N1).
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 0,
	}
}

// filePort replays a captured UART log.
type filePort struct {
	*os.File
}

// OpenFile opens a capture of the debug UART as a read-only Port.
func OpenFile(path string) (Port, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return filePort{f}, nil
}

func (filePort) Flush() error { return nil }
