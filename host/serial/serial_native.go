//go:build !wasm

package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// uartPort is a live USB-UART adapter. tarm/serial already provides Read,
// Write, Close and Flush.
type uartPort struct {
	*serial.Port
	device string
}

// Open opens the adapter described by cfg, 8N1.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d for %s", cfg.Baud, cfg.Device)
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return &uartPort{Port: port, device: cfg.Device}, nil
}

func (p *uartPort) String() string { return p.device }
