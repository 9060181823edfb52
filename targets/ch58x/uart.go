//go:build tinygo && ch58x

package main

import (
	"runtime/volatile"
	"unsafe"
)

// UART1 (TX on PA9) memory map
const (
	uart1Base = 0x40003400
	uart1IER  = uart1Base + 0x01
	uart1FCR  = uart1Base + 0x02
	uart1LCR  = uart1Base + 0x03
	uart1THR  = uart1Base + 0x08
	uart1TFC  = uart1Base + 0x0B // bytes waiting in the TX FIFO
	uart1DL   = uart1Base + 0x0C
	uart1DIV  = uart1Base + 0x0E

	paDir = 0x400010A0
	paOut = 0x400010A8

	pinTX = 1 << 9

	uartFIFOSize = 8

	fcrEnableClear = 0x80 | 0x04 | 0x02 | 0x01 // 4-byte trigger, clear both FIFOs, enable
	lcrWord8       = 0x03
	ierTXEnable    = 0x40
)

var (
	uartIER = (*volatile.Register8)(unsafe.Pointer(uintptr(uart1IER)))
	uartFCR = (*volatile.Register8)(unsafe.Pointer(uintptr(uart1FCR)))
	uartLCR = (*volatile.Register8)(unsafe.Pointer(uintptr(uart1LCR)))
	uartTHR = (*volatile.Register8)(unsafe.Pointer(uintptr(uart1THR)))
	uartTFC = (*volatile.Register8)(unsafe.Pointer(uintptr(uart1TFC)))
	uartDL  = (*volatile.Register16)(unsafe.Pointer(uintptr(uart1DL)))
	uartDIV = (*volatile.Register8)(unsafe.Pointer(uintptr(uart1DIV)))

	gpioADir = (*volatile.Register32)(unsafe.Pointer(uintptr(paDir)))
	gpioAOut = (*volatile.Register32)(unsafe.Pointer(uintptr(paOut)))

	debugEnabled bool
)

// InitDebugUART brings up UART1 8N1 at baud for a core running at fsys.
func InitDebugUART(fsys, baud uint32) {
	if baud == 0 {
		return
	}

	// TX idles high before the pin becomes an output.
	gpioAOut.SetBits(pinTX)
	gpioADir.SetBits(pinTX)

	// Rounded fsys/8/baud, computed in tenths.
	x := 10 * fsys / 8 / baud
	uartDL.Set(uint16((x + 5) / 10))
	uartFCR.Set(fcrEnableClear)
	uartLCR.Set(lcrWord8)
	uartIER.Set(ierTXEnable)
	uartDIV.Set(1)

	debugEnabled = true
}

// DebugPrint writes a string to the debug UART (no newline)
func DebugPrint(s string) {
	if !debugEnabled {
		return
	}
	for i := 0; i < len(s); i++ {
		for uartTFC.Get() >= uartFIFOSize {
		}
		uartTHR.Set(s[i])
	}
}

// DebugPrintln writes a string to the debug UART with newline
func DebugPrintln(s string) {
	DebugPrint(s)
	DebugPrint("\r\n")
}
