package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ch58xrt/host/serial"
	"ch58xrt/host/trace"
	"ch58xrt/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate of the board's debug UART")
	file    = flag.String("file", "", "Decode a captured UART log instead of a live port")
	verbose = flag.Bool("verbose", false, "Print every decoded record and debug line")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		mon *trace.Monitor
		err error
	)
	if *file != "" {
		var port serial.Port
		port, err = serial.OpenFile(*file)
		if err == nil {
			mon = trace.NewMonitor(port)
		}
	} else {
		fmt.Printf("Listening on %s at %d baud (Ctrl-C to stop)...\n", *device, *baud)
		mon, err = trace.Connect(*device, *baud)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer mon.Close()

	mon.OnError = func(line string, err error) {
		fmt.Fprintf(os.Stderr, "bad trace line %q: %v\n", line, err)
	}
	if *verbose {
		mon.OnText = func(s string) { fmt.Println(s) }
		mon.OnRecord = printRecord
	}

	err = mon.Run(ctx)
	mon.Summary().Print(os.Stdout)
	if err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Error reading trace: %v\n", err)
		os.Exit(1)
	}
}

func printRecord(r protocol.Record) {
	switch r.Event {
	case protocol.EvtCounterArmed:
		fmt.Printf("#%d counter armed: %d units/tick, %d Hz\n", r.Seq, r.Value1, r.Value2)
	case protocol.EvtClockSwitch:
		fmt.Printf("#%d clock switch: mode %d div %d -> %d Hz\n", r.Seq, r.Value1>>8, r.Value1&0xFF, r.Value2)
	case protocol.EvtAlarmArmed:
		fmt.Printf("#%d alarm armed at %d after %d retries\n", r.Seq, r.Clock, r.Value1)
	case protocol.EvtWakeFired:
		fmt.Printf("#%d %d wake(s) fired at %d\n", r.Seq, r.Value1, r.Clock)
	default:
		fmt.Printf("#%d %s clock=%d v1=%d v2=%d\n", r.Seq, r.Event, r.Clock, r.Value1, r.Value2)
	}
}
