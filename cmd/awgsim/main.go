// awgsim stands in for the AWG on the far end of a serial link: it reassembles
// the chunked commands sent by awgremote and logs each one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"awgremote/internal/serialcomm"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var (
		portName  string
		framing   string
		maxLength int
		verbose   bool
	)
	flag.StringVar(&portName, "port", "", "Serial port to listen on (e.g. /dev/ttyUSB0 or COM7)")
	flag.StringVar(&framing, "framing", string(serialcomm.FramingRaw), "Payload framing. [raw, crc16]")
	flag.IntVar(&maxLength, "max-length", serialcomm.DefaultMaxLength, "Largest crc16 framed payload accepted")
	flag.BoolVar(&verbose, "v", false, "Enable more verbose output")
	flag.Parse()

	if verbose {
		logLevel.Set(slog.LevelDebug)
	}

	if portName == "" {
		flag.Usage()
		logger.Error("serial port is required")
		os.Exit(1)
	}

	f, err := serialcomm.ParseFraming(framing)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	port, err := serialcomm.OpenPort(serialcomm.PortConfig(portName))
	if err != nil {
		logger.Error(fmt.Sprintf("failed to open serial port: %s", err.Error()), slog.String("port", portName))
		os.Exit(1)
	}
	defer port.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	receiver := serialcomm.NewReceiver(port, serialcomm.ReceiverConfig{
		Framing:   f,
		MaxLength: maxLength,
		Logger:    logger,
	})

	logger.Info("listening for AWG commands", slog.String("port", portName), slog.String("framing", f.String()))
	err = receiver.Run(ctx, func(cmd serialcomm.Command) {
		logger.Info("received command",
			slog.String("command", cmd.Command),
			slog.Any("freq", cmd.Freq),
			slog.Any("buf_size", cmd.BufSize),
			slog.String("function", cmd.Wave.Function.String()),
			slog.Float64("amplitude", cmd.Wave.Amplitude),
			slog.Float64("offset", cmd.Wave.Offset),
			slog.Any("replicate", cmd.Wave.Replicate),
		)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err.Error())

		cancel()
		port.Close()
		os.Exit(1)
	}
}
