// Package serialcomm delivers AWG commands over a serial link.
//
// The Pico firmware reads commands into a 64 byte receive buffer, so every
// payload is written as a sequence of chunks no larger than MaxChunkSize.
package serialcomm

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const (
	BaudRate     = 115_200
	IOTimeout    = 100 * time.Millisecond
	MaxChunkSize = 64

	// FramingRaw writes the JSON text as is, which is what the AWG firmware expects
	FramingRaw Framing = "raw"
	// FramingCRC16 wraps the JSON text in a big endian length prefix and a CRC16/MODBUS trailer
	FramingCRC16 Framing = "crc16"
)

var validFramings = map[Framing]struct{}{
	FramingRaw:   {},
	FramingCRC16: {},
}

type Framing string

func (f Framing) String() string {
	return string(f)
}

// ParseFraming resolves a framing name, an empty name selects FramingRaw
func ParseFraming(name string) (Framing, error) {
	if name == "" {
		return FramingRaw, nil
	}
	if _, ok := validFramings[Framing(name)]; !ok {
		return "", fmt.Errorf("serialcomm: invalid framing: %s", name)
	}
	return Framing(name), nil
}

// Port is an open serial connection. *serial.Port satisfies it.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Opener opens the port described by cfg
type Opener func(cfg *serial.Config) (Port, error)

// Lister returns the names of the serial ports present on the host
type Lister func() ([]string, error)

// PortConfig returns the link settings used for the named port
func PortConfig(name string) *serial.Config {
	return &serial.Config{
		Name:        name,
		Baud:        BaudRate,
		ReadTimeout: IOTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
}

// OpenPort opens a host serial port through tarm/serial
func OpenPort(cfg *serial.Config) (Port, error) {
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return port, nil
}
