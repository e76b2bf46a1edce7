package serialcomm

import (
	"errors"
	"fmt"

	"awgremote/internal/waveform"
)

const (
	CommandSetup = "setup"

	MinBufSize = 32
	MaxBufSize = 65_536
)

// BufSizes are the sample buffer sizes offered by the firmware
var BufSizes = []uint32{32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16_384, 32_768, 65_536}

var (
	ErrInvalidBufSize = errors.New("invalid buffer size")
	ErrEmptyCommand   = errors.New("empty command tag")
)

// Command is the request sent to the AWG
type Command struct {
	Command string            `json:"command"`
	Freq    uint32            `json:"freq"`
	BufSize uint32            `json:"buf_size"`
	Wave    waveform.Waveform `json:"wave"`
}

// NewSetupCommand builds a setup request from a snapshot of w
func NewSetupCommand(freq, bufSize uint32, w *waveform.Waveform) Command {
	return Command{
		Command: CommandSetup,
		Freq:    freq,
		BufSize: bufSize,
		Wave:    w.Snapshot(),
	}
}

func (c *Command) Validate() error {
	if c.Command == "" {
		return ErrEmptyCommand
	}
	if c.BufSize < MinBufSize || c.BufSize > MaxBufSize || c.BufSize%4 != 0 {
		return fmt.Errorf("%w: %d, must be a multiple of 4 between %d and %d", ErrInvalidBufSize, c.BufSize, MinBufSize, MaxBufSize)
	}
	return nil
}

// NoEndpoints stands in for the port list when the host reports none.
// It cannot be connected to.
var NoEndpoints = Endpoint{Name: "No ports found", Placeholder: true}

// Endpoint is a serial port the host can open
type Endpoint struct {
	Name        string
	Placeholder bool
}

// Actionable reports whether the endpoint names a real port
func (e Endpoint) Actionable() bool {
	return !e.Placeholder
}

func (e Endpoint) String() string {
	return e.Name
}
