package serialcomm

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	// DefaultMaxLength bounds the payload length accepted from a crc16 length prefix
	DefaultMaxLength = 4096

	// DefaultIdleTimeout drops a partial command when the line stays quiet this long
	DefaultIdleTimeout = 5 * time.Second
)

var ErrChecksum = errors.New("crc16 mismatch")

// CommandHandler is called for every complete command read from the port
type CommandHandler func(cmd Command)

// ReceiverConfig controls how a Receiver reassembles commands
type ReceiverConfig struct {
	Framing     Framing
	MaxLength   int
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// Receiver reassembles chunked commands on the device side of the link
type Receiver struct {
	port   Port
	config ReceiverConfig
	buffer bytes.Buffer
	logger *slog.Logger
}

// NewReceiver creates a Receiver reading from port, zero config fields take their defaults
func NewReceiver(port Port, cfg ReceiverConfig) *Receiver {
	if cfg.Framing == "" {
		cfg.Framing = FramingRaw
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Receiver{
		port:   port,
		config: cfg,
		logger: logger.With(slog.String("component", "receiver")),
	}
}

// Run reads from the port until ctx is done or the port fails.
// Reads return after the port timeout, so cancellation is observed within IOTimeout.
func (r *Receiver) Run(ctx context.Context, handle CommandHandler) error {
	data := make([]byte, 1024)
	lastData := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.port.Read(data)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading port: %w", err)
		}
		if n == 0 {
			if time.Since(lastData) > r.config.IdleTimeout && r.buffer.Len() > 0 {
				r.logger.Warn("receive timed out, dropping partial command", slog.Int("buffered", r.buffer.Len()))
				r.buffer.Reset()
			}
			continue
		}

		lastData = time.Now()
		for _, cmd := range r.Feed(data[:n]) {
			handle(cmd)
		}
	}
}

// Feed appends data to the reassembly buffer and returns every command completed by it
func (r *Receiver) Feed(data []byte) []Command {
	r.buffer.Write(data)

	var commands []Command
	for {
		var (
			cmd Command
			ok  bool
			err error
		)
		if r.config.Framing == FramingCRC16 {
			cmd, ok, err = r.nextFramed()
		} else {
			cmd, ok, err = r.nextRaw()
		}

		if err != nil {
			r.logger.Warn(fmt.Sprintf("dropping received data: %s", err.Error()))
			r.buffer.Reset()
			return commands
		}
		if !ok {
			return commands
		}

		if err = cmd.Validate(); err != nil {
			r.logger.Warn(fmt.Sprintf("rejecting command: %s", err.Error()))
			continue
		}
		commands = append(commands, cmd)
	}
}

// Buffered returns the number of bytes waiting for the rest of a command
func (r *Receiver) Buffered() int {
	return r.buffer.Len()
}

func (r *Receiver) nextRaw() (Command, bool, error) {
	if len(bytes.TrimSpace(r.buffer.Bytes())) == 0 {
		r.buffer.Reset()
		return Command{}, false, nil
	}

	var cmd Command
	dec := json.NewDecoder(bytes.NewReader(r.buffer.Bytes()))
	if err := dec.Decode(&cmd); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Command{}, false, nil // wait for more chunks
		}
		return Command{}, false, fmt.Errorf("decoding command: %w", err)
	}

	r.buffer.Next(int(dec.InputOffset()))
	return cmd, true, nil
}

func (r *Receiver) nextFramed() (Command, bool, error) {
	buffered := r.buffer.Bytes()
	if len(buffered) < lengthPrefixSize {
		return Command{}, false, nil
	}

	length := binary.BigEndian.Uint32(buffered[:lengthPrefixSize])
	if length == 0 || length > uint32(r.config.MaxLength) {
		return Command{}, false, fmt.Errorf("invalid length prefix: %d", length)
	}

	total := lengthPrefixSize + int(length) + crcSize
	if len(buffered) < total {
		return Command{}, false, nil
	}

	packet := r.buffer.Next(total)
	payload := packet[lengthPrefixSize : lengthPrefixSize+int(length)]
	received := binary.BigEndian.Uint16(packet[lengthPrefixSize+int(length):])
	if calculated := calculateCRC16(payload); received != calculated {
		return Command{}, false, fmt.Errorf("%w: received %04x, calculated %04x", ErrChecksum, received, calculated)
	}

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, false, fmt.Errorf("decoding command: %w", err)
	}
	return cmd, true, nil
}
