package serialcomm

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

var errEmptyEndpoint = errors.New("endpoint name is empty")

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) func(s *Session) {
	return func(s *Session) {
		s.logger = logger.With(slog.String("component", "serialcomm"))
	}
}

// WithOpener replaces the function used to open ports
func WithOpener(opener Opener) func(s *Session) {
	return func(s *Session) {
		s.opener = opener
	}
}

// WithLister replaces the host port enumeration
func WithLister(lister Lister) func(s *Session) {
	return func(s *Session) {
		s.lister = lister
	}
}

// WithFraming selects how payloads are wrapped before chunking
func WithFraming(framing Framing) func(s *Session) {
	return func(s *Session) {
		s.framing = framing
	}
}

// WithChunkSize lowers the chunk size, values outside 1..MaxChunkSize are clamped
func WithChunkSize(size int) func(s *Session) {
	return func(s *Session) {
		s.chunkSize = min(max(size, 1), MaxChunkSize)
	}
}

// WithChunkDelay inserts a pause between consecutive chunks
func WithChunkDelay(delay time.Duration) func(s *Session) {
	return func(s *Session) {
		s.chunkDelay = delay
	}
}

// Session owns at most one open connection to the AWG.
//
// A Session is driven from a single goroutine and is not safe for concurrent use.
type Session struct {
	opener     Opener
	lister     Lister
	framing    Framing
	chunkSize  int
	chunkDelay time.Duration
	logger     *slog.Logger

	port     Port
	endpoint string
}

// NewSession creates a disconnected session with a discard logger
func NewSession(options ...func(s *Session)) *Session {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := Session{
		opener:    OpenPort,
		lister:    HostPorts,
		framing:   FramingRaw,
		chunkSize: MaxChunkSize,
		logger:    logger,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Endpoints lists the host serial ports. The host is queried when iteration starts.
// When no port is found, or the query fails, the sequence holds only NoEndpoints.
func (s *Session) Endpoints() iter.Seq[Endpoint] {
	return func(yield func(Endpoint) bool) {
		names, err := s.lister()
		if err != nil {
			s.logger.Warn(fmt.Sprintf("listing serial ports: %s", err.Error()))
		}
		if err != nil || len(names) == 0 {
			yield(NoEndpoints)
			return
		}

		for _, name := range names {
			if !yield(Endpoint{Name: name}) {
				return
			}
		}
	}
}

// Connect opens the named port, releasing any connection held before
func (s *Session) Connect(name string) error {
	if s.port != nil {
		if err := s.Disconnect(); err != nil {
			s.logger.Warn(err.Error())
		}
	}

	switch name {
	case "":
		return &ConnectError{Endpoint: name, Err: errEmptyEndpoint}
	case NoEndpoints.Name:
		return &ConnectError{Endpoint: name, Err: ErrPlaceholderEndpoint}
	}

	port, err := s.opener(PortConfig(name))
	if err != nil {
		s.logger.Error("failed to establish connection to AWG", slog.String("port", name), slog.String("error", err.Error()))
		return &ConnectError{Endpoint: name, Err: err}
	}

	s.port = port
	s.endpoint = name
	s.logger.Info("connected to AWG", slog.String("port", name), slog.Int("baud", BaudRate))

	return nil
}

// Disconnect releases the open connection. It is a no-op when disconnected.
// The session is disconnected afterwards even when closing the port fails.
func (s *Session) Disconnect() error {
	if s.port == nil {
		return nil
	}

	port, name := s.port, s.endpoint
	s.port = nil
	s.endpoint = ""

	if err := port.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", name, err)
	}

	s.logger.Info("disconnected from AWG", slog.String("port", name))
	return nil
}

// Connected reports whether a connection is open
func (s *Session) Connected() bool {
	return s.port != nil
}

// Endpoint returns the name of the connected port, or "" when disconnected
func (s *Session) Endpoint() string {
	return s.endpoint
}

// Send encodes cmd and writes it to the AWG in chunks of at most the session chunk size.
// A failing chunk aborts the rest and is reported as a *TransportError carrying the bytes
// already written. Nothing is retried.
func (s *Session) Send(cmd Command) (int, error) {
	if s.port == nil {
		return 0, ErrNotConnected
	}

	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	payload, err := Encode(cmd)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("sending command", slog.String("command", cmd.Command), slog.String("payload", string(payload)))

	return s.write(frame(payload, s.framing))
}

func (s *Session) write(data []byte) (int, error) {
	var written int
	for i, chunk := range Chunks(data, s.chunkSize) {
		if i > 0 && s.chunkDelay > 0 {
			time.Sleep(s.chunkDelay)
		}

		n, err := s.port.Write(chunk)
		written += n
		if err == nil && n < len(chunk) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return written, &TransportError{Endpoint: s.endpoint, Chunk: i + 1, Written: written, Err: err}
		}

		s.logger.Debug(fmt.Sprintf("sent chunk %d: %d bytes", i+1, n), slog.String("chunk", string(chunk)))
	}

	s.logger.Info(fmt.Sprintf("sent %s to AWG", humanize.Bytes(uint64(written))), slog.String("port", s.endpoint))
	return written, nil
}
