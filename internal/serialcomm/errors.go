package serialcomm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when sending without an open connection
	ErrNotConnected = errors.New("not connected")

	// ErrPlaceholderEndpoint is returned when connecting to the NoEndpoints sentinel
	ErrPlaceholderEndpoint = errors.New("placeholder endpoint")
)

// ConnectError reports a port that could not be opened. The session stays disconnected.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %q: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// TransportError reports a write that failed part way through a command.
// Written counts the bytes accepted by the port before the failing chunk returned.
type TransportError struct {
	Endpoint string
	Chunk    int
	Written  int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("writing chunk %d to %q failed after %d bytes: %v", e.Chunk, e.Endpoint, e.Written, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
