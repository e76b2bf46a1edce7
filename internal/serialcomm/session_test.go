package serialcomm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"awgremote/internal/waveform"
)

func newTestSession(t *testing.T, host *fakeHost, options ...func(s *Session)) *Session {
	t.Helper()
	return NewSession(append([]func(s *Session){WithOpener(host.open)}, options...)...)
}

func setupCommand(t *testing.T, function string) Command {
	t.Helper()
	w := waveform.New()
	require.NoError(t, w.SetFunction(function))
	return NewSetupCommand(1000, 1024, w)
}

func TestChunks(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 20) // 200 bytes

	chunks := Chunks(data, MaxChunkSize)
	require.Len(t, chunks, 4)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), MaxChunkSize)
	}
	assert.Len(t, chunks[3], 8)
	assert.Equal(t, data, bytes.Join(chunks, nil))

	assert.Empty(t, Chunks(nil, MaxChunkSize))
	assert.Len(t, Chunks(data[:64], MaxChunkSize), 1)
	assert.Len(t, Chunks(data[:65], MaxChunkSize), 2)
}

func TestSession_Write200Bytes(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)
	require.NoError(t, s.Connect("/dev/ttyACM0"))

	data := bytes.Repeat([]byte("abcd"), 50)
	n, err := s.write(data)
	require.NoError(t, err)

	port := host.last()
	assert.Equal(t, 200, n)
	require.Len(t, port.writes, 4)
	for _, w := range port.writes {
		assert.LessOrEqual(t, len(w), MaxChunkSize)
	}
	assert.Equal(t, data, port.written())
}

func TestSession_Send(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)
	require.NoError(t, s.Connect("/dev/ttyACM0"))

	cmd := setupCommand(t, "Pulse")
	n, err := s.Send(cmd)
	require.NoError(t, err)

	payload, err := Encode(cmd)
	require.NoError(t, err)

	port := host.last()
	assert.Equal(t, len(payload), n)
	assert.Len(t, port.writes, (len(payload)+MaxChunkSize-1)/MaxChunkSize)
	for _, w := range port.writes {
		assert.LessOrEqual(t, len(w), MaxChunkSize)
	}
	assert.Equal(t, payload, port.written())
}

func TestSession_SendNotConnected(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)

	n, err := s.Send(setupCommand(t, "Sine"))
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, n)

	require.NoError(t, s.Connect("/dev/ttyACM0"))
	require.NoError(t, s.Disconnect())

	n, err = s.Send(setupCommand(t, "Sine"))
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, n)
	assert.Empty(t, host.last().writes)
}

func TestSession_SendTransportError(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)
	require.NoError(t, s.Connect("/dev/ttyACM0"))

	port := host.last()
	port.failAt = 2
	port.failAccept = 10

	n, err := s.Send(setupCommand(t, "Pulse"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errPortGone)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 2, transportErr.Chunk)
	assert.Equal(t, MaxChunkSize+10, transportErr.Written)
	assert.Equal(t, "/dev/ttyACM0", transportErr.Endpoint)
	assert.Equal(t, MaxChunkSize+10, n)

	// remaining chunks are not attempted
	assert.Len(t, port.writes, 2)
	assert.True(t, s.Connected())
}

func TestSession_SendInvalidBufSize(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)
	require.NoError(t, s.Connect("/dev/ttyACM0"))

	cmd := setupCommand(t, "Sine")
	cmd.BufSize = 1022

	n, err := s.Send(cmd)
	require.ErrorIs(t, err, ErrInvalidBufSize)
	assert.Zero(t, n)
	assert.Empty(t, host.last().writes)
}

func TestSession_SendCRC16Framing(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host, WithFraming(FramingCRC16))
	require.NoError(t, s.Connect("/dev/ttyACM0"))

	cmd := setupCommand(t, "Gaussian")
	n, err := s.Send(cmd)
	require.NoError(t, err)

	payload, err := Encode(cmd)
	require.NoError(t, err)

	written := host.last().written()
	require.Len(t, written, n)
	require.Equal(t, len(payload)+lengthPrefixSize+crcSize, n)
	assert.Equal(t, uint32(len(payload)), binary.BigEndian.Uint32(written[:4]))
	assert.Equal(t, payload, written[4:4+len(payload)])
	assert.Equal(t, calculateCRC16(payload), binary.BigEndian.Uint16(written[4+len(payload):]))
}

func TestSession_ChunkSizeOption(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host, WithChunkSize(16))
	require.NoError(t, s.Connect("/dev/ttyACM0"))

	_, err := s.write(make([]byte, 40))
	require.NoError(t, err)
	assert.Len(t, host.last().writes, 3)

	assert.Equal(t, MaxChunkSize, NewSession(WithChunkSize(1000)).chunkSize)
	assert.Equal(t, 1, NewSession(WithChunkSize(0)).chunkSize)
}

func TestSession_Connect(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)
	assert.False(t, s.Connected())

	require.NoError(t, s.Connect("/dev/ttyACM0"))
	assert.True(t, s.Connected())
	assert.Equal(t, "/dev/ttyACM0", s.Endpoint())

	cfg := host.configs[0]
	assert.Equal(t, "/dev/ttyACM0", cfg.Name)
	assert.Equal(t, BaudRate, cfg.Baud)
	assert.Equal(t, IOTimeout, cfg.ReadTimeout)
}

func TestSession_ConnectReleasesPrevious(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)

	require.NoError(t, s.Connect("/dev/ttyACM0"))
	require.NoError(t, s.Connect("/dev/ttyACM1"))

	require.Len(t, host.ports, 2)
	assert.True(t, host.ports[0].closed)
	assert.False(t, host.ports[1].closed)
	assert.Equal(t, "/dev/ttyACM1", s.Endpoint())

	_, err := s.Send(setupCommand(t, "Sinc"))
	require.NoError(t, err)
	assert.Empty(t, host.ports[0].writes)
	assert.NotEmpty(t, host.ports[1].writes)
}

func TestSession_ConnectError(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)
	require.NoError(t, s.Connect("/dev/ttyACM0"))

	host.openErr = errors.New("permission denied")
	err := s.Connect("/dev/ttyACM1")

	var connectErr *ConnectError
	require.ErrorAs(t, err, &connectErr)
	assert.Equal(t, "/dev/ttyACM1", connectErr.Endpoint)
	assert.ErrorIs(t, err, host.openErr)

	assert.False(t, s.Connected())
	assert.Empty(t, s.Endpoint())
	assert.True(t, host.ports[0].closed)
}

func TestSession_ConnectPlaceholder(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)

	err := s.Connect(NoEndpoints.Name)
	require.ErrorIs(t, err, ErrPlaceholderEndpoint)
	assert.False(t, s.Connected())
	assert.Empty(t, host.configs)

	var connectErr *ConnectError
	require.ErrorAs(t, s.Connect(""), &connectErr)
	assert.Empty(t, host.configs)
}

func TestSession_Disconnect(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)

	require.NoError(t, s.Disconnect())

	require.NoError(t, s.Connect("/dev/ttyACM0"))
	require.NoError(t, s.Disconnect())
	assert.False(t, s.Connected())
	assert.True(t, host.last().closed)

	require.NoError(t, s.Disconnect())
}

func TestSession_DisconnectCloseError(t *testing.T) {
	host := &fakeHost{}
	s := newTestSession(t, host)
	require.NoError(t, s.Connect("/dev/ttyACM0"))

	host.last().closeErr = errPortGone
	require.ErrorIs(t, s.Disconnect(), errPortGone)
	assert.False(t, s.Connected())
}

func TestSession_Endpoints(t *testing.T) {
	tests := []struct {
		name     string
		ports    []string
		err      error
		expected []Endpoint
	}{
		{
			name:     "ports",
			ports:    []string{"/dev/ttyACM0", "/dev/ttyUSB0"},
			expected: []Endpoint{{Name: "/dev/ttyACM0"}, {Name: "/dev/ttyUSB0"}},
		},
		{
			name:     "no ports",
			expected: []Endpoint{NoEndpoints},
		},
		{
			name:     "host error",
			err:      errors.New("sysfs unavailable"),
			expected: []Endpoint{NoEndpoints},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(WithLister(func() ([]string, error) {
				return tt.ports, tt.err
			}))

			endpoints := slices.Collect(s.Endpoints())
			assert.Equal(t, tt.expected, endpoints)
		})
	}
}

func TestSession_EndpointsLazy(t *testing.T) {
	var calls int
	s := NewSession(WithLister(func() ([]string, error) {
		calls++
		return []string{"COM3", "COM4", "COM5"}, nil
	}))

	seq := s.Endpoints()
	assert.Zero(t, calls)

	for endpoint := range seq {
		assert.True(t, endpoint.Actionable())
		break
	}
	assert.Equal(t, 1, calls)
	assert.False(t, NoEndpoints.Actionable())
}

func TestCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bufSize uint32
		err     error
	}{
		{"minimum", 32, nil},
		{"maximum", 65_536, nil},
		{"multiple of four", 1000, nil},
		{"too small", 28, ErrInvalidBufSize},
		{"too large", 65_540, ErrInvalidBufSize},
		{"not a multiple of four", 1026, ErrInvalidBufSize},
		{"zero", 0, ErrInvalidBufSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Command{Command: CommandSetup, BufSize: tt.bufSize}
			err := cmd.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}

	for _, size := range BufSizes {
		cmd := Command{Command: CommandSetup, BufSize: size}
		assert.NoError(t, cmd.Validate(), size)
	}

	cmd := Command{BufSize: 1024}
	assert.ErrorIs(t, cmd.Validate(), ErrEmptyCommand)
}

func TestEncode(t *testing.T) {
	data, err := Encode(setupCommand(t, "Sine"))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"command": "setup",
		"freq": 1000,
		"buf_size": 1024,
		"wave": {
			"function": "Sine",
			"amplitude": 0.48,
			"offset": 0.5,
			"shape_params": [null, null, null],
			"replicate": 1
		}
	}`, string(data))
	assert.NotContains(t, string(data), "\n")
}

func TestNewSetupCommand_Snapshot(t *testing.T) {
	w := waveform.New()
	require.NoError(t, w.SetFunction("Pulse"))

	cmd := NewSetupCommand(500, 256, w)
	w.SetAmplitude(0.1)
	*w.Params[0] = 0.2

	assert.Equal(t, 0.89, cmd.Wave.Amplitude)
	assert.Equal(t, 0.05, *cmd.Wave.Params[0])
}

func TestParseFraming(t *testing.T) {
	f, err := ParseFraming("")
	require.NoError(t, err)
	assert.Equal(t, FramingRaw, f)

	f, err = ParseFraming("crc16")
	require.NoError(t, err)
	assert.Equal(t, FramingCRC16, f)

	_, err = ParseFraming("cobs")
	assert.Error(t, err)
}
