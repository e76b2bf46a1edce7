package serialcomm

import (
	"bytes"
	"errors"
	"io"

	"github.com/tarm/serial"
)

var errPortGone = errors.New("port gone")

// fakePort records writes and replays reads
type fakePort struct {
	name   string
	writes [][]byte
	reads  [][]byte
	closed bool

	// failAt makes the write with this 1-based index fail after accepting failAccept bytes
	failAt     int
	failAccept int
	closeErr   error
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.closed {
		return 0, errPortGone
	}
	if p.failAt > 0 && len(p.writes)+1 == p.failAt {
		p.writes = append(p.writes, bytes.Clone(b[:p.failAccept]))
		return p.failAccept, errPortGone
	}
	p.writes = append(p.writes, bytes.Clone(b))
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.reads) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.reads[0])
	p.reads = p.reads[1:]
	return n, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return p.closeErr
}

func (p *fakePort) Flush() error {
	return nil
}

func (p *fakePort) written() []byte {
	return bytes.Join(p.writes, nil)
}

// fakeHost hands out fakePorts and remembers every open
type fakeHost struct {
	ports   []*fakePort
	configs []*serial.Config
	openErr error
}

func (h *fakeHost) open(cfg *serial.Config) (Port, error) {
	h.configs = append(h.configs, cfg)
	if h.openErr != nil {
		return nil, h.openErr
	}
	p := &fakePort{name: cfg.Name}
	h.ports = append(h.ports, p)
	return p, nil
}

func (h *fakeHost) last() *fakePort {
	return h.ports[len(h.ports)-1]
}
