package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"awgremote/internal/config"
	"awgremote/internal/serialcomm"
	"awgremote/internal/waveform"
)

var ErrUsage = errors.New("usage: awgremote [-c config] <list|setup> [flags]")

// Run executes the subcommand named by args[0]
func Run(cfg *config.Config, logger *slog.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}

	session := NewSession(cfg, logger)
	switch args[0] {
	case "list":
		return List(session, out)
	case "setup":
		req, err := ParseSetupArgs(cfg, args[1:])
		if err != nil {
			return err
		}
		return Setup(session, req, out)
	default:
		return fmt.Errorf("unknown command '%s': %w", args[0], ErrUsage)
	}
}

// NewSession creates a transport session configured from cfg
func NewSession(cfg *config.Config, logger *slog.Logger, options ...func(s *serialcomm.Session)) *serialcomm.Session {
	base := []func(s *serialcomm.Session){
		serialcomm.WithLogger(logger),
		serialcomm.WithFraming(cfg.Framing()),
		serialcomm.WithChunkDelay(time.Duration(cfg.Serial.ChunkDelay)),
	}
	return serialcomm.NewSession(append(base, options...)...)
}

// List prints the serial endpoints found on the host
func List(session *serialcomm.Session, out io.Writer) error {
	for endpoint := range session.Endpoints() {
		if !endpoint.Actionable() {
			if _, err := fmt.Fprintf(out, "(%s)\n", endpoint); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintln(out, endpoint); err != nil {
			return err
		}
	}
	return nil
}

// SetupRequest describes one setup command as entered by the operator
type SetupRequest struct {
	Port      string
	Function  string
	Amplitude *float64
	Offset    *float64
	Params    *waveform.Params
	Replicate *int32
	Frequency uint32
	BufSize   uint32
}

// ParseSetupArgs reads the setup flags, falling back to cfg for port, frequency and buffer size
func ParseSetupArgs(cfg *config.Config, args []string) (*SetupRequest, error) {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)

	var (
		req                SetupRequest
		amplitude, offset  float64
		params             string
		replicate          int
		frequency, bufSize uint
		functionNames      []string
	)
	for _, f := range waveform.Functions() {
		functionNames = append(functionNames, f.String())
	}

	fs.StringVar(&req.Port, "port", cfg.Serial.Port, "Serial port of the AWG")
	fs.StringVar(&req.Function, "func", "", fmt.Sprintf("Waveform function. [%s]", strings.Join(functionNames, ", ")))
	fs.Float64Var(&amplitude, "amp", 0, "Amplitude, overrides the function default")
	fs.Float64Var(&offset, "offset", 0, "Offset, overrides the function default")
	fs.StringVar(&params, "params", "", "Comma separated timing parameters, empty slots allowed (e.g. 0.1,,)")
	fs.IntVar(&replicate, "replicate", 0, "Repeat count, -1 for a single shot")
	fs.UintVar(&frequency, "freq", uint(cfg.Setup.Frequency), "Frequency in Hz")
	fs.UintVar(&bufSize, "bufsize", uint(cfg.Setup.BufSize), "Sample buffer size, multiple of 4 between 32 and 65536")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "amp":
			req.Amplitude = &amplitude
		case "offset":
			req.Offset = &offset
		case "replicate":
			r := int32(replicate)
			req.Replicate = &r
		case "params":
			var p waveform.Params
			if p, err = ParseParams(params); err == nil {
				req.Params = &p
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if req.Port == "" {
		return nil, errors.New("serial port is required")
	}
	if req.Function == "" {
		return nil, errors.New("waveform function is required")
	}
	if frequency > uint(^uint32(0)) || bufSize > uint(^uint32(0)) {
		return nil, errors.New("frequency and buffer size must fit in 32 bits")
	}

	req.Frequency = uint32(frequency)
	req.BufSize = uint32(bufSize)
	return &req, nil
}

// ParseParams parses up to three comma separated values, an empty field leaves its slot unset
func ParseParams(s string) (waveform.Params, error) {
	var params waveform.Params

	fields := strings.Split(s, ",")
	if len(fields) > len(params) {
		return params, fmt.Errorf("at most %d parameters allowed, %d given", len(params), len(fields))
	}

	for i, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return params, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		params[i] = waveform.Param(v)
	}

	return params, nil
}

// BuildWaveform applies the operator's choices the same way the control panel does:
// function defaults first, then explicit overrides.
func BuildWaveform(req *SetupRequest) (*waveform.Waveform, error) {
	w := waveform.New()
	if err := w.SetFunction(req.Function); err != nil {
		return nil, err
	}

	if req.Amplitude != nil {
		w.SetAmplitude(*req.Amplitude)
	}
	if req.Offset != nil {
		w.SetOffset(*req.Offset)
	}
	if req.Params != nil {
		if err := w.SetParams(*req.Params); err != nil {
			return nil, err
		}
	}
	if req.Replicate != nil {
		w.SetReplicate(*req.Replicate)
	}

	return w, nil
}

// Setup connects to the AWG, sends one setup command and disconnects
func Setup(session *serialcomm.Session, req *SetupRequest, out io.Writer) (err error) {
	w, err := BuildWaveform(req)
	if err != nil {
		return err
	}

	cmd := serialcomm.NewSetupCommand(req.Frequency, req.BufSize, w)
	if err = cmd.Validate(); err != nil {
		return err
	}

	if err = session.Connect(req.Port); err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Disconnect(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	n, err := session.Send(cmd)
	if err != nil {
		var transportErr *serialcomm.TransportError
		if errors.As(err, &transportErr) {
			return fmt.Errorf("sending setup (%s written): %w", humanize.Bytes(uint64(n)), err)
		}
		return fmt.Errorf("sending setup: %w", err)
	}

	_, err = fmt.Fprintf(out, "%s: %s %s at %d Hz, buffer %d (%s sent)\n",
		session.Endpoint(), cmd.Command, w.Function, cmd.Freq, cmd.BufSize, humanize.Bytes(uint64(n)))
	return err
}
