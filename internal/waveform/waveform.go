// Package waveform holds the description of the signal the AWG should generate
// and the per-function defaults applied when the operator switches shapes.
package waveform

import (
	"fmt"
	"math"
)

const (
	// ReplicateForever asks the device to run the pattern as a non-repeating single shot
	ReplicateForever = -1

	// DefaultReplicate is the repeat count of a new Waveform
	DefaultReplicate = 1
)

// Params are up to three function-specific timing parameters, nil marks an unused slot
type Params [3]*float64

// Param returns a pointer to v for use in Params literals
func Param(v float64) *float64 {
	return &v
}

// Clone returns a copy that shares no pointers with p
func (p Params) Clone() Params {
	var c Params
	for i, v := range p {
		if v != nil {
			c[i] = Param(*v)
		}
	}
	return c
}

// Waveform is the mutable signal description edited by the operator
type Waveform struct {
	Function  Function `json:"function"`
	Amplitude float64  `json:"amplitude"`
	Offset    float64  `json:"offset"`
	Params    Params   `json:"shape_params"`
	Replicate int32    `json:"replicate"`
}

// New returns a Waveform with no function selected
func New() *Waveform {
	return &Waveform{
		Replicate: DefaultReplicate,
	}
}

// SetFunction switches to the named function and applies its defaults.
// Selecting the current function again leaves every field untouched.
func (w *Waveform) SetFunction(name string) error {
	f, err := ParseFunction(name)
	if err != nil {
		return err
	}

	if f == w.Function {
		return nil
	}

	w.Function = f
	w.Amplitude = f.DefaultAmplitude()
	w.Offset = f.DefaultOffset()
	w.Params = f.InitialParams()

	switch {
	case f == Exponential:
		w.Replicate = ReplicateForever
	case w.Replicate == ReplicateForever:
		w.Replicate = DefaultReplicate
	}

	return nil
}

// SetParams overwrites the timing parameters
func (w *Waveform) SetParams(params Params) error {
	for i, v := range params {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%w: slot %d is %v", ErrNonFinite, i, *v)
		}
	}

	w.Params = params.Clone()
	return nil
}

func (w *Waveform) SetAmplitude(v float64) {
	w.Amplitude = v
}

func (w *Waveform) SetOffset(v float64) {
	w.Offset = v
}

func (w *Waveform) SetReplicate(n int32) {
	w.Replicate = n
}

// Snapshot returns a detached copy of the current state
func (w *Waveform) Snapshot() Waveform {
	s := *w
	s.Params = w.Params.Clone()
	return s
}
