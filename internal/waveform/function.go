package waveform

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// None is the function-less state a new Waveform starts in
	None Function = iota
	Sine
	Pulse
	Gaussian
	Sinc
	Exponential
)

var (
	// ErrInvalidFunction is returned for a function tag outside the supported set
	ErrInvalidFunction = errors.New("invalid waveform function")

	// ErrNonFinite is returned when a shape parameter is NaN or infinite
	ErrNonFinite = errors.New("non-finite shape parameter")
)

// Function identifies the shape the generator produces
type Function uint8

type shapeDefault struct {
	name      string
	amplitude float64
	offset    float64
	params    [3]float64
	nParams   int
}

// Defaults keep the generated signal inside the DAC range for each shape.
var shapeDefaults = map[Function]shapeDefault{
	Sine:        {name: "Sine", amplitude: 0.48, offset: 0.5},
	Pulse:       {name: "Pulse", amplitude: 0.89, offset: 0, params: [3]float64{0.05, 0.45, 0.05}, nParams: 3},
	Gaussian:    {name: "Gaussian", amplitude: 0.55, offset: 0, params: [3]float64{0.095}, nParams: 1},
	Sinc:        {name: "Sinc", amplitude: 0.5, offset: 0.5, params: [3]float64{0.029}, nParams: 1},
	Exponential: {name: "Exponential", amplitude: 0.5, offset: 0, params: [3]float64{0.08}, nParams: 1},
}

// Functions lists the supported functions in the order they are offered to the operator
func Functions() []Function {
	return []Function{Sine, Pulse, Gaussian, Sinc, Exponential}
}

// ParseFunction resolves a tag such as "Pulse" to its Function
func ParseFunction(name string) (Function, error) {
	for f, d := range shapeDefaults {
		if d.name == name {
			return f, nil
		}
	}

	return None, fmt.Errorf("%w: %q", ErrInvalidFunction, name)
}

func (f Function) String() string {
	if d, ok := shapeDefaults[f]; ok {
		return d.name
	}
	return ""
}

// Valid reports whether f is one of the supported functions
func (f Function) Valid() bool {
	_, ok := shapeDefaults[f]
	return ok
}

// DefaultAmplitude is the amplitude applied when switching to f
func (f Function) DefaultAmplitude() float64 {
	return shapeDefaults[f].amplitude
}

// DefaultOffset is the offset applied when switching to f
func (f Function) DefaultOffset() float64 {
	return shapeDefaults[f].offset
}

// InitialParams returns a fresh copy of the timing parameters applied when switching to f.
//
//	Pulse:       rise, high, fall time
//	Gaussian:    width
//	Sinc:        width
//	Exponential: decay time
func (f Function) InitialParams() Params {
	var p Params
	d := shapeDefaults[f]
	for i := 0; i < d.nParams; i++ {
		p[i] = Param(d.params[i])
	}
	return p
}

func (f Function) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Function) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	if v == "" {
		*f = None
		return nil
	}

	parsed, err := ParseFunction(v)
	if err != nil {
		return err
	}

	*f = parsed
	return nil
}
