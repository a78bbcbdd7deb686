package biquad

import (
	"math"
	"math/cmplx"
)

// Coefficients of H(z) = (B0 + B1 z^-1 + B2 z^-2) / (1 + A1 z^-1 + A2 z^-2).
// A first-order section leaves B2 and A2 at zero.
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// DCGain is H(1). A pole at z = 1 reports 0.
func (c Coefficients) DCGain() float64 {
	if den := 1 + c.A1 + c.A2; den != 0 {
		return (c.B0 + c.B1 + c.B2) / den
	}
	return 0
}

// MagnitudeDB is 20*log10|H| at freq Hz.
func (c Coefficients) MagnitudeDB(freq, sampleRate float64) float64 {
	z := cmplx.Exp(complex(0, -2*math.Pi*freq/sampleRate))
	num := complex(c.B0, 0) + z*(complex(c.B1, 0)+z*complex(c.B2, 0))
	den := 1 + z*(complex(c.A1, 0)+z*complex(c.A2, 0))

	return 20 * math.Log10(cmplx.Abs(num/den))
}

// Section filters with [Coefficients] in transposed direct form II, which
// keeps two state values and behaves well in float64.
type Section struct {
	Coefficients

	z [2]float64
}

// NewSection returns a zero-state section.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

func (s *Section) step(x float64) float64 {
	y := s.B0*x + s.z[0]
	s.z[0] = s.B1*x - s.A1*y + s.z[1]
	s.z[1] = s.B2*x - s.A2*y
	return y
}

// ProcessSample filters x.
func (s *Section) ProcessSample(x float64) float64 { return s.step(x) }

// ProcessBlock filters buf in place.
func (s *Section) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = s.step(x)
	}
}

// Reset zeroes the state.
func (s *Section) Reset() { s.z = [2]float64{} }

// State returns a copy of the two state values.
func (s *Section) State() [2]float64 { return s.z }

// Prime sets the state a constant input x settles into and returns the
// matching output DCGain()*x.
func (s *Section) Prime(x float64) float64 {
	y := s.DCGain() * x
	s.z[1] = s.B2*x - s.A2*y
	s.z[0] = s.B1*x - s.A1*y + s.z[1]
	return y
}
