package biquad

// Chain runs a signal through several sections in series, after an input
// gain. Butterworth designs of order n become a Chain of ceil(n/2) sections.
type Chain struct {
	stages []Section
	gain   float64
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithGain scales the input of the cascade by g. The default is 1.
func WithGain(g float64) ChainOption {
	return func(c *Chain) { c.gain = g }
}

// NewChain returns a cascade with one zero-state section per coefficient set.
func NewChain(coeffs []Coefficients, opts ...ChainOption) *Chain {
	c := &Chain{stages: make([]Section, len(coeffs)), gain: 1}
	for i, k := range coeffs {
		c.stages[i].Coefficients = k
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Order is twice the number of sections.
func (c *Chain) Order() int { return 2 * len(c.stages) }

// DCGain returns the response of the whole cascade to a constant input.
func (c *Chain) DCGain() float64 {
	g := c.gain
	for i := range c.stages {
		g *= c.stages[i].DCGain()
	}

	return g
}

// ProcessSample filters one sample.
func (c *Chain) ProcessSample(x float64) float64 {
	y := c.gain * x
	for i := range c.stages {
		y = c.stages[i].ProcessSample(y)
	}

	return y
}

// ProcessBlock filters buf in place, section by section.
func (c *Chain) ProcessBlock(buf []float64) {
	if c.gain != 1 {
		for i := range buf {
			buf[i] *= c.gain
		}
	}

	for i := range c.stages {
		c.stages[i].ProcessBlock(buf)
	}
}

// Reset zeroes the state of every section.
func (c *Chain) Reset() {
	for i := range c.stages {
		c.stages[i].Reset()
	}
}

// Prime loads every section with the steady state of a held input x.
func (c *Chain) Prime(x float64) {
	y := c.gain * x
	for i := range c.stages {
		y = c.stages[i].Prime(y)
	}
}

// FiltFilt filters x forward and then backward and returns a new slice of
// the same length. The magnitude response is squared and the phase response
// cancels, so features stay where they were in time.
//
// Both ends are extended by odd reflection (up to 3*(Order()+1) samples) and
// each pass starts primed on its first sample. The chain is left reset.
func (c *Chain) FiltFilt(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}

	pad := min(3*(c.Order()+1), n-1)
	buf := reflectPad(x, pad)

	for range 2 {
		c.Prime(buf[0])
		c.ProcessBlock(buf)
		reverse(buf)
	}
	c.Reset()

	return append([]float64(nil), buf[pad:pad+n]...)
}

// reflectPad extends x by pad samples on each side, mirroring the signal
// through its end points.
func reflectPad(x []float64, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	copy(out[pad:], x)

	for i := range pad {
		out[pad-1-i] = 2*x[0] - x[i+1]
		out[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}

	return out
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
