// Package pass designs pass-band filter cascades (Butterworth lowpass) as
// biquad coefficient sets.
package pass
