// Package dither quantizes normalized samples to integer PCM with
// triangular (TPDF) dither and optional error-feedback noise shaping.
//
// Dither decorrelates the rounding error from the signal, which matters
// when corrected vocals are written at 16 bits and faded tails would
// otherwise turn into harmonic distortion. Noise shaping moves the
// remaining error toward frequencies where the ear is less sensitive.
package dither
