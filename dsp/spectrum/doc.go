// Package spectrum provides spectrum-domain measurements: magnitude
// spectra, dominant-frequency estimation and single-tone level via the
// Goertzel algorithm.
package spectrum
