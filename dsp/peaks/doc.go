// Package peaks locates local maxima in sampled curves such as
// auto-correlation functions and magnitude spectra, and refines their
// position to sub-sample accuracy.
package peaks
