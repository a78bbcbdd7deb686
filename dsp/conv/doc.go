// Package conv provides the correlation routines used for periodicity
// analysis.
//
// Auto-correlation is computed with a zero-padded FFT, which is much faster
// than direct summation for the 2048-sample frames typical of pitch
// tracking:
//
//	acf, err := conv.AutoCorrelate(frame)
//	conv.Normalize(acf) // acf[0] == 1
//
// [AutoCorrelateDirect] is an O(N^2) reference implementation for short
// inputs and tests.
package conv
