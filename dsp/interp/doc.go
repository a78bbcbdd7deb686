// Package interp provides fractional-position interpolation kernels used by
// the resamplers.
//
//   - [Linear2]:  2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite (default)
package interp
