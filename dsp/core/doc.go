// Package core holds small numeric helpers shared by the DSP packages:
// clamping, tolerance comparison, level measurement and pitch unit
// conversions.
package core
