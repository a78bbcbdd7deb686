// Package autotune implements frame-wise pitch correction.
//
// A [Pipeline] estimates the fundamental frequency of overlapping analysis
// frames with a [Detector], plans a per-frame shift towards the nearest
// note of a musical [Scale] using a [Corrector], and resynthesizes the
// signal with a [Shifter] by pitch-synchronous weighted overlap-add. The
// result is peak-normalized and low-passed with a zero-phase Butterworth
// filter.
//
// Scales are resolved and memoized by a [Table]:
//
//	table := autotune.NewTable()
//	scale, err := table.Resolve("minor", "F#")
//
// Frames whose analysis fails are treated as unvoiced and counted in the
// [Report]; they never abort a run.
package autotune
