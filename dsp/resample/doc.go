// Package resample changes the length or sample rate of a signal.
//
// [ToLength] stretches a short frame to a target length with cubic
// interpolation, which is how the pitch shifter transposes a frame.
//
// [Converter] performs rational sample-rate conversion with a polyphase
// Kaiser-windowed sinc filter. Decoded uploads pass through [ConvertRate]
// on their way to the processing rate.
package resample
