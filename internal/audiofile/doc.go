// Package audiofile decodes uploaded audio into mono [autotune.Signal]
// values and encodes results as PCM WAV.
//
// WAV input is read with go-audio/wav, MP3 with hajimehoshi/go-mp3 and FLAC
// with mewkiz/flac. Multichannel input is averaged to mono and resampled to
// the requested rate.
package audiofile
