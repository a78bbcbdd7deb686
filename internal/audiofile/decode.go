package audiofile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/dsp/resample"
)

// WAV format tags accepted by the decoder.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Audio is decoded, interleaved audio scaled to [-1, 1].
type Audio struct {
	Format     Format
	Samples    []float64
	SampleRate int
	Channels   int
	BitDepth   int
}

// Frames returns the number of sample frames.
func (a Audio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Duration returns the playing time.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(a.Frames()) / float64(a.SampleRate) * float64(time.Second))
}

// Mono averages all channels into a single signal at the native rate.
func (a Audio) Mono() autotune.Signal {
	return autotune.Signal{
		Samples:    autotune.DownmixInterleaved(a.Samples, a.Channels),
		SampleRate: a.SampleRate,
	}
}

// Decode reads a complete stream of the given format.
func Decode(r io.ReadSeeker, f Format) (Audio, error) {
	var (
		a   Audio
		err error
	)

	switch f {
	case FormatWAV:
		a, err = decodeWAV(r)
	case FormatMP3:
		a, err = decodeMP3(r)
	case FormatFLAC:
		a, err = decodeFLAC(r)
	default:
		return Audio{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return Audio{}, err
	}

	a.Format = f
	if len(a.Samples) == 0 || a.SampleRate <= 0 || a.Channels <= 0 {
		return Audio{}, fmt.Errorf("%w: %s stream has no audio", ErrDecode, f)
	}

	return a, nil
}

// Load decodes the file at path, mixes it to mono and resamples it to
// targetRate. targetRate <= 0 keeps the native rate.
func Load(path string, targetRate int) (autotune.Signal, Audio, error) {
	f, err := FormatOf(path)
	if err != nil {
		return autotune.Signal{}, Audio{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return autotune.Signal{}, Audio{}, fmt.Errorf("audiofile: open %s: %w", path, err)
	}
	defer file.Close()

	a, err := Decode(file, f)
	if err != nil {
		return autotune.Signal{}, Audio{}, err
	}

	sig, err := ToMono(a, targetRate)
	if err != nil {
		return autotune.Signal{}, Audio{}, err
	}

	return sig, a, nil
}

// ToMono downmixes a and converts it to targetRate.
func ToMono(a Audio, targetRate int) (autotune.Signal, error) {
	sig := a.Mono()
	if targetRate <= 0 || targetRate == sig.SampleRate {
		return sig, nil
	}

	out, err := resample.ConvertRate(sig.Samples, sig.SampleRate, targetRate)
	if err != nil {
		return autotune.Signal{}, fmt.Errorf("audiofile: resample %d -> %d Hz: %w", sig.SampleRate, targetRate, err)
	}

	return autotune.Signal{Samples: out, SampleRate: targetRate}, nil
}

// maxFmtChunk bounds the declared size of a WAV fmt chunk. The decoder
// allocates the chunk in one piece; real ones are at most 40 bytes.
const maxFmtChunk = 1 << 10

// checkWAVChunks walks the RIFF chunk headers up to the fmt chunk and
// restores the read position.
func checkWAVChunks(r io.ReadSeeker) (err error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: wav: %w", ErrDecode, err)
	}
	defer func() {
		if _, serr := r.Seek(start, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("%w: wav: %w", ErrDecode, serr)
		}
	}()

	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil || string(hdr[:4]) != "RIFF" || string(hdr[8:]) != "WAVE" {
		return fmt.Errorf("%w: not a valid wav file", ErrDecode)
	}

	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return fmt.Errorf("%w: wav has no fmt chunk", ErrDecode)
		}

		size := int64(binary.LittleEndian.Uint32(ch[4:]))
		if string(ch[:4]) == "fmt " {
			if size > maxFmtChunk {
				return fmt.Errorf("%w: wav fmt chunk of %d bytes", ErrDecode, size)
			}
			return nil
		}

		if _, err := r.Seek(size+size&1, io.SeekCurrent); err != nil {
			return fmt.Errorf("%w: wav: %w", ErrDecode, err)
		}
	}
}

func decodeWAV(r io.ReadSeeker) (Audio, error) {
	if err := checkWAVChunks(r); err != nil {
		return Audio{}, err
	}

	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Audio{}, fmt.Errorf("%w: not a valid wav file", ErrDecode)
	}

	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return Audio{}, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Audio{}, fmt.Errorf("%w: wav: %w", ErrDecode, err)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return Audio{}, fmt.Errorf("%w: wav bit depth %d", ErrDecode, bitDepth)
	}

	samples := make([]float64, len(buf.Data))
	maxVal := float64(int64(1) << (bitDepth - 1))

	// 8-bit PCM is unsigned.
	var offset int
	if bitDepth == 8 {
		offset = 128
	}

	for i, v := range buf.Data {
		samples[i] = float64(v-offset) / maxVal
	}

	return Audio{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   bitDepth,
	}, nil
}

// mp3Channels is fixed by go-mp3, which always emits 16-bit stereo.
const mp3Channels = 2

func decodeMP3(r io.Reader) (Audio, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: mp3: %w", ErrDecode, err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: mp3: %w", ErrDecode, err)
	}

	frames := len(raw) / (2 * mp3Channels)
	samples := make([]float64, frames*mp3Channels)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float64(v) / 32768
	}

	return Audio{
		Samples:    samples,
		SampleRate: d.SampleRate(),
		Channels:   mp3Channels,
		BitDepth:   16,
	}, nil
}

func decodeFLAC(r io.Reader) (Audio, error) {
	stream, err := flac.New(r)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: flac: %w", ErrDecode, err)
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.NChannels == 0 || info.BitsPerSample == 0 {
		return Audio{}, fmt.Errorf("%w: flac: missing stream info", ErrDecode)
	}

	channels := int(info.NChannels)
	maxVal := float64(int64(1) << (info.BitsPerSample - 1))

	// NSamples comes from the stream header and is not trusted for
	// allocation; the buffer grows with the frames actually present.
	var samples []float64
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Audio{}, fmt.Errorf("%w: flac: %w", ErrDecode, err)
		}

		if len(frame.Subframes) < channels {
			return Audio{}, fmt.Errorf("%w: flac: frame has %d of %d channels", ErrDecode, len(frame.Subframes), channels)
		}

		for i := range frame.Subframes[0].Samples {
			for ch := range channels {
				samples = append(samples, float64(frame.Subframes[ch].Samples[i])/maxVal)
			}
		}
	}

	return Audio{
		Samples:    samples,
		SampleRate: int(info.SampleRate),
		Channels:   channels,
		BitDepth:   int(info.BitsPerSample),
	}, nil
}
