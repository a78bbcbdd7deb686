package audiofile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/internal/testutil"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"song.mp3", FormatMP3, false},
		{"Take 1.WAV", FormatWAV, false},
		{"dir/a.flac", FormatFLAC, false},
		{"a.wave", FormatWAV, false},
		{"notes.txt", FormatUnknown, true},
		{"noext", FormatUnknown, true},
	}

	for _, tt := range tests {
		got, err := FormatOf(tt.name)
		if (err != nil) != tt.wantErr {
			t.Fatalf("FormatOf(%q) err = %v", tt.name, err)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("FormatOf(%q) err = %v, want ErrUnsupportedFormat", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("FormatOf(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWAVRoundTrip(t *testing.T) {
	sig := autotune.Signal{
		Samples:    testutil.DeterministicSine(440, 22050, 0.8, 4000),
		SampleRate: 22050,
	}

	for _, depth := range []int{16, 24, 32} {
		path := filepath.Join(t.TempDir(), "out.wav")
		if err := SaveWAV(path, sig, depth); err != nil {
			t.Fatalf("%d bit: SaveWAV() error = %v", depth, err)
		}

		got, a, err := Load(path, 0)
		if err != nil {
			t.Fatalf("%d bit: Load() error = %v", depth, err)
		}

		if a.Format != FormatWAV || a.Channels != 1 || a.BitDepth != depth || a.SampleRate != 22050 {
			t.Fatalf("%d bit: decoded %+v", depth, a)
		}

		tol := 2 / math.Exp2(float64(depth-1))
		testutil.RequireSliceNearlyEqual(t, got.Samples, sig.Samples, tol)
	}
}

func TestLoadResamples(t *testing.T) {
	sig := autotune.Signal{Samples: testutil.DeterministicSine(500, 22050, 0.5, 22050), SampleRate: 22050}

	path := filepath.Join(t.TempDir(), "in.wav")
	if err := SaveWAV(path, sig, 16); err != nil {
		t.Fatal(err)
	}

	got, a, err := Load(path, 44100)
	if err != nil {
		t.Fatal(err)
	}

	if got.SampleRate != 44100 || len(got.Samples) != 44100 {
		t.Fatalf("resampled to %d samples @ %d Hz", len(got.Samples), got.SampleRate)
	}
	if a.SampleRate != 22050 {
		t.Fatalf("native rate = %d, want 22050", a.SampleRate)
	}
	if a.Duration().Seconds() != 1 {
		t.Fatalf("duration = %v, want 1s", a.Duration())
	}
}

func TestDecodeGarbage(t *testing.T) {
	junk := bytes.Repeat([]byte("not audio "), 64)

	for _, f := range []Format{FormatWAV, FormatMP3, FormatFLAC} {
		if _, err := Decode(bytes.NewReader(junk), f); !errors.Is(err, ErrDecode) {
			t.Fatalf("%s: err = %v, want ErrDecode", f, err)
		}
	}

	if _, err := Decode(bytes.NewReader(junk), FormatUnknown); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := Load(filepath.Join(dir, "a.ogg"), 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}

	if _, _, err := Load(filepath.Join(dir, "missing.wav"), 0); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestMonoDownmix(t *testing.T) {
	a := Audio{Samples: []float64{1, 0, 0.5, 0.5, -1, 1}, SampleRate: 8000, Channels: 2}

	mono := a.Mono()
	testutil.RequireSliceNearlyEqual(t, mono.Samples, []float64{0.5, 0.5, 0}, 0)

	if a.Frames() != 3 {
		t.Fatalf("Frames() = %d, want 3", a.Frames())
	}
}

func TestQuantize(t *testing.T) {
	got := Quantize([]float64{0, 1, -1, 2, -2, 0.5}, 16)
	want := []int{0, 32767, -32768, 32767, -32768, 16384}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Quantize[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")

	if err := SaveWAV(path, autotune.Signal{Samples: []float64{0}, SampleRate: 8000}, 12); !errors.Is(err, ErrInvalidBitDepth) {
		t.Fatalf("err = %v, want ErrInvalidBitDepth", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("failed encode left a file behind")
	}
}

func TestDitheredWAV(t *testing.T) {
	sig := autotune.Signal{
		Samples:    testutil.DeterministicSine(440, 44100, 0.5, 4410),
		SampleRate: 44100,
	}

	path := filepath.Join(t.TempDir(), "dither.wav")
	if err := SaveWAV(path, sig, 16, WithDitherSeed(5)); err != nil {
		t.Fatalf("SaveWAV() error = %v", err)
	}

	got, _, err := Load(path, 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// The shaping filter bounds the error to about 45 LSB.
	testutil.RequireSliceNearlyEqual(t, got.Samples, sig.Samples, 48.0/32768)

	plain := Quantize(sig.Samples, 16)
	dithered, err := quantize(sig.Samples, 16, encodeConfig{dither: true})
	if err != nil {
		t.Fatal(err)
	}
	same := 0
	for i := range plain {
		if plain[i] == dithered[i] {
			same++
		}
	}
	if same == len(plain) {
		t.Fatal("dithered output equals plain rounding")
	}
}

// encodeFLAC writes 16-bit verbatim FLAC frames of blockSize samples per
// channel. declared > 0 replaces the total sample count in the header.
func encodeFLAC(t *testing.T, channels [][]int32, rate uint32, blockSize int, declared uint64) []byte {
	t.Helper()

	n := len(channels[0])
	info := &meta.StreamInfo{
		BlockSizeMin:  uint16(blockSize),
		BlockSizeMax:  uint16(blockSize),
		SampleRate:    rate,
		NChannels:     uint8(len(channels)),
		BitsPerSample: 16,
		NSamples:      uint64(n),
	}
	if declared > 0 {
		info.NSamples = declared
	}

	var buf bytes.Buffer
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		t.Fatalf("flac.NewEncoder() error = %v", err)
	}

	assignment := frame.ChannelsMono
	if len(channels) == 2 {
		assignment = frame.ChannelsLR
	}

	for off := 0; off < n; off += blockSize {
		end := min(off+blockSize, n)
		f := &frame.Frame{Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         uint16(end - off),
			SampleRate:        rate,
			Channels:          assignment,
			BitsPerSample:     16,
		}}
		for _, ch := range channels {
			f.Subframes = append(f.Subframes, &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   ch[off:end],
				NSamples:  end - off,
			})
		}
		if err := enc.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("encoder Close() error = %v", err)
	}

	return buf.Bytes()
}

func TestDecodeFLAC(t *testing.T) {
	const n = 4096

	left := make([]int32, n)
	right := make([]int32, n)
	for i, v := range testutil.DeterministicSine(440, 44100, 0.5, n) {
		left[i] = int32(math.Round(v * 32767))
		right[i] = -left[i] / 2
	}

	a, err := Decode(bytes.NewReader(encodeFLAC(t, [][]int32{left, right}, 44100, 1024, 0)), FormatFLAC)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if a.Format != FormatFLAC || a.Channels != 2 || a.SampleRate != 44100 || a.BitDepth != 16 || a.Frames() != n {
		t.Fatalf("decoded %d frames of %+v", a.Frames(), a)
	}

	for i := range n {
		if a.Samples[2*i] != float64(left[i])/32768 || a.Samples[2*i+1] != float64(right[i])/32768 {
			t.Fatalf("frame %d = (%v, %v), want (%v, %v)", i,
				a.Samples[2*i], a.Samples[2*i+1], float64(left[i])/32768, float64(right[i])/32768)
		}
	}
}

// The total sample count in STREAMINFO is attacker controlled and must not
// size any allocation.
func TestDecodeFLACIgnoresDeclaredLength(t *testing.T) {
	const huge = 1 << 35

	empty := encodeFLAC(t, [][]int32{make([]int32, 0), make([]int32, 0)}, 44100, 1024, huge)
	if _, err := Decode(bytes.NewReader(empty), FormatFLAC); !errors.Is(err, ErrDecode) {
		t.Fatalf("header-only stream: err = %v, want ErrDecode", err)
	}

	one := encodeFLAC(t, [][]int32{make([]int32, 1024)}, 44100, 1024, huge)
	a, err := Decode(bytes.NewReader(one), FormatFLAC)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if a.Frames() != 1024 || cap(a.Samples) > 1<<20 {
		t.Fatalf("decoded %d frames into a buffer of capacity %d", a.Frames(), cap(a.Samples))
	}
}

func TestDecodeMP3(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "speech.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	a, err := Decode(f, FormatMP3)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	// 100 MPEG-2 layer III frames of 576 samples each.
	if a.Channels != 2 || a.SampleRate != 22050 || a.BitDepth != 16 {
		t.Fatalf("decoded %+v", a)
	}
	if got := a.Frames(); got < 99*576 || got > 100*576 {
		t.Fatalf("Frames() = %d, want about %d", got, 100*576)
	}

	testutil.RequireFinite(t, a.Samples)
	if peak := core.PeakAbs(a.Samples); peak < 0.01 || peak > 1 {
		t.Fatalf("peak = %v, want speech level in (0.01, 1]", peak)
	}

	mono := a.Mono()
	if len(mono.Samples) != a.Frames() || mono.SampleRate != 22050 {
		t.Fatalf("Mono() = %d samples @ %d Hz", len(mono.Samples), mono.SampleRate)
	}
}

func TestDecodeWAVRejectsOversizedFmtChunk(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36))
	b.WriteString("WAVE")
	b.WriteString("LIST")
	_ = binary.Write(&b, binary.LittleEndian, uint32(3))
	b.Write([]byte{1, 2, 3, 0})
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(0xFFFFFFF0))
	b.Write(make([]byte, 16))

	if _, err := Decode(bytes.NewReader(b.Bytes()), FormatWAV); !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}
