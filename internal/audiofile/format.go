package audiofile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file types that cannot be decoded.
	ErrUnsupportedFormat = errors.New("audiofile: unsupported format")
	// ErrDecode wraps failures while reading audio data.
	ErrDecode = errors.New("audiofile: decode failed")
	// ErrInvalidBitDepth is returned by the WAV encoder for depths other
	// than 16, 24 or 32.
	ErrInvalidBitDepth = errors.New("audiofile: bit depth must be 16, 24 or 32")
)

// Format identifies a container/codec.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
	FormatFLAC
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	case FormatFLAC:
		return "flac"
	default:
		return "unknown"
	}
}

// Extensions lists the accepted file extensions without the dot.
func Extensions() []string {
	return []string{"mp3", "wav", "flac"}
}

// FormatOf returns the format implied by a file name's extension.
func FormatOf(name string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "wav", "wave":
		return FormatWAV, nil
	case "mp3":
		return FormatMP3, nil
	case "flac":
		return FormatFLAC, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}
