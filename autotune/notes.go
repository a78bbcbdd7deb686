package autotune

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-autotune/dsp/core"
)

// C4Hz is the reference frequency of middle C used to place scale roots.
const C4Hz = 261.63

// NoteNames lists pitch classes in chromatic order from C, using sharps.
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterSemitone = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// ParseNote returns the pitch class (0 = C ... 11 = B) of a note name such
// as "A", "c#", "Eb", "F♯" or "B♭". An empty name means C.
func ParseNote(name string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return 0, nil
	}

	s = strings.NewReplacer("♯", "#", "♭", "b").Replace(s)

	semi, ok := letterSemitone[s[0]]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRoot, name)
	}

	switch s[1:] {
	case "":
	case "#":
		semi++
	case "b":
		semi--
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRoot, name)
	}

	return (semi + 12) % 12, nil
}

// RootFrequency returns the octave-4 frequency of pitch class semitone,
// relative to [C4Hz]. Pitch class 9 (A) gives 440 Hz.
func RootFrequency(semitone int) float64 {
	return C4Hz * core.SemitonesToRatio(float64(semitone))
}

// Note describes the equal-tempered note closest to a frequency.
type Note struct {
	Name   string  `json:"name"`
	Octave int     `json:"octave"`
	Cents  float64 `json:"cents"`
}

// String formats the note as e.g. "A4".
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// NoteOf maps hz to its nearest equal-tempered note (A4 = 440 Hz) and the
// deviation from it in cents. Non-positive input yields the zero Note.
func NoteOf(hz float64) Note {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return Note{}
	}

	midi := core.HzToMidi(hz)
	nearest := math.Round(midi)

	idx := int(nearest) % 12
	if idx < 0 {
		idx += 12
	}

	return Note{
		Name:   NoteNames[idx],
		Octave: int(math.Floor(nearest/12)) - 1,
		Cents:  core.CentsBetween(hz, core.MidiToHz(nearest)),
	}
}
