package autotune

import (
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
)

// ScaleType names a set of intervals above a root.
type ScaleType int

const (
	Major ScaleType = iota
	Minor
	Pentatonic
)

// Octaves covered by a resolved scale, inclusive.
const (
	MinOctave = 2
	MaxOctave = 7
)

var scaleIntervals = map[ScaleType][]int{
	Major:      {0, 2, 4, 5, 7, 9, 11},
	Minor:      {0, 2, 3, 5, 7, 8, 10},
	Pentatonic: {0, 2, 4, 7, 9},
}

// ScaleTypes lists the supported scale types in declaration order.
func ScaleTypes() []ScaleType {
	return []ScaleType{Major, Minor, Pentatonic}
}

func (s ScaleType) String() string {
	switch s {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Pentatonic:
		return "pentatonic"
	default:
		return "unknown"
	}
}

// Intervals returns the semitone offsets of s above its root.
func (s ScaleType) Intervals() []int {
	iv, ok := scaleIntervals[s]
	if !ok {
		iv = scaleIntervals[Major]
	}

	return slices.Clone(iv)
}

// ParseScaleType maps a case-insensitive name to a ScaleType. The boolean
// reports whether the name was recognised; unknown names yield Major.
func ParseScaleType(name string) (ScaleType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "major":
		return Major, true
	case "minor":
		return Minor, true
	case "pentatonic":
		return Pentatonic, true
	default:
		return Major, false
	}
}

// Scale is a resolved, ascending and duplicate-free list of target
// frequencies. The zero Scale has no frequencies.
type Scale struct {
	Type  ScaleType
	Root  int
	freqs []float64
}

// Len reports the number of target frequencies.
func (s Scale) Len() int { return len(s.freqs) }

// Frequencies returns a copy of the target frequencies in ascending order.
func (s Scale) Frequencies() []float64 { return slices.Clone(s.freqs) }

// RootName returns the canonical name of the root pitch class.
func (s Scale) RootName() string { return NoteNames[s.Root] }

// Nearest returns the target closest to hz. Equidistant queries resolve to
// the lower target and queries outside the table clamp to its ends. An empty
// scale returns 0.
func (s Scale) Nearest(hz float64) float64 {
	n := len(s.freqs)
	if n == 0 || math.IsNaN(hz) {
		return 0
	}

	i := sort.SearchFloat64s(s.freqs, hz)
	switch {
	case i == 0:
		return s.freqs[0]
	case i == n:
		return s.freqs[n-1]
	case s.freqs[i] == hz:
		return hz
	}

	lower, upper := s.freqs[i-1], s.freqs[i]
	if hz-lower <= upper-hz {
		return lower
	}

	return upper
}

func buildScale(t ScaleType, root int) Scale {
	intervals := scaleIntervals[t]
	ref := RootFrequency(root)

	freqs := make([]float64, 0, len(intervals)*(MaxOctave-MinOctave+1))
	for o := MinOctave; o <= MaxOctave; o++ {
		base := ref * math.Exp2(float64(o-4))
		for _, iv := range intervals {
			freqs = append(freqs, base*math.Exp2(float64(iv)/12))
		}
	}

	return Scale{Type: t, Root: root, freqs: freqs}
}

type scaleKey struct {
	typ  ScaleType
	root int
}

type scaleEntry struct {
	once  sync.Once
	scale Scale
}

// TableOption configures a [Table].
type TableOption func(*Table)

// WithoutCache disables memoization; every Resolve rebuilds the scale.
func WithoutCache() TableOption {
	return func(t *Table) { t.cache = false }
}

// Table resolves (scale type, root) pairs to scales and memoizes them for
// its lifetime. It is safe for concurrent use and builds each key at most
// once.
type Table struct {
	cache   bool
	mu      sync.Mutex
	entries map[scaleKey]*scaleEntry
}

// NewTable returns a memoizing scale table.
func NewTable(opts ...TableOption) *Table {
	t := &Table{cache: true, entries: make(map[scaleKey]*scaleEntry)}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Resolve returns the scale for scaleType and rootNote. Unknown scale types
// fall back to major; an unparseable root returns [ErrUnknownRoot].
func (t *Table) Resolve(scaleType, rootNote string) (Scale, error) {
	root, err := ParseNote(rootNote)
	if err != nil {
		return Scale{}, err
	}

	typ, _ := ParseScaleType(scaleType)

	return t.Get(typ, root), nil
}

// Get returns the scale for an already parsed type and pitch class.
func (t *Table) Get(typ ScaleType, root int) Scale {
	if _, ok := scaleIntervals[typ]; !ok {
		typ = Major
	}
	root = ((root % 12) + 12) % 12

	if !t.cache {
		return buildScale(typ, root)
	}

	key := scaleKey{typ: typ, root: root}

	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &scaleEntry{}
		t.entries[key] = e
	}
	t.mu.Unlock()

	e.once.Do(func() { e.scale = buildScale(typ, root) })

	return e.scale
}

// Len reports the number of memoized scales.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
