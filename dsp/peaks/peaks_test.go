package peaks

import (
	"math"
	"slices"
	"testing"
)

func TestFind(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		opts []Option
		want []int
	}{
		{name: "empty", x: nil, want: nil},
		{name: "single peak", x: []float64{0, 1, 0}, want: []int{1}},
		{name: "endpoints excluded", x: []float64{3, 1, 2}, want: nil},
		{name: "two peaks", x: []float64{0, 2, 1, 3, 0}, want: []int{1, 3}},
		{name: "plateau midpoint", x: []float64{0, 1, 1, 1, 0}, want: []int{2}},
		{name: "even plateau rounds down", x: []float64{0, 1, 1, 0}, want: []int{1}},
		{name: "rising plateau is not a peak", x: []float64{0, 1, 1, 2, 0}, want: []int{3}},
		{name: "height filter", x: []float64{0, 0.05, 0, 0.5, 0}, opts: []Option{WithMinHeight(0.1)}, want: []int{3}},
		{name: "limit", x: []float64{0, 1, 0, 1, 0, 1, 0}, opts: []Option{WithLimit(2)}, want: []int{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Find(tt.x, tt.opts...)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Find() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParabolicRecoversVertex(t *testing.T) {
	// y = -(x-10.3)^2 + 5 sampled at integers.
	x := make([]float64, 20)
	for i := range x {
		d := float64(i) - 10.3
		x[i] = -d*d + 5
	}

	off, h := Parabolic(x, 10)
	if math.Abs(off-0.3) > 1e-12 {
		t.Fatalf("offset = %v, want 0.3", off)
	}
	if math.Abs(h-5) > 1e-12 {
		t.Fatalf("height = %v, want 5", h)
	}
}

func TestParabolicEdges(t *testing.T) {
	x := []float64{1, 2, 3}
	if off, h := Parabolic(x, 0); off != 0 || h != 1 {
		t.Fatalf("Parabolic(0) = %v, %v", off, h)
	}
	if off, h := Parabolic(x, 5); off != 0 || h != 0 {
		t.Fatalf("Parabolic(out of range) = %v, %v", off, h)
	}
	if off, _ := Parabolic([]float64{1, 1, 1}, 1); off != 0 {
		t.Fatalf("flat offset = %v, want 0", off)
	}
}

func TestArgMax(t *testing.T) {
	x := []float64{1, 5, 3, 7, 2}
	if i, v := ArgMax(x, 0, 3); i != 1 || v != 5 {
		t.Fatalf("ArgMax(0,3) = %d, %v", i, v)
	}
	if i, _ := ArgMax(x, 3, 3); i != -1 {
		t.Fatalf("ArgMax(empty) = %d, want -1", i)
	}
	if i, v := ArgMax(x, -2, 99); i != 3 || v != 7 {
		t.Fatalf("ArgMax(clamped) = %d, %v", i, v)
	}
}
