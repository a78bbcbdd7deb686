package resample_test

import (
	"fmt"

	"github.com/cwbudde/algo-autotune/dsp/resample"
)

func ExampleNewConverter() {
	c, _ := resample.NewConverter(48000, 44100)
	up, down := c.Ratio()
	fmt.Printf("ratio=%d/%d out=%d\n", up, down, c.OutputLen(48000))
	// Output:
	// ratio=147/160 out=44100
}

func ExampleToLength() {
	out, _ := resample.ToLength([]float64{0, 1, 2, 3, 4}, 3)
	fmt.Printf("%.1f %.1f %.1f\n", out[0], out[1], out[2])
	// Output:
	// 0.0 2.0 4.0
}
