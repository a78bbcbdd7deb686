package autotune_test

import (
	"context"
	"fmt"
	"math"

	"github.com/cwbudde/algo-autotune/autotune"
)

func ExampleTable_Resolve() {
	table := autotune.NewTable()

	scale, err := table.Resolve("pentatonic", "A")
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%d notes\n", scale.Len())
	fmt.Printf("nearest to 450 Hz: %.2f\n", scale.Nearest(450))
	fmt.Printf("nearest to 500 Hz: %.2f\n", scale.Nearest(500))
	// Output:
	// 30 notes
	// nearest to 450 Hz: 440.00
	// nearest to 500 Hz: 493.88
}

func ExampleCorrector_Plan() {
	scale, _ := autotune.NewTable().Resolve("major", "A")

	est := autotune.PitchEstimate{Frequency: 466.16, Strength: 0.9}
	shift := autotune.Corrector{}.Plan(est, scale, 1)

	fmt.Printf("%+.2f semitones\n", shift.Semitones)
	// Output:
	// -1.00 semitones
}

func ExamplePipeline_Run() {
	p, err := autotune.NewPipeline()
	if err != nil {
		fmt.Println(err)
		return
	}

	const rate = 44100
	samples := make([]float64, rate)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*466.16*float64(i)/rate)
	}

	params := autotune.DefaultParams()
	params.Strength = 1
	params.RootNote = "A"

	out, report, err := p.Run(context.Background(),
		autotune.Signal{Samples: samples, SampleRate: rate}, params)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(len(out.Samples), report.Frames, report.ShiftedFrames)
	fmt.Println(autotune.NoteOf(report.MedianPitchHz))
	// Output:
	// 44100 82 82
	// A#4
}
