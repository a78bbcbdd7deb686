package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/internal/audiofile"
	"github.com/cwbudde/algo-autotune/internal/jobs"
)

// trackPoint is one frame of the pitch track.
type trackPoint struct {
	Time      float64 `json:"time"`
	Frequency float64 `json:"frequency"`
	Strength  float64 `json:"strength"`
	Note      string  `json:"note,omitempty"`
	Cents     float64 `json:"cents,omitempty"`
}

func newDetectCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Print the per-frame pitch track of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			pipe, err := jobs.NewPipeline(cfg.Processing, nil, nil)
			if err != nil {
				return err
			}

			sig, _, err := audiofile.Load(args[0], cfg.Processing.SampleRate)
			if err != nil {
				return err
			}

			est, degraded, err := pipe.Analyze(cmd.Context(), sig)
			if err != nil {
				return err
			}

			track := pitchTrack(est, pipe.FrameConfig(), sig.SampleRate)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(track)
			}
			printTrack(cmd.OutOrStdout(), track, degraded)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the track as JSON")

	return cmd
}

// pitchTrack timestamps each estimate at its frame centre.
func pitchTrack(est []autotune.PitchEstimate, frame autotune.FrameConfig, sampleRate int) []trackPoint {
	track := make([]trackPoint, len(est))
	for i, e := range est {
		p := trackPoint{
			Time:      float64(frame.Start(i)+frame.Length/2) / float64(sampleRate),
			Frequency: e.Frequency,
			Strength:  e.Strength,
		}
		if e.Voiced() {
			n := autotune.NoteOf(e.Frequency)
			p.Note = n.String()
			p.Cents = n.Cents
		}
		track[i] = p
	}
	return track
}

func printTrack(w io.Writer, track []trackPoint, degraded int) {
	fmt.Fprintf(w, "%8s %9s %8s %-4s %7s\n", "time_s", "hz", "strength", "note", "cents")
	for _, p := range track {
		if p.Note == "" {
			fmt.Fprintf(w, "%8.3f %9s %8.2f %-4s %7s\n", p.Time, "-", p.Strength, "-", "-")
			continue
		}
		fmt.Fprintf(w, "%8.3f %9.2f %8.2f %-4s %+7.1f\n", p.Time, p.Frequency, p.Strength, p.Note, p.Cents)
	}
	if degraded > 0 {
		fmt.Fprintf(w, "%d frames could not be analysed\n", degraded)
	}
}
