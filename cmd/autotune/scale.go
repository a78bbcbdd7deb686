package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/internal/jobs"
)

func newScaleCmd(root *rootOptions) *cobra.Command {
	var scaleType, rootNote string

	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Print the target frequencies of a scale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			params := jobs.Defaults(cfg.Processing, autotune.Params{ScaleType: scaleType, RootNote: rootNote})
			return printScale(cmd.OutOrStdout(), params.ScaleType, params.RootNote)
		},
	}

	cmd.Flags().StringVar(&scaleType, "scale", "", "scale type: major, minor or pentatonic")
	cmd.Flags().StringVar(&rootNote, "root", "", "root note, e.g. A or F#")

	return cmd
}

func printScale(w io.Writer, scaleType, rootNote string) error {
	scale, err := autotune.NewTable(autotune.WithoutCache()).Resolve(scaleType, rootNote)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s: %d notes\n", scale.RootName(), scale.Type, scale.Len())
	for _, f := range scale.Frequencies() {
		fmt.Fprintf(w, "%-4s %9.2f Hz\n", autotune.NoteOf(f), f)
	}
	return nil
}
