package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/internal/audiofile"
	"github.com/cwbudde/algo-autotune/internal/config"
	"github.com/cwbudde/algo-autotune/internal/jobs"
)

type processOptions struct {
	outDir      string
	strength    float64
	scale       string
	root        string
	concurrency int
	quiet       bool
}

// fileResult is the outcome of one processed file.
type fileResult struct {
	In, Out string
	Report  autotune.Report
	Err     error
}

func newProcessCmd(root *rootOptions) *cobra.Command {
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process <file|dir>...",
		Short: "Autotune local audio files",
		Long: `process corrects every wav, mp3 and flac file given on the command line or
found below a given directory. Results are written as <name>_autotuned.wav
next to the input, or into --output. Inputs that would share a result name
are written as <name>_<ext>_autotuned.wav instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("strength") {
				opts.strength = math.NaN()
			}
			return runProcess(cmd.Context(), cmd.OutOrStdout(), cfg, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "output", "o", "", "output directory (default: next to each input)")
	cmd.Flags().Float64VarP(&opts.strength, "strength", "s", autotune.DefaultStrength, "correction strength in [0.1, 1]")
	cmd.Flags().StringVar(&opts.scale, "scale", "", "scale type: major, minor or pentatonic (default from config)")
	cmd.Flags().StringVar(&opts.root, "root", "", "root note, e.g. A or F# (default from config)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", runtime.NumCPU(), "files processed in parallel")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "only print failures")

	return cmd
}

func runProcess(ctx context.Context, w io.Writer, cfg *config.Config, opts *processOptions, args []string) error {
	params := jobs.Defaults(cfg.Processing, autotune.Params{
		Strength:  opts.strength,
		ScaleType: opts.scale,
		RootNote:  opts.root,
	})
	if _, err := autotune.ParseNote(params.RootNote); err != nil {
		return err
	}

	files, err := collectAudioFiles(args)
	if err != nil {
		return fmt.Errorf("collecting audio files: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(w, "no supported audio files found")
		return nil
	}

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return err
		}
	}

	pipe, err := jobs.NewPipeline(cfg.Processing, nil, nil)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if !opts.quiet {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("autotuning"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowIts(),
		)
	}

	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.concurrency, 1))

	outs := outputPaths(files, opts.outDir)

	for i, in := range files {
		g.Go(func() error {
			out := outs[i]
			report, err := processFile(gctx, pipe, cfg.Processing, in, out, params)
			results[i] = fileResult{In: in, Out: out, Report: report, Err: err}

			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if bar != nil {
		fmt.Fprintln(w)
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", r.In, r.Err)
			continue
		}
		if !opts.quiet {
			fmt.Fprintf(w, "ok   %s -> %s (%d/%d frames shifted, median %.1f Hz)\n",
				r.In, r.Out, r.Report.ShiftedFrames, r.Report.Frames, r.Report.MedianPitchHz)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func processFile(ctx context.Context, pipe *autotune.Pipeline, p config.ProcessingConfig, in, out string, params autotune.Params) (autotune.Report, error) {
	sig, _, err := audiofile.Load(in, p.SampleRate)
	if err != nil {
		return autotune.Report{}, err
	}

	corrected, report, err := pipe.Run(ctx, sig, params)
	if err != nil {
		return autotune.Report{}, err
	}

	if err := audiofile.SaveWAV(out, corrected, p.BitDepth, jobs.EncodeOptions(p)...); err != nil {
		return autotune.Report{}, err
	}
	return report, nil
}

func outputPath(in, outDir string) string {
	base := filepath.Base(in)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "_autotuned.wav"
	if outDir == "" {
		return filepath.Join(filepath.Dir(in), name)
	}
	return filepath.Join(outDir, name)
}

// outputPaths assigns each input a distinct result file. Inputs that would
// share a name keep their source extension in it; clashes left after that
// (same stem in different directories under one -o) get a counter.
func outputPaths(files []string, outDir string) []string {
	outs := make([]string, len(files))
	claims := make(map[string]int, len(files))
	for i, in := range files {
		outs[i] = outputPath(in, outDir)
		claims[outs[i]]++
	}

	for i, in := range files {
		if claims[outs[i]] > 1 {
			outs[i] = qualifiedOutputPath(in, outDir)
		}
	}

	seen := make(map[string]int, len(files))
	for i, out := range outs {
		seen[out]++
		if n := seen[out]; n > 1 {
			outs[i] = strings.TrimSuffix(out, ".wav") + fmt.Sprintf("_%d.wav", n)
		}
	}

	return outs
}

func qualifiedOutputPath(in, outDir string) string {
	ext := filepath.Ext(in)
	stem := strings.TrimSuffix(filepath.Base(in), ext)
	name := stem + "_" + strings.ToLower(strings.TrimPrefix(ext, ".")) + "_autotuned.wav"

	if outDir == "" {
		return filepath.Join(filepath.Dir(in), name)
	}
	return filepath.Join(outDir, name)
}

// collectAudioFiles expands directories into the supported files below
// them. Results of earlier runs and repeated paths are skipped.
func collectAudioFiles(paths []string) ([]string, error) {
	var files []string

	seen := make(map[string]bool)
	add := func(path string) {
		if key := filepath.Clean(path); !seen[key] {
			seen[key] = true
			files = append(files, path)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ferr := audiofile.FormatOf(path); ferr != nil {
				if errors.Is(ferr, audiofile.ErrUnsupportedFormat) {
					return nil
				}
				return ferr
			}
			if strings.HasSuffix(strings.TrimSuffix(path, filepath.Ext(path)), "_autotuned") {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
