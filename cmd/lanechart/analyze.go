package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/guidoenr/lanechart/internal/analyzer"
	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/decode"
	"github.com/guidoenr/lanechart/internal/params"
	"github.com/guidoenr/lanechart/internal/pcm"
	"github.com/guidoenr/lanechart/internal/profile"
)

var analyzeOpts struct {
	outDir  string
	midi    bool
	profile string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE...",
	Short: "Write a chart for each audio file",
	Long: `Decodes each file, runs the onset analysis and writes <name>.chart.json
(and <name>.mid with --midi) into the output directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cfg.Parameters()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(analyzeOpts.outDir, 0o755); err != nil {
			return err
		}

		prof := profile.Open(analyzeOpts.profile, logger)
		defer func() {
			for stage, total := range prof.Totals() {
				logger.Printf("profile %-12s %s", stage, total.Round(time.Microsecond))
			}
			if err := prof.Close(); err != nil {
				logger.Printf("profile: %v", err)
			}
		}()

		progress := mpb.NewWithContext(cmd.Context(), mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		bar := progress.AddBar(int64(len(args)),
			mpb.PrependDecorators(
				decor.Name("Analyzing: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
			),
		)

		var errs []error
		for _, path := range args {
			start := time.Now()
			if err := analyzeFile(cmd, path, p, prof); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
			}
			bar.EwmaIncrement(time.Since(start))
			if cmd.Context().Err() != nil {
				bar.Abort(false)
				break
			}
		}
		progress.Wait()

		for _, err := range errs {
			logger.Print(err)
		}
		return errors.Join(errs...)
	},
}

func init() {
	addAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeOpts.outDir, "out", "o", ".", "Output directory")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.midi, "midi", false, "Also export a MIDI file per chart")
	analyzeCmd.Flags().StringVar(&analyzeOpts.profile, "profile", "", "Append per-stage timings to this CSV file")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeFile(cmd *cobra.Command, path string, p params.Parameters, prof *profile.Profiler) error {
	c, err := buildChart(cmd, path, p, prof)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(analyzeOpts.outDir, base+".chart.json")
	if err := chart.WriteFile(out, c); err != nil {
		return err
	}
	if analyzeOpts.midi {
		if err := chart.WriteMIDIFile(filepath.Join(analyzeOpts.outDir, base+".mid"), c); err != nil {
			return err
		}
	}
	return nil
}

// buildChart decodes and analyzes one file.
func buildChart(cmd *cobra.Command, path string, p params.Parameters, prof *profile.Profiler) (*chart.Chart, error) {
	buf, err := decode.File(cmd.Context(), path, cfg.DecodeOptions())
	if err != nil {
		return nil, err
	}
	return chartFor(filepath.Base(path), buf, p, prof)
}

func chartFor(source string, buf pcm.Buffer, p params.Parameters, prof *profile.Profiler) (*chart.Chart, error) {
	a, err := analyzer.New(analyzer.Config{
		Params: p,
		Log:    analysisLog(),
		Trace:  prof.Trace(source),
	})
	if err != nil {
		return nil, err
	}
	notes, err := a.Analyze(buf)
	if err != nil {
		return nil, err
	}
	return &chart.Chart{
		Source:     source,
		SampleRate: buf.SampleRate,
		Duration:   buf.Duration(),
		Preset:     cfg.Preset,
		Notes:      notes,
	}, nil
}
