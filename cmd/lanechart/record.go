package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/guidoenr/lanechart/internal/audio"
	"github.com/guidoenr/lanechart/internal/chart"
)

var recordOpts struct {
	seconds  float64
	device   string
	channels int
	out      string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from an input device and chart the take",
	Long: `Records from the selected (or best guessed) input device and analyzes the
take. Ctrl-C stops early and charts what was captured so far.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if recordOpts.seconds <= 0 {
			return errors.New("--seconds must be positive")
		}
		p, err := cfg.Parameters()
		if err != nil {
			return err
		}

		logger.Printf("recording %.1fs...", recordOpts.seconds)
		buf, err := audio.Record(cmd.Context(), audio.RecordConfig{
			DeviceName: recordOpts.device,
			Channels:   recordOpts.channels,
			Duration:   time.Duration(recordOpts.seconds * float64(time.Second)),
		})
		if err != nil {
			return err
		}
		logger.Printf("captured %.2fs @ %d Hz", buf.Duration(), buf.SampleRate)

		c, err := chartFor("recording", buf, p, nil)
		if err != nil {
			return err
		}
		if err := chart.WriteFile(recordOpts.out, c); err != nil {
			return err
		}
		logger.Printf("wrote %d notes to %s", len(c.Notes), recordOpts.out)
		return nil
	},
}

func init() {
	addAnalysisFlags(recordCmd)
	f := recordCmd.Flags()
	f.Float64Var(&recordOpts.seconds, "seconds", 10, "Recording length")
	f.StringVar(&recordOpts.device, "device", "", "Input device name (substring match)")
	f.IntVar(&recordOpts.channels, "channels", 1, "Input channels (1 or 2)")
	f.StringVarP(&recordOpts.out, "out", "o", "recording.chart.json", "Chart output path")
	rootCmd.AddCommand(recordCmd)
}
