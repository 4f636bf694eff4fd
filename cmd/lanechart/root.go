package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/guidoenr/lanechart/internal/config"
)

var (
	cfg    = config.Load()
	debug  bool
	logger = log.New(os.Stderr, "[lanechart] ", 0)
)

var rootCmd = &cobra.Command{
	Use:   "lanechart",
	Short: "Generate four-lane rhythm game charts from audio",
	Long: `lanechart listens to a song, finds the onsets in four frequency bands and
writes them out as taps and holds on a four-lane highway.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logger.SetFlags(log.LstdFlags)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable verbose logging")
}

// analysisLog is where the analyzer reports its per-run summary.
func analysisLog() *log.Logger {
	if !debug {
		return log.New(io.Discard, "", 0)
	}
	return logger
}

// addAnalysisFlags binds the flags shared by every command that analyzes audio.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cfg.Preset, "preset", cfg.Preset, "Parameter preset (see 'lanechart presets')")
	cmd.Flags().StringVar(&cfg.ParamsFile, "params", cfg.ParamsFile, "JSON parameter file applied on top of the preset")
	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "Spectrum workers (0 uses every CPU)")
	cmd.Flags().StringVar(&cfg.FFmpeg, "ffmpeg", cfg.FFmpeg, "ffmpeg binary used for non-WAV input")
}
