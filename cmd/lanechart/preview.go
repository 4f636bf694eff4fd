package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guidoenr/lanechart/internal/app"
	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/decode"
	"github.com/guidoenr/lanechart/internal/pcm"
	"github.com/guidoenr/lanechart/internal/render"
)

var previewOpts struct {
	audio      string
	noAudio    bool
	fps        float64
	lookahead  float64
	palette    string
	colorMode  string
	noColor    bool
	sdl        bool
	showStatus bool
}

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Play a chart as a scrolling highway",
	Long: `Plays FILE and scrolls its notes towards the hit line. FILE is either an
audio file, which is analyzed first, or a chart written by 'lanechart analyze'.
Keys: space pauses, r restarts, +/- change the scroll speed, q quits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if previewOpts.fps <= 0 {
			return fmt.Errorf("fps must be positive (got %.2f)", previewOpts.fps)
		}
		if previewOpts.sdl && !render.SupportsSDL() {
			return errors.New("--sdl needs a binary built with -tags sdl")
		}
		c, buf, err := loadPreview(cmd, args[0])
		if err != nil {
			return err
		}
		if previewOpts.noAudio {
			buf = nil
		}

		a, err := app.New(app.Config{
			Chart:         c,
			Audio:         buf,
			TargetFPS:     previewOpts.fps,
			Lookahead:     previewOpts.lookahead,
			Palette:       previewOpts.palette,
			ColorMode:     previewOpts.colorMode,
			UseANSI:       !previewOpts.noColor,
			UseSDL:        previewOpts.sdl,
			ShowStatusBar: previewOpts.showStatus,
			Log:           logger,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Printf("cleanup error: %v", err)
			}
		}()

		if err := a.Run(cmd.Context()); err != nil && !errors.Is(err, cmd.Context().Err()) {
			return err
		}
		return nil
	},
}

func init() {
	addAnalysisFlags(previewCmd)
	f := previewCmd.Flags()
	f.StringVar(&previewOpts.audio, "audio", "", "Audio to play alongside a chart file")
	f.BoolVar(&previewOpts.noAudio, "no-audio", false, "Scroll on the wall clock without playback")
	f.Float64Var(&previewOpts.fps, "fps", 60, "Target frames per second")
	f.Float64Var(&previewOpts.lookahead, "lookahead-seconds", 2, "Seconds of chart visible above the hit line")
	f.StringVar(&previewOpts.palette, "palette", "blocks", "Glyph set ("+strings.Join(render.PaletteNames(), "|")+")")
	f.StringVar(&previewOpts.colorMode, "color-mode", "chromatic", "Lane colors ("+strings.Join(render.ColorModeNames(), "|")+")")
	f.BoolVar(&previewOpts.noColor, "no-color", false, "Disable ANSI color output")
	f.BoolVar(&previewOpts.sdl, "sdl", false, "Draw into an SDL window (needs the sdl build tag)")
	f.BoolVar(&previewOpts.showStatus, "status", true, "Display status bar")
	rootCmd.AddCommand(previewCmd)
}

// loadPreview returns the chart for path and, when known, the audio behind it.
func loadPreview(cmd *cobra.Command, path string) (*chart.Chart, *pcm.Buffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		c, err := chart.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		if previewOpts.audio == "" || previewOpts.noAudio {
			return c, nil, nil
		}
		buf, err := decode.File(cmd.Context(), previewOpts.audio, cfg.DecodeOptions())
		if err != nil {
			return nil, nil, err
		}
		return c, &buf, nil
	}

	p, err := cfg.Parameters()
	if err != nil {
		return nil, nil, err
	}
	buf, err := decode.File(cmd.Context(), path, cfg.DecodeOptions())
	if err != nil {
		return nil, nil, err
	}
	c, err := chartFor(filepath.Base(path), buf, p, nil)
	if err != nil {
		return nil, nil, err
	}
	logger.Printf("%s: %d notes", c.Source, len(c.Notes))
	return c, &buf, nil
}
