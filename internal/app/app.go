package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"golang.org/x/term"

	"github.com/guidoenr/lanechart/internal/audio"
	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/pcm"
	"github.com/guidoenr/lanechart/internal/render"
)

// Config configures the preview player.
type Config struct {
	Chart *chart.Chart
	// Audio, when set, is played back and drives the clock.
	Audio *pcm.Buffer

	Width         int
	Height        int
	TargetFPS     float64
	Lookahead     float64
	Palette       string
	ColorMode     string
	UseANSI       bool
	UseSDL        bool
	ShowStatusBar bool
	Log           *log.Logger
}

type inputEvent int

const (
	inputEventPause inputEvent = iota
	inputEventRestart
	inputEventFaster
	inputEventSlower
	inputEventQuit
)

// App replays a chart as a scrolling highway in sync with its audio.
type App struct {
	cfg          Config
	renderer     *render.Renderer
	clock        Clock
	player       *audio.Player
	stats        chart.Stats
	last         time.Time
	log          *log.Logger
	width        int
	height       int
	renderHeight int
	paused       bool
	inputEvents  chan inputEvent
}

// New constructs the preview using the provided configuration.
func New(cfg Config) (*App, error) {
	if cfg.Chart == nil {
		return nil, errors.New("preview needs a chart")
	}
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 30
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "", log.LstdFlags)
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Height <= 0 {
		cfg.Height = 24
	}
	renderHeight := cfg.Height
	if cfg.ShowStatusBar && !cfg.UseSDL && renderHeight > 1 {
		renderHeight--
	}

	renderer, err := render.New(cfg.Width, renderHeight, render.Options{
		Palette:   cfg.Palette,
		ColorMode: cfg.ColorMode,
		Lookahead: cfg.Lookahead,
		UseANSI:   cfg.UseANSI,
		SDL:       cfg.UseSDL,
	})
	if err != nil {
		return nil, err
	}

	notes := make([]chart.Note, len(cfg.Chart.Notes))
	copy(notes, cfg.Chart.Notes)
	chart.SortByTime(notes)
	sorted := *cfg.Chart
	sorted.Notes = notes
	cfg.Chart = &sorted

	app := &App{
		cfg:          cfg,
		renderer:     renderer,
		stats:        cfg.Chart.Stats(),
		log:          cfg.Log,
		width:        cfg.Width,
		height:       cfg.Height,
		renderHeight: renderHeight,
	}

	if cfg.Audio != nil {
		player, err := audio.NewPlayer(*cfg.Audio)
		if err != nil {
			_ = renderer.Close()
			return nil, fmt.Errorf("audio playback: %w", err)
		}
		app.player = player
		app.clock = player
		app.log.Printf("playing %s @ %d Hz", cfg.Chart.Source, cfg.Audio.SampleRate)
	} else {
		app.clock = NewWallClock(time.Now)
		app.log.Println("audio disabled, using the wall clock")
	}
	return app, nil
}

// Run starts the render loop until the chart ends, the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	frameDuration := time.Duration(float64(time.Second) / a.cfg.TargetFPS)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	if !a.renderer.Windowed() {
		enterAltScreen()
		clearScreen()
		hideCursor()
		defer func() {
			showCursor()
			exitAltScreen()
		}()
	}

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	a.startInputListener(inputCtx)
	a.ensureDimensions()

	if a.player != nil {
		if err := a.player.Start(); err != nil {
			return err
		}
	}
	a.last = time.Now()

	for {
		select {
		case <-ctx.Done():
			moveCursorHome()
			return ctx.Err()
		case evt, ok := <-a.inputEvents:
			if !ok {
				a.inputEvents = nil
				continue
			}
			if a.handle(evt) {
				moveCursorHome()
				return nil
			}
		case <-ticker.C:
			done, err := a.step()
			if err != nil {
				if errors.Is(err, render.ErrRendererQuit) {
					return nil
				}
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// Close releases held resources.
func (a *App) Close() error {
	var errs []error
	if a.player != nil {
		errs = append(errs, a.player.Close())
	}
	errs = append(errs, a.renderer.Close())
	return errors.Join(errs...)
}

// handle applies a key press and reports whether the preview should stop.
func (a *App) handle(evt inputEvent) bool {
	switch evt {
	case inputEventQuit:
		return true
	case inputEventPause:
		a.paused = !a.paused
		a.clock.SetPaused(a.paused)
	case inputEventRestart:
		a.clock.Seek(0)
	case inputEventFaster:
		a.renderer.SetLookahead(a.renderer.Lookahead() * 0.8)
	case inputEventSlower:
		a.renderer.SetLookahead(a.renderer.Lookahead() * 1.25)
	}
	return false
}

// tail is how long the highway keeps scrolling after the last note.
const tail = 1.0

func (a *App) step() (bool, error) {
	a.ensureDimensions()

	now := time.Now()
	delta := now.Sub(a.last).Seconds()
	if delta <= 0 {
		delta = 1.0 / a.cfg.TargetFPS
	}
	a.last = now

	position := a.clock.Now()
	frame := a.renderer.Render(a.cfg.Chart.Notes, position, render.Status{
		Title:    a.cfg.Chart.Source,
		Now:      position,
		Duration: a.cfg.Chart.Duration,
		Paused:   a.paused,
		FPS:      1.0 / delta,
		Stats:    a.stats,
	})

	if frame.Present != nil {
		if err := frame.Present(frame.Status); err != nil {
			return false, err
		}
	} else {
		moveCursorHome()
		for _, line := range frame.Lines {
			fmt.Println(line)
		}
		if a.cfg.ShowStatusBar {
			fmt.Println(statusBar(frame.Status, a.width))
		}
	}
	return position > a.endTime(), nil
}

func (a *App) endTime() float64 {
	end := a.cfg.Chart.Duration
	for _, n := range a.cfg.Chart.Notes {
		end = max(end, n.End())
	}
	return end + tail
}

func (a *App) ensureDimensions() {
	if a.renderer.Windowed() {
		return
	}
	fd := int(os.Stdout.Fd())
	if fd < 0 {
		return
	}
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 || h <= 0 {
		return
	}

	renderHeight := h
	if a.cfg.ShowStatusBar && renderHeight > 1 {
		renderHeight--
	}

	if w == a.width && h == a.height && renderHeight == a.renderHeight {
		return
	}

	a.width = w
	a.height = h
	a.renderHeight = renderHeight
	a.renderer.Resize(w, renderHeight)
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Printf("keyboard input disabled: %v", err)
		a.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			evt, ok := keyEvent(char, key)
			if !ok {
				continue
			}
			if evt == inputEventQuit {
				events <- evt
				return
			}
			select {
			case events <- evt:
			default:
			}
		}
	}()
}

func keyEvent(char rune, key keyboard.Key) (inputEvent, bool) {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return inputEventQuit, true
	case key == keyboard.KeySpace || char == ' ':
		return inputEventPause, true
	}
	switch char {
	case 'q', 'Q':
		return inputEventQuit, true
	case 'r', 'R':
		return inputEventRestart, true
	case '+', '=':
		return inputEventFaster, true
	case '-', '_':
		return inputEventSlower, true
	}
	return 0, false
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	if len(text) >= width {
		return text[:width]
	}
	return text + strings.Repeat(" ", width-len(text))
}

func clearScreen() {
	fmt.Print("\x1b[2J")
	moveCursorHome()
}

func moveCursorHome() {
	fmt.Print("\x1b[H")
}

func hideCursor() {
	fmt.Print("\x1b[?25l")
}

func showCursor() {
	fmt.Print("\x1b[?25h")
}

func enterAltScreen() {
	fmt.Print("\x1b[?1049h")
}

func exitAltScreen() {
	fmt.Print("\x1b[?1049l\x1b[0m")
}
