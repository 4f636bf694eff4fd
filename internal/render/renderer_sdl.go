//go:build sdl

package render

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

type sdlState struct {
	window      *sdl.Window
	renderer    *sdl.Renderer
	windowTitle string
}

func (r *Renderer) initSDL(width, height int) error {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return err
	}
	window, err := sdl.CreateWindow(
		"lanechart",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(width), int32(height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return err
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return err
	}
	r.sdl = &sdlState{window: window, renderer: renderer}
	r.mode = backendSDL
	r.useANSI = false
	return nil
}

func (r *Renderer) renderSDL(spans []span, g geometry, status string) Frame {
	state := r.sdl
	if state == nil || state.renderer == nil {
		err := fmt.Errorf("SDL backend not initialized")
		return Frame{Status: status, Present: func(string) error { return err }}
	}
	width, height := r.width, r.height

	return Frame{
		Status: status,
		Present: func(status string) error {
			if status != "" && status != state.windowTitle {
				state.window.SetTitle(status)
				state.windowTitle = status
			}
			rd := state.renderer
			_ = rd.SetDrawColor(12, 12, 16, 255)
			if err := rd.Clear(); err != nil {
				return err
			}

			cols := laneColumns(width)
			_ = rd.SetDrawColor(60, 60, 70, 255)
			for _, c := range cols {
				_ = rd.DrawLine(int32(c.start-1), 0, int32(c.start-1), int32(height))
				_ = rd.DrawLine(int32(c.start+c.width), 0, int32(c.start+c.width), int32(height))
			}

			var active [len(cols)]bool
			for _, s := range spans {
				c := cols[s.lane]
				if s.active {
					active[s.lane] = true
				}
				if s.hold && s.tail < s.head {
					r.setLaneColor(s.lane, 0.55)
					inset := int32(c.width / 4)
					_ = rd.FillRect(&sdl.Rect{X: int32(c.start) + inset, Y: int32(s.tail), W: int32(c.width) - 2*inset, H: int32(s.head - s.tail)})
				}
				r.setLaneColor(s.lane, 1)
				_ = rd.FillRect(&sdl.Rect{X: int32(c.start), Y: int32(s.head) - 6, W: int32(c.width), H: 12})
			}

			for lane, c := range cols {
				brightness := 0.45
				if active[lane] {
					brightness = 1
				}
				r.setLaneColor(lane, brightness)
				_ = rd.FillRect(&sdl.Rect{X: int32(c.start), Y: int32(g.hitRow) - 2, W: int32(c.width), H: 4})
			}
			rd.Present()

			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch e := event.(type) {
				case *sdl.QuitEvent:
					return ErrRendererQuit
				case *sdl.WindowEvent:
					if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
						r.Resize(int(e.Data1), int(e.Data2))
					}
				}
			}
			return nil
		},
	}
}

func (r *Renderer) setLaneColor(lane int, brightness float64) {
	rr, gg, bb := hsvToRGB(r.laneHSV(lane, brightness))
	_ = r.sdl.renderer.SetDrawColor(uint8(clamp(rr*255, 0, 255)), uint8(clamp(gg*255, 0, 255)), uint8(clamp(bb*255, 0, 255)), 255)
}

func (r *Renderer) resizeSDL() {
	if r.sdl == nil || r.sdl.renderer == nil {
		return
	}
	_ = r.sdl.renderer.SetLogicalSize(int32(r.width), int32(r.height))
}

func (r *Renderer) closeSDL() error {
	if r.sdl == nil {
		return nil
	}
	if r.sdl.renderer != nil {
		r.sdl.renderer.Destroy()
	}
	if r.sdl.window != nil {
		r.sdl.window.Destroy()
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	r.sdl = nil
	r.mode = backendTerminal
	return nil
}

func (r *Renderer) windowedSDL() bool {
	return r.sdl != nil
}

func SupportsSDL() bool { return true }
