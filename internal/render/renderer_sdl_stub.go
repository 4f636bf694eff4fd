//go:build !sdl

package render

import "errors"

type sdlState struct{}

var errNoSDL = errors.New("this build has no SDL window; rebuild with -tags sdl")

func (r *Renderer) initSDL(width, height int) error {
	return errNoSDL
}

func (r *Renderer) renderSDL(spans []span, g geometry, status string) Frame {
	return Frame{
		Status: status,
		Present: func(string) error {
			return ErrRendererQuit
		},
	}
}

func (r *Renderer) resizeSDL() {}

func (r *Renderer) closeSDL() error { return nil }

func (r *Renderer) windowedSDL() bool { return false }

// SupportsSDL reports whether the window backend was compiled in.
func SupportsSDL() bool { return false }
