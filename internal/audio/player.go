package audio

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/guidoenr/lanechart/internal/pcm"
)

// Player streams a pcm.Buffer to the default output device and reports the
// playback position, which the preview uses as its clock. Once the buffer is
// exhausted it plays silence and the position keeps advancing.
type Player struct {
	stream  *portaudio.Stream
	release func()
	buf     pcm.Buffer

	frame  atomic.Int64
	paused atomic.Bool
}

// NewPlayer opens an output stream matching the buffer's rate and channel count.
func NewPlayer(buf pcm.Buffer) (*Player, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	release, err := Acquire()
	if err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}

	p := &Player{release: release, buf: buf}
	stream, err := portaudio.OpenDefaultStream(0, buf.Channels, float64(buf.SampleRate), framesPerBuffer, p.process)
	if err != nil {
		release()
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	p.stream = stream
	return p, nil
}

// Start begins playback from the current position.
func (p *Player) Start() error {
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	return nil
}

// Now returns the playback position in seconds.
func (p *Player) Now() float64 {
	return float64(p.frame.Load()) / float64(p.buf.SampleRate)
}

// SetPaused pauses or resumes playback. A paused player outputs silence.
func (p *Player) SetPaused(paused bool) {
	p.paused.Store(paused)
}

// Seek moves the playback position, clamped to the buffer.
func (p *Player) Seek(seconds float64) {
	frame := int64(seconds * float64(p.buf.SampleRate))
	p.frame.Store(clampFrame(frame, int64(p.buf.Frames())))
}

// Close stops playback and releases PortAudio.
func (p *Player) Close() error {
	defer p.release()
	if err := p.stream.Stop(); err != nil && !isInvalidStreamState(err) {
		_ = p.stream.Close()
		return err
	}
	return p.stream.Close()
}

func (p *Player) process(out []float32) {
	if p.paused.Load() {
		clear(out)
		return
	}
	frame := p.frame.Load()
	fill(out, p.buf.Samples, p.buf.Channels, frame)
	// the clock keeps running through the silence after the last sample
	p.frame.CompareAndSwap(frame, frame+int64(len(out)/p.buf.Channels))
}

// fill copies interleaved samples starting at frame into out, pads the rest
// with silence and returns how many frames were consumed.
func fill(out, samples []float32, channels int, frame int64) int64 {
	start := int(frame) * channels
	if start >= len(samples) || start < 0 {
		clear(out)
		return 0
	}
	n := copy(out, samples[start:])
	clear(out[n:])
	return int64(n / channels)
}

func clampFrame(frame, total int64) int64 {
	if frame < 0 {
		return 0
	}
	if frame > total {
		return total
	}
	return frame
}
