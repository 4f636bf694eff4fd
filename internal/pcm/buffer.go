package pcm

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty      = errors.New("empty sample buffer")
	ErrChannels   = errors.New("unsupported channel count")
	ErrSampleRate = errors.New("sample rate must be positive")
)

// Buffer is a decoded recording: interleaved float samples in roughly [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Validate reports whether the buffer satisfies the input contract of the analyzer.
func (b Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w (got %d)", ErrSampleRate, b.SampleRate)
	}
	if b.Channels != 1 && b.Channels != 2 {
		return fmt.Errorf("%w (got %d)", ErrChannels, b.Channels)
	}
	if len(b.Samples) == 0 {
		return ErrEmpty
	}
	return nil
}

// Frames returns the number of per-channel frames held by the buffer.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}
