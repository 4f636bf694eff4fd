package app

import (
	"sync"
	"time"
)

// Clock is the playback position source of the preview.
type Clock interface {
	Now() float64
	SetPaused(paused bool)
	Seek(seconds float64)
}

// WallClock measures playback time against a time source when no audio plays.
type WallClock struct {
	mu      sync.Mutex
	now     func() time.Time
	base    float64
	started time.Time
	paused  bool
}

// NewWallClock starts a clock at zero.
func NewWallClock(now func() time.Time) *WallClock {
	return &WallClock{now: now, started: now()}
}

// Now returns the elapsed playback time in seconds.
func (c *WallClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position()
}

func (c *WallClock) position() float64 {
	if c.paused {
		return c.base
	}
	return c.base + c.now().Sub(c.started).Seconds()
}

// SetPaused freezes or resumes the clock.
func (c *WallClock) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if paused == c.paused {
		return
	}
	c.base = c.position()
	c.started = c.now()
	c.paused = paused
}

// Seek jumps to seconds, keeping the paused state.
func (c *WallClock) Seek(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = max(seconds, 0)
	c.started = c.now()
}
