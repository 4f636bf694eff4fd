package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/guidoenr/lanechart/internal/pcm"
)

const framesPerBuffer = 1024

// RecordConfig controls a microphone recording.
type RecordConfig struct {
	// DeviceName selects an input by case-insensitive substring; empty picks the best input.
	DeviceName string
	// Channels is 1 or 2. Defaults to 1.
	Channels int
	Duration time.Duration
}

// Recorder captures interleaved input samples until its duration is reached.
type Recorder struct {
	stream     *portaudio.Stream
	release    func()
	sampleRate int
	channels   int
	device     string
	limit      int

	mu       sync.Mutex
	samples  []float32
	done     chan struct{}
	doneOnce sync.Once
}

// NewRecorder opens, but does not start, an input stream.
func NewRecorder(cfg RecordConfig) (*Recorder, error) {
	if cfg.Duration <= 0 {
		return nil, errors.New("record duration must be positive")
	}
	if cfg.Channels != 2 {
		cfg.Channels = 1
	}

	release, err := Acquire()
	if err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}

	device, err := findInput(cfg.DeviceName)
	if err != nil {
		release()
		return nil, err
	}
	channels := min(cfg.Channels, device.MaxInputChannels)
	sampleRate := int(device.DefaultSampleRate)

	r := &Recorder{
		release:    release,
		sampleRate: sampleRate,
		channels:   channels,
		device:     device.Name,
		limit:      int(cfg.Duration.Seconds()*float64(sampleRate)) * channels,
		done:       make(chan struct{}),
	}
	r.samples = make([]float32, 0, r.limit)

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultHighInputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: framesPerBuffer,
	}, r.process)
	if err != nil {
		release()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	r.stream = stream
	return r, nil
}

// Start begins capturing.
func (r *Recorder) Start() error {
	if err := r.stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	return nil
}

// Done is closed once the configured duration has been captured.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Device returns the name of the input being recorded.
func (r *Recorder) Device() string {
	return r.device
}

// Elapsed returns how much audio has been captured so far.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	n := len(r.samples)
	r.mu.Unlock()
	frames := n / r.channels
	return time.Duration(frames) * time.Second / time.Duration(r.sampleRate)
}

// Buffer returns a copy of the captured audio.
func (r *Recorder) Buffer() pcm.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]float32, len(r.samples))
	copy(cp, r.samples)
	return pcm.Buffer{SampleRate: r.sampleRate, Channels: r.channels, Samples: cp}
}

// Close stops the stream and releases PortAudio.
func (r *Recorder) Close() error {
	defer r.release()
	if err := r.stream.Stop(); err != nil && !isInvalidStreamState(err) {
		_ = r.stream.Close()
		return err
	}
	return r.stream.Close()
}

func (r *Recorder) process(in []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var full bool
	r.samples, full = appendCapped(r.samples, in, r.limit)
	if full {
		r.doneOnce.Do(func() { close(r.done) })
	}
}

// appendCapped appends src to dst without growing past limit samples and
// reports whether the limit has been reached.
func appendCapped(dst, src []float32, limit int) ([]float32, bool) {
	room := limit - len(dst)
	if room <= 0 {
		return dst, true
	}
	if len(src) > room {
		src = src[:room]
	}
	dst = append(dst, src...)
	return dst, len(dst) >= limit
}

// Record captures cfg.Duration of audio. Cancelling ctx stops the recording
// early; the audio captured so far is returned.
func Record(ctx context.Context, cfg RecordConfig) (pcm.Buffer, error) {
	r, err := NewRecorder(cfg)
	if err != nil {
		return pcm.Buffer{}, err
	}
	if err := r.Start(); err != nil {
		_ = r.Close()
		return pcm.Buffer{}, err
	}

	select {
	case <-r.Done():
	case <-ctx.Done():
	}

	if err := r.Close(); err != nil {
		return pcm.Buffer{}, fmt.Errorf("close stream: %w", err)
	}
	buf := r.Buffer()
	if err := buf.Validate(); err != nil {
		return pcm.Buffer{}, fmt.Errorf("recording from %s: %w", r.device, err)
	}
	return buf, nil
}
