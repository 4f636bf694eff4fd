// Package decode turns audio files into pcm.Buffers for the analyzer.
package decode

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guidoenr/lanechart/internal/pcm"
)

var (
	// ErrUnsupported means the WAV reader cannot handle the data and ffmpeg must be used.
	ErrUnsupported = errors.New("unsupported audio format")
	// ErrNoDecoder means the data needs ffmpeg but no ffmpeg binary was found.
	ErrNoDecoder = errors.New("ffmpeg not available")
)

// Options configures decoding.
type Options struct {
	// FFmpeg is the binary used for non-WAV input. Defaults to "ffmpeg".
	FFmpeg string
	// SampleRate and Channels describe the ffmpeg output. Default 44100 Hz stereo.
	SampleRate int
	Channels   int
	// Timeout bounds one ffmpeg run. Zero means no limit beyond ctx.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.FFmpeg == "" {
		o.FFmpeg = "ffmpeg"
	}
	if o.SampleRate <= 0 {
		o.SampleRate = 44100
	}
	if o.Channels != 1 {
		o.Channels = 2
	}
	return o
}

// File decodes the audio file at path. WAV files are read natively; anything
// else, and WAV encodings the native reader rejects, go through ffmpeg.
func File(ctx context.Context, path string, opts Options) (pcm.Buffer, error) {
	opts = opts.withDefaults()
	if isWAVName(path) {
		f, err := os.Open(path)
		if err != nil {
			return pcm.Buffer{}, err
		}
		buf, err := WAV(f)
		_ = f.Close()
		if err == nil || !errors.Is(err, ErrUnsupported) {
			return buf, err
		}
	}
	return FFmpegFile(ctx, path, opts)
}

// Bytes decodes an in-memory upload. name is only used to pick the decoder.
func Bytes(ctx context.Context, name string, data []byte, opts Options) (pcm.Buffer, error) {
	opts = opts.withDefaults()
	if isWAVName(name) || looksLikeWAV(data) {
		buf, err := WAV(bytes.NewReader(data))
		if err == nil || !errors.Is(err, ErrUnsupported) {
			return buf, err
		}
	}
	return FFmpegReader(ctx, bytes.NewReader(data), opts)
}

func isWAVName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".wav" || ext == ".wave"
}

func looksLikeWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func finish(buf pcm.Buffer) (pcm.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return pcm.Buffer{}, err
	}
	return buf, nil
}
