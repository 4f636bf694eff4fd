package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/guidoenr/lanechart/internal/pcm"
)

// FFmpegFile decodes path with ffmpeg into interleaved float32 samples.
func FFmpegFile(ctx context.Context, path string, opts Options) (pcm.Buffer, error) {
	return runFFmpeg(ctx, path, nil, opts.withDefaults())
}

// FFmpegReader feeds r to ffmpeg on stdin.
func FFmpegReader(ctx context.Context, r io.Reader, opts Options) (pcm.Buffer, error) {
	return runFFmpeg(ctx, "pipe:0", r, opts.withDefaults())
}

func runFFmpeg(ctx context.Context, input string, stdin io.Reader, opts Options) (pcm.Buffer, error) {
	bin, err := exec.LookPath(opts.FFmpeg)
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("%w: %v", ErrNoDecoder, err)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := []string{
		"-hide_banner", "-v", "error",
		"-i", input,
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-f", "f32le",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var out, stderr bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return pcm.Buffer{}, fmt.Errorf("ffmpeg decode: %w", ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return pcm.Buffer{}, fmt.Errorf("ffmpeg decode: %w", err)
		}
		return pcm.Buffer{}, fmt.Errorf("ffmpeg decode: %w: %s", err, msg)
	}

	samples, err := parseF32LE(out.Bytes())
	if err != nil {
		return pcm.Buffer{}, err
	}
	return finish(pcm.Buffer{
		SampleRate: opts.SampleRate,
		Channels:   opts.Channels,
		Samples:    samples,
	})
}

func parseF32LE(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, errors.New("ffmpeg decode: output is not a whole number of float32 samples")
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}
