package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/guidoenr/lanechart/internal/pcm"
)

const wavFormatPCM = 1

// WAV reads an integer PCM WAV stream with one or two channels and scales the
// samples into [-1, 1). Float and compressed WAV encodings report ErrUnsupported.
func WAV(r io.ReadSeeker) (pcm.Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return pcm.Buffer{}, fmt.Errorf("%w: not a valid wav stream", ErrUnsupported)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return pcm.Buffer{}, fmt.Errorf("%w: wav format tag %d", ErrUnsupported, d.WavAudioFormat)
	}

	depth := int(d.BitDepth)
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return pcm.Buffer{}, fmt.Errorf("%w: %d-bit wav", ErrUnsupported, depth)
	}

	ib, err := d.FullPCMBuffer()
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("read wav: %w", err)
	}

	samples := make([]float32, len(ib.Data))
	scale := 1 / float64(int64(1)<<(depth-1))
	for i, v := range ib.Data {
		if depth == 8 {
			// 8-bit wav is unsigned
			v -= 128
		}
		samples[i] = float32(float64(v) * scale)
	}

	return finish(pcm.Buffer{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		Samples:    samples,
	})
}
