package analyzer

import "fmt"

// Mono averages interleaved channels into a single signal. A trailing partial
// frame is dropped; a single channel is copied through unchanged.
func Mono(samples []float32, channels int) ([]float64, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidInput, channels)
	}
	if channels == 1 {
		out := make([]float64, len(samples))
		for i, s := range samples {
			out[i] = float64(s)
		}
		return out, nil
	}

	out := make([]float64, len(samples)/channels)
	scale := 1.0 / float64(channels)
	for i := range out {
		sum := 0.0
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += float64(samples[base+ch])
		}
		out[i] = sum * scale
	}
	return out, nil
}
