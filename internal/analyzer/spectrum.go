package analyzer

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

// Bin is one spectrum line.
type Bin struct {
	Freq      float64
	Magnitude float64
}

// Spectrum holds the magnitude bins of one frame inside the analysis range.
type Spectrum []Bin

// spectralAnalyzer applies a Hann window and a real FFT to fixed-length frames.
// It is safe for concurrent use; callers supply their own scratch buffer.
type spectralAnalyzer struct {
	length     int
	window     []float64
	gain       float64
	resolution float64
	lo, hi     int
}

func newSpectralAnalyzer(sampleRate, length int, minHz, maxHz float64) *spectralAnalyzer {
	coeffs := make([]float64, length)
	for i := range coeffs {
		coeffs[i] = 1
	}
	coeffs = window.Hann(coeffs)

	sum := 0.0
	for _, w := range coeffs {
		sum += w
	}
	gain := 0.0
	if sum > 0 {
		// an on-bin sinusoid of amplitude A reads as A
		gain = 2 / sum
	}

	resolution := float64(sampleRate) / float64(length)
	lo := int(math.Ceil(minHz / resolution))
	hi := int(math.Floor(maxHz / resolution))
	if hi > length/2 {
		hi = length / 2
	}

	return &spectralAnalyzer{
		length:     length,
		window:     coeffs,
		gain:       gain,
		resolution: resolution,
		lo:         lo,
		hi:         hi,
	}
}

func (s *spectralAnalyzer) analyze(frame, scratch []float64) (Spectrum, error) {
	if len(frame) == 0 || len(frame) != s.length {
		return nil, fmt.Errorf("frame has %d samples, want %d", len(frame), s.length)
	}
	if len(scratch) < s.length {
		scratch = make([]float64, s.length)
	}
	windowed := scratch[:s.length]
	for i, v := range frame {
		windowed[i] = v * s.window[i]
	}

	coeffs := fft.FFTReal(windowed)

	if s.hi < s.lo {
		return Spectrum{}, nil
	}
	spectrum := make(Spectrum, 0, s.hi-s.lo+1)
	for k := s.lo; k <= s.hi; k++ {
		mag := cmag(coeffs[k]) * s.gain
		if math.IsNaN(mag) || math.IsInf(mag, 0) {
			return nil, fmt.Errorf("non-finite magnitude at %.1f Hz", float64(k)*s.resolution)
		}
		spectrum = append(spectrum, Bin{Freq: float64(k) * s.resolution, Magnitude: mag})
	}
	return spectrum, nil
}
