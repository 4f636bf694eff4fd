package analyzer

import (
	"math"

	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/params"
)

// Classifier decides tap vs hold by looking ahead in the raw mono signal.
type Classifier struct {
	p          params.Parameters
	signal     []float64
	sampleRate int
}

// NewClassifier builds a classifier over the mono signal.
func NewClassifier(p params.Parameters, signal []float64, sampleRate int) Classifier {
	return Classifier{p: p, signal: signal, sampleRate: sampleRate}
}

// SustainRun counts consecutive hop-spaced windows after the onset whose mean
// absolute amplitude stays at or above energy*SustainRatio. The first dip, or a
// window running past the end of the signal, ends the run.
func (c Classifier) SustainRun(o Onset) int {
	floor := o.Energy * c.p.SustainRatio
	run := 0
	for step := 1; step <= c.p.Lookahead; step++ {
		start := o.Offset + step*c.p.HopLength
		end := start + c.p.FrameLength
		if end > len(c.signal) {
			break
		}
		if meanAbs(c.signal[start:end]) < floor {
			break
		}
		run++
	}
	return run
}

// Classify turns an onset into a note.
func (c Classifier) Classify(o Onset) chart.Note {
	note := chart.Note{
		Timestamp: o.Timestamp,
		Lane:      o.Lane,
		Kind:      chart.Tap,
		Energy:    o.Energy,
	}
	run := c.SustainRun(o)
	if 2*run >= c.p.Lookahead {
		note.Kind = chart.Hold
		hop := c.p.HopSeconds(c.sampleRate)
		note.Duration = clamp(float64(run)*hop, c.p.HoldMin, c.p.HoldMax)
	}
	return note
}

func meanAbs(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range window {
		sum += math.Abs(v)
	}
	return sum / float64(len(window))
}
