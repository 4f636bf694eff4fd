package analyzer

import "github.com/guidoenr/lanechart/internal/params"

// FrameEnergy is the band energy of one frame together with its position.
type FrameEnergy struct {
	Index    int
	Offset   int
	Energies BandEnergies
}

// Onset is a detected rise in one band that survived the same-lane gap guard.
type Onset struct {
	Offset    int
	Timestamp float64
	Lane      int
	Energy    float64
}

// OnsetState is the history carried from one frame to the next.
type OnsetState struct {
	Previous BandEnergies

	lastEmitted [params.LaneCount]float64
	emitted     [params.LaneCount]bool
}

// Detector compares each band against an adaptive threshold built from the
// previous frame only: no smoothing, no hysteresis.
type Detector struct {
	p          params.Parameters
	sampleRate int
}

// NewDetector builds a detector for signals at sampleRate.
func NewDetector(p params.Parameters, sampleRate int) Detector {
	return Detector{p: p, sampleRate: sampleRate}
}

// Step folds one frame into the state and returns the onsets it fires.
// Previous energies are replaced by the raw energies of this frame whether or
// not a band fired.
func (d Detector) Step(state OnsetState, frame FrameEnergy) (OnsetState, []Onset) {
	var onsets []Onset
	timestamp := float64(frame.Offset) / float64(d.sampleRate)

	for lane, current := range frame.Energies {
		previous := state.Previous[lane]
		increase := current - previous
		threshold := previous*d.p.ThresholdScale + d.p.ThresholdOffset

		if current <= threshold || increase <= d.p.MinIncrease || current <= d.p.MinAbsolute {
			continue
		}
		if state.emitted[lane] && timestamp-state.lastEmitted[lane] < d.p.MinNoteGap {
			continue
		}

		state.emitted[lane] = true
		state.lastEmitted[lane] = timestamp
		onsets = append(onsets, Onset{
			Offset:    frame.Offset,
			Timestamp: timestamp,
			Lane:      lane,
			Energy:    current,
		})
	}

	state.Previous = frame.Energies
	return state, onsets
}

// Detect runs the detector over frames in order.
func (d Detector) Detect(frames []FrameEnergy) []Onset {
	var (
		state  OnsetState
		onsets []Onset
	)
	for _, frame := range frames {
		var fired []Onset
		state, fired = d.Step(state, frame)
		onsets = append(onsets, fired...)
	}
	return onsets
}
