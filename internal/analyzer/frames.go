package analyzer

import "iter"

// Framer slides a fixed window over a signal. Frames that would run past the
// end of the signal are dropped, never zero-padded.
type Framer struct {
	Length int
	Hop    int
}

// Count returns how many full frames fit in a signal of n samples.
func (f Framer) Count(n int) int {
	if f.Length <= 0 || f.Hop <= 0 || n < f.Length {
		return 0
	}
	return (n-f.Length)/f.Hop + 1
}

// Offsets yields the start offset of every full frame. The sequence can be
// ranged over any number of times.
func (f Framer) Offsets(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if f.Length <= 0 || f.Hop <= 0 {
			return
		}
		for offset := 0; offset+f.Length <= n; offset += f.Hop {
			if !yield(offset) {
				return
			}
		}
	}
}

// Frame returns a read-only view of the frame starting at offset.
func (f Framer) Frame(signal []float64, offset int) []float64 {
	end := offset + f.Length
	return signal[offset:end:end]
}
