package analyzer

import (
	"sort"

	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/params"
)

// BalanceTarget returns how many notes each lane may keep: half the busiest
// lane's count, but never less than floor. The default floor of 1 keeps a
// chart whose busiest lane holds a single note; a floor of 0 gives plain
// integer halving.
func BalanceTarget(counts [params.LaneCount]int, floor int) int {
	busiest := 0
	for _, c := range counts {
		busiest = max(busiest, c)
	}
	return max(busiest/2, floor)
}

// Balance thins every lane above the target down to its highest-energy notes.
// With the default floor a lane may keep one note even when plain halving of
// the busiest count would allow none.
// Ties in energy keep the earlier note. The result is sorted by timestamp.
func Balance(notes []chart.Note, floor int) []chart.Note {
	var (
		counts [params.LaneCount]int
		byLane [params.LaneCount][]int
	)
	for i, n := range notes {
		if n.Lane < 0 || n.Lane >= params.LaneCount {
			continue
		}
		counts[n.Lane]++
		byLane[n.Lane] = append(byLane[n.Lane], i)
	}

	target := BalanceTarget(counts, floor)
	drop := make([]bool, len(notes))
	for lane, indices := range byLane {
		if counts[lane] <= target {
			continue
		}
		sort.SliceStable(indices, func(a, b int) bool {
			return notes[indices[a]].Energy > notes[indices[b]].Energy
		})
		for _, idx := range indices[target:] {
			drop[idx] = true
		}
	}

	out := make([]chart.Note, 0, len(notes))
	for i, n := range notes {
		if !drop[i] {
			out = append(out, n)
		}
	}
	chart.SortByTime(out)
	return out
}
