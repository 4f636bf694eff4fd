package analyzer

import (
	"math"

	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/params"
)

type openCluster struct {
	index int
	first float64
	last  float64
	size  int
}

// Cluster collapses runs of same-lane notes whose consecutive gaps are within
// ClusterWindow into one hold spanning the run plus ClusterPadding, capped at
// ClusterMaxDuration. Single notes pass through unchanged. Input must be sorted
// by timestamp; output stays sorted.
func Cluster(notes []chart.Note, p params.Parameters) []chart.Note {
	out := make([]chart.Note, 0, len(notes))
	var open [params.LaneCount]*openCluster

	closeCluster := func(c *openCluster) {
		if c == nil || c.size < 2 {
			return
		}
		n := &out[c.index]
		n.Kind = chart.Hold
		duration := math.Min(c.last-c.first+p.ClusterPadding, p.ClusterMaxDuration)
		n.Duration = math.Max(duration, p.HoldMin)
	}

	for _, n := range notes {
		if n.Lane < 0 || n.Lane >= params.LaneCount {
			continue
		}
		if c := open[n.Lane]; c != nil && n.Timestamp-c.last <= p.ClusterWindow {
			c.last = n.Timestamp
			c.size++
			continue
		}
		closeCluster(open[n.Lane])
		out = append(out, n)
		open[n.Lane] = &openCluster{index: len(out) - 1, first: n.Timestamp, last: n.Timestamp, size: 1}
	}
	for _, c := range open {
		closeCluster(c)
	}
	return out
}

// FilterGap drops every note closer than gap to the previous kept note, in any lane.
func FilterGap(notes []chart.Note, gap float64) []chart.Note {
	out := make([]chart.Note, 0, len(notes))
	for _, n := range notes {
		if len(out) > 0 && n.Timestamp-out[len(out)-1].Timestamp < gap {
			continue
		}
		out = append(out, n)
	}
	return out
}
