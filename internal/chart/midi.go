package chart

import (
	"io"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	midiResolution = 960
	midiTempo      = 120.0
	midiBaseKey    = 60
	midiTapTicks   = midiResolution / 4
)

type midiEvent struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// LaneKey returns the MIDI key a lane is exported on.
func LaneKey(lane int) uint8 {
	return uint8(midiBaseKey + lane)
}

func secondsToTicks(seconds float64) uint32 {
	if seconds <= 0 {
		return 0
	}
	// one quarter note per 60/tempo seconds
	return uint32(math.Round(seconds * midiTempo / 60 * midiResolution))
}

// WriteMIDI exports the chart as a single-track SMF. Lanes map to keys 60..63 on
// channel 0, taps last a sixteenth note and holds their duration. Velocity follows
// the relative note energy.
func (c *Chart) WriteMIDI(w io.Writer) error {
	notes := make([]Note, len(c.Notes))
	copy(notes, c.Notes)
	SortByTime(notes)

	maxEnergy := 0.0
	for _, n := range notes {
		maxEnergy = math.Max(maxEnergy, n.Energy)
	}

	// next start per note in the same lane, so overlapping key presses never interleave
	nextStart := make([]uint32, len(notes))
	var pending [4]int
	for i := range pending {
		pending[i] = -1
	}
	for i := len(notes) - 1; i >= 0; i-- {
		lane := notes[i].Lane
		nextStart[i] = math.MaxUint32
		if lane < 0 || lane >= len(pending) {
			continue
		}
		if j := pending[lane]; j >= 0 {
			nextStart[i] = secondsToTicks(notes[j].Timestamp)
		}
		pending[lane] = i
	}

	events := make([]midiEvent, 0, len(notes)*2)
	for i, n := range notes {
		start := secondsToTicks(n.Timestamp)
		length := uint32(midiTapTicks)
		if n.Kind == Hold {
			length = secondsToTicks(n.Duration)
		}
		if limit := nextStart[i]; limit != math.MaxUint32 && start+length > limit {
			length = limit - start
		}
		if length == 0 {
			length = 1
		}
		key := LaneKey(n.Lane)
		events = append(events,
			midiEvent{tick: start, on: true, key: key, vel: velocity(n.Energy, maxEnergy)},
			midiEvent{tick: start + length, key: key},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick == events[j].tick {
			return !events[i].on && events[j].on
		}
		return events[i].tick < events[j].tick
	})

	var track smf.Track
	track.Add(0, smf.MetaTempo(midiTempo))
	var last uint32
	for _, e := range events {
		delta := e.tick - last
		last = e.tick
		if e.on {
			track.Add(delta, midi.NoteOn(0, e.key, e.vel))
			continue
		}
		track.Add(delta, midi.NoteOff(0, e.key))
	}
	track.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(midiResolution)
	if err := s.Add(track); err != nil {
		return err
	}
	_, err := s.WriteTo(w)
	return err
}

// WriteMIDIFile exports the chart to path.
func WriteMIDIFile(path string, c *Chart) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.WriteMIDI(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func velocity(energy, maxEnergy float64) uint8 {
	if maxEnergy <= 0 {
		return 100
	}
	ratio := math.Max(0, math.Min(1, energy/maxEnergy))
	return uint8(40 + math.Round(ratio*87))
}
