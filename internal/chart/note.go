package chart

import (
	"fmt"
	"sort"
)

// Kind distinguishes transient hits from sustained notes.
type Kind uint8

const (
	Tap Kind = iota
	Hold
)

func (k Kind) String() string {
	if k == Hold {
		return "hold"
	}
	return "single"
}

// MarshalText encodes the kind using the wire names "single" and "hold".
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case Tap, Hold:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("unknown note kind %d", k)
	}
}

// UnmarshalText accepts "single" (or "tap") and "hold".
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "single", "tap":
		*k = Tap
	case "hold":
		*k = Hold
	default:
		return fmt.Errorf("unknown note_type %q", text)
	}
	return nil
}

// Note is one timed gameplay event.
//
// Energy is a ranking key used by lane balancing, not a calibrated measurement:
// clustered holds keep the energy of their first onset.
type Note struct {
	Timestamp float64 `json:"timestamp"`
	Lane      int     `json:"lane"`
	Kind      Kind    `json:"note_type"`
	Duration  float64 `json:"duration"`
	Energy    float64 `json:"energy"`
}

// End returns the time the note releases.
func (n Note) End() float64 {
	return n.Timestamp + n.Duration
}

// SortByTime orders notes by ascending timestamp, keeping the relative order of ties.
func SortByTime(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Timestamp < notes[j].Timestamp
	})
}
