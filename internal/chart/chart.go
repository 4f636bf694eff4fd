package chart

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Chart is a generated note sequence plus the metadata needed to replay it.
type Chart struct {
	ID         string  `json:"id,omitempty"`
	Source     string  `json:"source,omitempty"`
	SampleRate int     `json:"sample_rate"`
	Duration   float64 `json:"duration"`
	Preset     string  `json:"preset,omitempty"`
	Notes      []Note  `json:"notes"`
}

// Stats summarises a chart for status lines and API responses.
type Stats struct {
	Lanes   [4]int  `json:"lanes"`
	Taps    int     `json:"taps"`
	Holds   int     `json:"holds"`
	Density float64 `json:"density"`
}

// Stats counts notes per lane and per kind. Density is notes per second of audio.
func (c *Chart) Stats() Stats {
	var s Stats
	for _, n := range c.Notes {
		if n.Lane >= 0 && n.Lane < len(s.Lanes) {
			s.Lanes[n.Lane]++
		}
		if n.Kind == Hold {
			s.Holds++
		} else {
			s.Taps++
		}
	}
	if c.Duration > 0 {
		s.Density = float64(len(c.Notes)) / c.Duration
	}
	return s
}

// Encode writes the chart as indented JSON.
func (c *Chart) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// Decode reads a chart from JSON.
func Decode(r io.Reader) (*Chart, error) {
	var c Chart
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	return &c, nil
}

// WriteFile stores the chart at path.
func WriteFile(path string, c *Chart) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a chart from path.
func ReadFile(path string) (*Chart, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
