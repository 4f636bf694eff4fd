package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// LaneCount is fixed: one frequency band per gameplay lane.
const LaneCount = 4

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid parameters")

// Band is a half-open frequency range [Low, High) in Hz.
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether freq falls inside the band.
func (b Band) Contains(freq float64) bool {
	return freq >= b.Low && freq < b.High
}

// Parameters holds every tunable of the note generation pipeline.
type Parameters struct {
	// Framing, in samples.
	FrameLength int `json:"frame_length"`
	HopLength   int `json:"hop_length"`

	// Spectrum limits in Hz and the per-lane bands.
	MinFreq float64         `json:"min_freq"`
	MaxFreq float64         `json:"max_freq"`
	Bands   [LaneCount]Band `json:"bands"`

	// Onset detection.
	ThresholdScale  float64 `json:"threshold_scale"`
	ThresholdOffset float64 `json:"threshold_offset"`
	MinIncrease     float64 `json:"min_increase"`
	MinAbsolute     float64 `json:"min_absolute"`
	MinNoteGap      float64 `json:"min_note_gap"`

	// Tap/hold classification.
	Lookahead    int     `json:"lookahead"`
	SustainRatio float64 `json:"sustain_ratio"`
	HoldMin      float64 `json:"hold_min"`
	HoldMax      float64 `json:"hold_max"`

	// Post-processing.
	ClusterWindow      float64 `json:"cluster_window"`
	ClusterPadding     float64 `json:"cluster_padding"`
	ClusterMaxDuration float64 `json:"cluster_max_duration"`
	MinGlobalGap       float64 `json:"min_global_gap"`

	// Lane balancing.
	Balance      bool `json:"balance"`
	BalanceFloor int  `json:"balance_floor"`

	// Workers bounds frame-parallel spectral analysis; 0 means GOMAXPROCS.
	Workers int `json:"workers"`
}

// Defaults returns the standard pipeline configuration.
func Defaults() Parameters {
	return Parameters{
		FrameLength: 512,
		HopLength:   256,
		MinFreq:     20,
		MaxFreq:     20000,
		Bands: [LaneCount]Band{
			{Low: 20, High: 100},   // bass
			{Low: 100, High: 300},  // low-mid
			{Low: 300, High: 800},  // mid
			{Low: 800, High: 2000}, // high
		},
		ThresholdScale:     2.0,
		ThresholdOffset:    0.2,
		MinIncrease:        0.15,
		MinAbsolute:        0.3,
		MinNoteGap:         0.1,
		Lookahead:          8,
		SustainRatio:       0.6,
		HoldMin:            0.3,
		HoldMax:            1.5,
		ClusterWindow:      0.12,
		ClusterPadding:     0.1,
		ClusterMaxDuration: 3.0,
		MinGlobalGap:       0.03,
		Balance:            true,
		BalanceFloor:       1,
	}
}

var presets = map[string]func() Parameters{
	"standard": Defaults,
	"sensitive": func() Parameters {
		p := Defaults()
		p.ThresholdScale = 1.5
		p.ThresholdOffset = 0.1
		p.MinIncrease = 0.1
		p.MinAbsolute = 0.2
		return p
	},
	"sustain": func() Parameters {
		p := Defaults()
		p.Lookahead = 24
		return p
	},
	"raw": func() Parameters {
		p := Defaults()
		p.Balance = false
		return p
	},
}

// PresetNames returns the known preset identifiers in sorted order.
func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for name := range presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Preset returns the named configuration. An empty name selects "standard".
func Preset(name string) (Parameters, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "standard"
	}
	build, ok := presets[key]
	if !ok {
		return Parameters{}, fmt.Errorf("unknown preset %q (known: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return build(), nil
}

// HopSeconds converts the hop length to seconds at the given sample rate.
func (p Parameters) HopSeconds(sampleRate int) float64 {
	return float64(p.HopLength) / float64(sampleRate)
}

// Validate checks the parameter combination once, before a run.
func (p Parameters) Validate() error {
	switch {
	case p.FrameLength < 2:
		return invalid("frame_length must be at least 2 (got %d)", p.FrameLength)
	case p.HopLength <= 0:
		return invalid("hop_length must be positive (got %d)", p.HopLength)
	case p.HopLength >= p.FrameLength:
		return invalid("hop_length %d must be smaller than frame_length %d", p.HopLength, p.FrameLength)
	case p.MinFreq <= 0 || p.MaxFreq <= p.MinFreq:
		return invalid("analysis range [%g, %g] is empty", p.MinFreq, p.MaxFreq)
	}
	for i, b := range p.Bands {
		if b.Low >= b.High {
			return invalid("band %d [%g, %g) is empty", i, b.Low, b.High)
		}
		if b.Low < p.MinFreq || b.High > p.MaxFreq {
			return invalid("band %d [%g, %g) outside analysis range [%g, %g]", i, b.Low, b.High, p.MinFreq, p.MaxFreq)
		}
	}
	switch {
	case p.ThresholdScale < 0 || p.ThresholdOffset < 0 || p.MinIncrease < 0 || p.MinAbsolute < 0:
		return invalid("onset thresholds must be non-negative")
	case p.MinNoteGap < 0 || p.MinGlobalGap < 0 || p.ClusterWindow < 0 || p.ClusterPadding < 0:
		return invalid("gaps and windows must be non-negative")
	case p.Lookahead < 1:
		return invalid("lookahead must be at least 1 (got %d)", p.Lookahead)
	case p.SustainRatio <= 0:
		return invalid("sustain_ratio must be positive (got %g)", p.SustainRatio)
	case p.HoldMin <= 0 || p.HoldMax < p.HoldMin:
		return invalid("hold range [%g, %g] is invalid", p.HoldMin, p.HoldMax)
	case p.ClusterMaxDuration < p.HoldMin:
		return invalid("cluster_max_duration %g below hold_min %g", p.ClusterMaxDuration, p.HoldMin)
	case p.BalanceFloor < 0:
		return invalid("balance_floor must be non-negative (got %d)", p.BalanceFloor)
	case p.Workers < 0:
		return invalid("workers must be non-negative (got %d)", p.Workers)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Load reads a JSON parameter file. Fields missing from the file keep their default values.
func Load(path string) (Parameters, error) {
	return LoadOver(path, Defaults())
}

// LoadOver reads a JSON parameter file on top of base.
func LoadOver(path string, base Parameters) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, err
	}
	p := base
	if err := json.Unmarshal(data, &p); err != nil {
		return Parameters{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

// Save writes p as indented JSON.
func Save(path string, p Parameters) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
