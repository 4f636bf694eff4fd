package analyzer

import (
	"math"
	"testing"

	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/params"
)

func sineFrame(length, sampleRate int, freq, amp, phase float64) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)+phase)
	}
	return out
}

func TestSpectrumRange(t *testing.T) {
	s := newSpectralAnalyzer(44100, 512, 20, 20000)
	spectrum, err := s.analyze(make([]float64, 512), nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(spectrum) != 232 {
		t.Fatalf("got %d bins want 232", len(spectrum))
	}
	if spectrum[0].Freq < 20 || spectrum[len(spectrum)-1].Freq > 20000 {
		t.Fatalf("bins outside range: %f..%f", spectrum[0].Freq, spectrum[len(spectrum)-1].Freq)
	}

	// at 8 kHz the Nyquist limit caps the range before 20 kHz does
	s = newSpectralAnalyzer(8000, 512, 20, 20000)
	spectrum, err = s.analyze(make([]float64, 512), nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if last := spectrum[len(spectrum)-1].Freq; last != 4000 {
		t.Fatalf("last bin %f want 4000", last)
	}
}

func TestSpectrumNormalisesAmplitude(t *testing.T) {
	const sr = 44100
	freq := float64(sr) / 512
	s := newSpectralAnalyzer(sr, 512, 20, 20000)
	for _, phase := range []float64{0, 1, 2.5} {
		spectrum, err := s.analyze(sineFrame(512, sr, freq, 0.8, phase), make([]float64, 512))
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if got := spectrum[0].Magnitude; math.Abs(got-0.8) > 0.01 {
			t.Fatalf("phase %.1f: magnitude=%f want=0.8", phase, got)
		}
	}
}

func TestSpectrumRejectsBadFrames(t *testing.T) {
	s := newSpectralAnalyzer(44100, 512, 20, 20000)
	if _, err := s.analyze(make([]float64, 100), nil); err == nil {
		t.Fatalf("expected an error for a short frame")
	}
	frame := make([]float64, 512)
	frame[10] = math.NaN()
	if _, err := s.analyze(frame, nil); err == nil {
		t.Fatalf("expected an error for a NaN sample")
	}
}

func TestEnergiesSplitIntoBands(t *testing.T) {
	const sr = 44100
	s := newSpectralAnalyzer(sr, 512, 20, 20000)
	spectrum, err := s.analyze(sineFrame(512, sr, float64(sr)/512, 0.8, 0), nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	e := Energies(spectrum, params.Defaults().Bands)
	if math.Abs(e[0]-0.8) > 0.01 {
		t.Fatalf("bass=%f want=0.8", e[0])
	}
	// the Hann main lobe leaks half the amplitude into the next bin
	if math.Abs(e[1]-0.4) > 0.01 {
		t.Fatalf("low-mid=%f want=0.4", e[1])
	}
	if e[2] > 0.01 || e[3] > 0.01 {
		t.Fatalf("upper bands should be quiet: %v", e)
	}
}

func TestEnergiesIgnoreBinsOutsideBands(t *testing.T) {
	spectrum := Spectrum{{Freq: 10, Magnitude: 5}, {Freq: 100, Magnitude: 1}, {Freq: 2000, Magnitude: 7}}
	e := Energies(spectrum, params.Defaults().Bands)
	if e != (BandEnergies{0, 1, 0, 0}) {
		t.Fatalf("energies=%v", e)
	}
}

func TestDetectorConditions(t *testing.T) {
	d := NewDetector(params.Defaults(), 1000)
	cases := []struct {
		name     string
		previous float64
		current  float64
		fire     bool
	}{
		{"clear rise", 0, 0.5, true},
		{"below absolute floor", 0, 0.29, false},
		{"below adaptive threshold", 0.3, 0.75, false},
		{"above adaptive threshold", 0.3, 0.85, true},
		{"steady", 0.6, 0.6, false},
	}
	for _, tc := range cases {
		state := OnsetState{Previous: BandEnergies{tc.previous}}
		_, onsets := d.Step(state, FrameEnergy{Energies: BandEnergies{tc.current}})
		if fired := len(onsets) == 1; fired != tc.fire {
			t.Fatalf("%s: fired=%v want=%v", tc.name, fired, tc.fire)
		}
	}
}

func TestDetectorReplacesPreviousEveryFrame(t *testing.T) {
	d := NewDetector(params.Defaults(), 1000)
	frame := FrameEnergy{Energies: BandEnergies{0.1, 0.2, 0.05, 0}}
	state, onsets := d.Step(OnsetState{}, frame)
	if len(onsets) != 0 {
		t.Fatalf("unexpected onsets %v", onsets)
	}
	if state.Previous != frame.Energies {
		t.Fatalf("previous=%v want=%v", state.Previous, frame.Energies)
	}
}

func TestDetectorSameLaneGap(t *testing.T) {
	d := NewDetector(params.Defaults(), 1000)
	loud := BandEnergies{1, 0, 0, 0}
	frames := []FrameEnergy{
		{Offset: 0, Energies: loud},
		{Offset: 30},
		{Offset: 60, Energies: loud}, // 0.06 s after the first: suppressed
		{Offset: 90},
		{Offset: 120, Energies: loud}, // measured from the last emitted onset, not the suppressed one
	}
	onsets := d.Detect(frames)
	if len(onsets) != 2 {
		t.Fatalf("got %d onsets want 2: %v", len(onsets), onsets)
	}
	if onsets[0].Timestamp != 0 || math.Abs(onsets[1].Timestamp-0.12) > 1e-12 {
		t.Fatalf("timestamps %f, %f", onsets[0].Timestamp, onsets[1].Timestamp)
	}
}

func TestDetectorLanesAreIndependent(t *testing.T) {
	d := NewDetector(params.Defaults(), 1000)
	frames := []FrameEnergy{
		{Offset: 0, Energies: BandEnergies{1, 0, 0, 0}},
		{Offset: 20, Energies: BandEnergies{0, 1, 0, 0}},
		{Offset: 40, Energies: BandEnergies{0, 0, 1, 1}},
	}
	onsets := d.Detect(frames)
	if len(onsets) != 4 {
		t.Fatalf("got %d onsets want 4", len(onsets))
	}
	for i, want := range []int{0, 1, 2, 3} {
		if onsets[i].Lane != want {
			t.Fatalf("onset %d lane=%d want=%d", i, onsets[i].Lane, want)
		}
	}
}

func TestSustainRunAndClassify(t *testing.T) {
	p := params.Defaults()
	constant := func(n int) []float64 {
		s := make([]float64, n)
		for i := range s {
			s[i] = 0.5
		}
		return s
	}
	onset := Onset{Offset: 0, Lane: 2, Energy: 0.5}

	cases := []struct {
		name    string
		samples int
		run     int
		kind    chart.Kind
	}{
		{"full lookahead", 4000, 8, chart.Hold},
		{"exactly half", 4*256 + 512, 4, chart.Hold},
		{"just under half", 4*256 + 511, 3, chart.Tap},
		{"window past end", 1000, 1, chart.Tap},
	}
	for _, tc := range cases {
		c := NewClassifier(p, constant(tc.samples), 44100)
		if got := c.SustainRun(onset); got != tc.run {
			t.Fatalf("%s: run=%d want=%d", tc.name, got, tc.run)
		}
		note := c.Classify(onset)
		if note.Kind != tc.kind {
			t.Fatalf("%s: kind=%s want=%s", tc.name, note.Kind, tc.kind)
		}
		if note.Kind == chart.Tap && note.Duration != 0 {
			t.Fatalf("%s: tap with duration %f", tc.name, note.Duration)
		}
		if note.Kind == chart.Hold && note.Duration != p.HoldMin {
			t.Fatalf("%s: hold duration=%f want=%f", tc.name, note.Duration, p.HoldMin)
		}
	}
}

func TestClassifyDipEndsRun(t *testing.T) {
	p := params.Defaults()
	signal := make([]float64, 4000)
	for i := range 256 * 3 {
		signal[i] = 1
	}
	c := NewClassifier(p, signal, 44100)
	// the second lookahead window is half silent and falls under the floor
	if got := c.SustainRun(Onset{Energy: 1}); got != 1 {
		t.Fatalf("run=%d want=1", got)
	}
}

func TestClassifyClampsToHoldMax(t *testing.T) {
	p := params.Defaults()
	signal := make([]float64, 4000)
	for i := range signal {
		signal[i] = 1
	}
	// at 1 kHz a hop is 0.256 s, so a full run is 2.048 s
	note := NewClassifier(p, signal, 1000).Classify(Onset{Energy: 1})
	if note.Kind != chart.Hold || note.Duration != p.HoldMax {
		t.Fatalf("got %s %f want hold %f", note.Kind, note.Duration, p.HoldMax)
	}
}

func TestClusterMergesSameLaneRuns(t *testing.T) {
	p := params.Defaults()
	notes := []chart.Note{
		{Timestamp: 0.0, Lane: 0, Energy: 0.4},
		{Timestamp: 0.05, Lane: 1, Energy: 0.9},
		{Timestamp: 0.1, Lane: 0, Energy: 0.8},
		{Timestamp: 0.2, Lane: 0, Energy: 0.7},
		{Timestamp: 0.5, Lane: 0, Energy: 0.6},
	}
	got := Cluster(notes, p)
	if len(got) != 3 {
		t.Fatalf("got %d notes want 3: %v", len(got), got)
	}
	first := got[0]
	if first.Kind != chart.Hold || first.Timestamp != 0 || first.Energy != 0.4 {
		t.Fatalf("cluster head %+v", first)
	}
	if math.Abs(first.Duration-0.3) > 1e-9 {
		t.Fatalf("cluster duration=%f want=0.3", first.Duration)
	}
	if got[1].Lane != 1 || got[1].Kind != chart.Tap {
		t.Fatalf("other lane changed: %+v", got[1])
	}
	if got[2].Timestamp != 0.5 || got[2].Kind != chart.Tap {
		t.Fatalf("isolated note changed: %+v", got[2])
	}
}

func TestClusterCapsDuration(t *testing.T) {
	p := params.Defaults()
	var notes []chart.Note
	for i := range 41 {
		notes = append(notes, chart.Note{Timestamp: float64(i) * 0.1, Lane: 3})
	}
	got := Cluster(notes, p)
	if len(got) != 1 {
		t.Fatalf("got %d notes want 1", len(got))
	}
	if got[0].Duration != p.ClusterMaxDuration {
		t.Fatalf("duration=%f want=%f", got[0].Duration, p.ClusterMaxDuration)
	}
}

func TestFilterGapAcrossLanes(t *testing.T) {
	notes := []chart.Note{
		{Timestamp: 0, Lane: 0},
		{Timestamp: 0.02, Lane: 1},
		{Timestamp: 0.04, Lane: 2},
		{Timestamp: 0.05, Lane: 3},
	}
	got := FilterGap(notes, 0.03)
	if len(got) != 2 || got[0].Lane != 0 || got[1].Lane != 2 {
		t.Fatalf("filtered=%v", got)
	}
}

func TestBalanceTarget(t *testing.T) {
	cases := []struct {
		counts [params.LaneCount]int
		floor  int
		want   int
	}{
		{[params.LaneCount]int{6, 2, 1, 0}, 1, 3},
		{[params.LaneCount]int{7, 0, 0, 0}, 1, 3},
		{[params.LaneCount]int{1, 0, 0, 0}, 1, 1},
		{[params.LaneCount]int{1, 0, 0, 0}, 0, 0},
		{[params.LaneCount]int{}, 1, 1},
	}
	for _, tc := range cases {
		if got := BalanceTarget(tc.counts, tc.floor); got != tc.want {
			t.Fatalf("BalanceTarget(%v, %d)=%d want=%d", tc.counts, tc.floor, got, tc.want)
		}
	}
}

func TestBalanceKeepsLoudestNotes(t *testing.T) {
	energies := []float64{0.1, 0.9, 0.3, 0.8, 0.2, 0.7}
	var notes []chart.Note
	for i, e := range energies {
		notes = append(notes, chart.Note{Timestamp: float64(i), Lane: 0, Energy: e})
	}
	notes = append(notes,
		chart.Note{Timestamp: 0.5, Lane: 1, Energy: 0.01},
		chart.Note{Timestamp: 1.5, Lane: 1, Energy: 0.02},
		chart.Note{Timestamp: 2.5, Lane: 2, Energy: 0.03},
	)
	chart.SortByTime(notes)

	got := Balance(notes, 1)
	var lane0 []float64
	counts := [params.LaneCount]int{}
	for i, n := range got {
		if i > 0 && got[i-1].Timestamp > n.Timestamp {
			t.Fatalf("output not sorted at %d", i)
		}
		counts[n.Lane]++
		if n.Lane == 0 {
			lane0 = append(lane0, n.Energy)
		}
	}
	if counts != [params.LaneCount]int{3, 2, 1, 0} {
		t.Fatalf("counts=%v", counts)
	}
	want := []float64{0.9, 0.8, 0.7}
	for i := range want {
		if lane0[i] != want[i] {
			t.Fatalf("lane 0 kept %v want %v", lane0, want)
		}
	}
}

func TestBalanceTiesKeepEarlierNote(t *testing.T) {
	notes := []chart.Note{
		{Timestamp: 0, Lane: 0, Energy: 0.5},
		{Timestamp: 1, Lane: 0, Energy: 0.5},
		{Timestamp: 2, Lane: 0, Energy: 0.5},
	}
	got := Balance(notes, 1)
	if len(got) != 1 || got[0].Timestamp != 0 {
		t.Fatalf("balanced=%v", got)
	}
}

func TestBalanceFloorKeepsSingleNote(t *testing.T) {
	notes := []chart.Note{{Timestamp: 0.5, Lane: 2, Energy: 0.7}}
	if got := Balance(notes, 1); len(got) != 1 {
		t.Fatalf("floor 1 kept %d notes, want 1", len(got))
	}
	if got := Balance(notes, 0); len(got) != 0 {
		t.Fatalf("floor 0 kept %d notes, want 0", len(got))
	}
}
