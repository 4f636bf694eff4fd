package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestPresetsAreValid(t *testing.T) {
	for _, name := range PresetNames() {
		p, err := Preset(name)
		if err != nil {
			t.Fatalf("preset %s: %v", name, err)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("preset %s invalid: %v", name, err)
		}
	}
}

func TestPresetEmptyNameIsStandard(t *testing.T) {
	p, err := Preset("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != Defaults() {
		t.Fatalf("empty preset should equal defaults")
	}
	if _, err := Preset("nope"); err == nil {
		t.Fatalf("expected unknown preset error")
	}
}

func TestValidateRejectsBadCombinations(t *testing.T) {
	mutations := map[string]func(*Parameters){
		"hop equals frame":  func(p *Parameters) { p.HopLength = p.FrameLength },
		"hop zero":          func(p *Parameters) { p.HopLength = 0 },
		"band above range":  func(p *Parameters) { p.Bands[3].High = 30000 },
		"band below range":  func(p *Parameters) { p.Bands[0].Low = 5 },
		"empty band":        func(p *Parameters) { p.Bands[1].High = p.Bands[1].Low },
		"zero lookahead":    func(p *Parameters) { p.Lookahead = 0 },
		"inverted holds":    func(p *Parameters) { p.HoldMax = 0.1 },
		"negative gap":      func(p *Parameters) { p.MinGlobalGap = -1 },
		"negative workers":  func(p *Parameters) { p.Workers = -2 },
		"inverted analysis": func(p *Parameters) { p.MaxFreq = 10 },
	}
	for name, mutate := range mutations {
		p := Defaults()
		mutate(&p)
		if err := p.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: err=%v want ErrInvalid", name, err)
		}
	}
}

func TestBandContainsIsHalfOpen(t *testing.T) {
	b := Band{Low: 20, High: 100}
	if !b.Contains(20) {
		t.Fatalf("low edge should be inside")
	}
	if b.Contains(100) {
		t.Fatalf("high edge should be outside")
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(`{"lookahead": 12, "balance": false}`), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Lookahead != 12 || p.Balance {
		t.Fatalf("overrides not applied: lookahead=%d balance=%v", p.Lookahead, p.Balance)
	}
	if p.FrameLength != 512 || p.MinAbsolute != 0.3 {
		t.Fatalf("defaults lost: frame=%d minAbs=%f", p.FrameLength, p.MinAbsolute)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	want, _ := Preset("sensitive")
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", got, want)
	}
}
