package analyzer

import (
	"math"
	"testing"
)

func TestMonoAveragesChannels(t *testing.T) {
	got, err := Mono([]float32{0.2, 0.4, -1, 1, 0.5, 0.5, 0.9}, 2)
	if err != nil {
		t.Fatalf("mono: %v", err)
	}
	want := []float64{0.3, 0, 0.5}
	if len(got) != len(want) {
		t.Fatalf("len=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-6 {
			t.Fatalf("mono[%d]=%f want=%f", i, got[i], want[i])
		}
	}
}

func TestMonoPassesSingleChannel(t *testing.T) {
	got, err := Mono([]float32{0.25, -0.5}, 1)
	if err != nil {
		t.Fatalf("mono: %v", err)
	}
	if got[0] != 0.25 || got[1] != -0.5 {
		t.Fatalf("mono changed a single channel: %v", got)
	}
}

func TestMonoRejectsZeroChannels(t *testing.T) {
	if _, err := Mono([]float32{1}, 0); err == nil {
		t.Fatalf("expected an error for zero channels")
	}
}

func TestFramerDropsPartialFrames(t *testing.T) {
	f := Framer{Length: 512, Hop: 256}
	cases := map[int]int{
		0:    0,
		511:  0,
		512:  1,
		767:  1,
		768:  2,
		1024: 3,
	}
	for n, want := range cases {
		if got := f.Count(n); got != want {
			t.Fatalf("Count(%d)=%d want=%d", n, got, want)
		}
		seen := 0
		for offset := range f.Offsets(n) {
			if offset != seen*256 {
				t.Fatalf("offset %d at position %d", offset, seen)
			}
			if offset+512 > n {
				t.Fatalf("frame at %d runs past %d samples", offset, n)
			}
			seen++
		}
		if seen != want {
			t.Fatalf("Offsets(%d) yielded %d frames, want %d", n, seen, want)
		}
	}
}

func TestFrameViewCannotGrowIntoNextFrame(t *testing.T) {
	signal := make([]float64, 1024)
	f := Framer{Length: 512, Hop: 256}
	frame := f.Frame(signal, 256)
	if len(frame) != 512 || cap(frame) != 512 {
		t.Fatalf("frame len=%d cap=%d", len(frame), cap(frame))
	}
}

func TestClamp(t *testing.T) {
	if clamp(2.0, 0, 1) != 1 {
		t.Fatalf("expected clamp high to be 1")
	}
	if clamp(-1.0, 0, 1) != 0 {
		t.Fatalf("expected clamp low to be 0")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("expected clamp middle to be unchanged")
	}
	if clamp(7, 1, 4) != 4 {
		t.Fatalf("expected integer clamp to be 4")
	}
}

func TestMeanAbs(t *testing.T) {
	if got := meanAbs([]float64{-1, 1, -0.5, 0.5}); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("meanAbs=%f want=0.75", got)
	}
	if meanAbs(nil) != 0 {
		t.Fatalf("meanAbs of empty window should be 0")
	}
}
