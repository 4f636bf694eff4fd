package analyzer

import (
	"fmt"
	"io"
	"log"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guidoenr/lanechart/internal/chart"
	"github.com/guidoenr/lanechart/internal/params"
	"github.com/guidoenr/lanechart/internal/pcm"
	"golang.org/x/exp/constraints"
)

// Analyzer turns decoded audio into a finalized, lane-balanced note sequence.
type Analyzer struct {
	p     params.Parameters
	log   *log.Logger
	trace func(stage string, elapsed time.Duration)
}

// Config controls Analyzer behavior.
type Config struct {
	// Params defaults to params.Defaults() when left zero.
	Params params.Parameters
	Log    *log.Logger
	// Trace, when set, receives the wall time spent in each stage.
	Trace func(stage string, elapsed time.Duration)
}

// New validates the configuration once and returns a reusable Analyzer.
func New(cfg Config) (*Analyzer, error) {
	if cfg.Params == (params.Parameters{}) {
		cfg.Params = params.Defaults()
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, stageError("config", ErrConfig, err)
	}
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}
	return &Analyzer{
		p:     cfg.Params,
		log:   cfg.Log,
		trace: cfg.Trace,
	}, nil
}

// Params returns the configuration the analyzer runs with.
func (a *Analyzer) Params() params.Parameters {
	return a.p
}

// Analyze runs the whole pipeline. It returns either the complete sorted note
// sequence or an error, never both.
func (a *Analyzer) Analyze(buf pcm.Buffer) ([]chart.Note, error) {
	if err := buf.Validate(); err != nil {
		return nil, stageError("input", ErrInvalidInput, err)
	}

	mark := a.stopwatch()
	signal, err := Mono(buf.Samples, buf.Channels)
	if err != nil {
		return nil, stageError("mono", ErrInvalidInput, err)
	}
	mark("mono")

	frames, err := a.frameEnergies(signal, buf.SampleRate)
	if err != nil {
		return nil, err
	}
	mark("spectrum")

	onsets := NewDetector(a.p, buf.SampleRate).Detect(frames)
	mark("onsets")

	classifier := NewClassifier(a.p, signal, buf.SampleRate)
	notes := make([]chart.Note, 0, len(onsets))
	for _, o := range onsets {
		notes = append(notes, classifier.Classify(o))
	}
	chart.SortByTime(notes)
	classified := len(notes)
	mark("classify")

	notes = Cluster(notes, a.p)
	clustered := len(notes)
	notes = FilterGap(notes, a.p.MinGlobalGap)
	filtered := len(notes)
	mark("postprocess")

	if a.p.Balance {
		notes = Balance(notes, a.p.BalanceFloor)
	}
	chart.SortByTime(notes)
	mark("balance")

	a.log.Printf("analyzed %d frames @ %d Hz: onsets=%d clustered=%d filtered=%d balanced=%d",
		len(frames), buf.SampleRate, classified, clustered, filtered, len(notes))
	return notes, nil
}

// Analyze runs the pipeline once with the given parameters.
func Analyze(buf pcm.Buffer, p params.Parameters) ([]chart.Note, error) {
	a, err := New(Config{Params: p})
	if err != nil {
		return nil, err
	}
	return a.Analyze(buf)
}

// frameEnergies computes band energies for every full frame. Frames are
// independent, so they fan out to a worker pool; results land in frame order.
func (a *Analyzer) frameEnergies(signal []float64, sampleRate int) ([]FrameEnergy, error) {
	framer := Framer{Length: a.p.FrameLength, Hop: a.p.HopLength}
	count := framer.Count(len(signal))
	frames := make([]FrameEnergy, count)
	if count == 0 {
		return frames, nil
	}

	spec := newSpectralAnalyzer(sampleRate, a.p.FrameLength, a.p.MinFreq, a.p.MaxFreq)

	numWorkers := a.p.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	numWorkers = clamp(numWorkers, 1, count)

	var (
		wg       sync.WaitGroup
		failed   atomic.Bool
		errOnce  sync.Once
		firstErr error
	)
	jobs := make(chan int, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := make([]float64, a.p.FrameLength)
			for idx := range jobs {
				if failed.Load() {
					continue
				}
				offset := idx * a.p.HopLength
				spectrum, err := spec.analyze(framer.Frame(signal, offset), scratch)
				if err != nil {
					errOnce.Do(func() {
						firstErr = stageError("spectrum", ErrTransform, fmt.Errorf("frame %d at sample %d: %w", idx, offset, err))
					})
					failed.Store(true)
					continue
				}
				frames[idx] = FrameEnergy{
					Index:    idx,
					Offset:   offset,
					Energies: Energies(spectrum, a.p.Bands),
				}
			}
		}()
	}

	idx := 0
	for range framer.Offsets(len(signal)) {
		if failed.Load() {
			break
		}
		jobs <- idx
		idx++
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return frames, nil
}

func (a *Analyzer) stopwatch() func(stage string) {
	if a.trace == nil {
		return func(string) {}
	}
	last := time.Now()
	return func(stage string) {
		now := time.Now()
		a.trace(stage, now.Sub(last))
		last = now
	}
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func clamp[T constraints.Ordered](v, minVal, maxVal T) T {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
