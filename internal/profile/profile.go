// Package profile records per-stage analysis timings as CSV.
package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

// Profiler appends one CSV row per analysis stage. A nil *Profiler is a no-op,
// so callers can hold one unconditionally.
type Profiler struct {
	mu     sync.Mutex
	closer io.Closer
	w      *csv.Writer
	now    func() time.Time
	totals map[string]time.Duration
}

var header = []string{"timestamp", "source", "stage", "delta_ms"}

// Open appends to the CSV file at path, writing the header when the file is new.
// An empty path disables profiling.
func Open(path string, logger *log.Logger) *Profiler {
	if path == "" {
		return nil
	}
	info, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if logger != nil {
			logger.Printf("profiler disabled: %v", err)
		}
		return nil
	}
	p := newProfiler(f, f, time.Now)
	if statErr != nil || info.Size() == 0 {
		p.row(header)
	}
	return p
}

func newProfiler(w io.Writer, closer io.Closer, now func() time.Time) *Profiler {
	return &Profiler{
		closer: closer,
		w:      csv.NewWriter(w),
		now:    now,
		totals: make(map[string]time.Duration),
	}
}

// Trace returns a stage callback for one analysis of source, matching
// analyzer.Config.Trace.
func (p *Profiler) Trace(source string) func(stage string, elapsed time.Duration) {
	if p == nil {
		return nil
	}
	return func(stage string, elapsed time.Duration) {
		p.mu.Lock()
		p.totals[stage] += elapsed
		p.mu.Unlock()
		p.row([]string{
			p.now().Format(time.RFC3339Nano),
			source,
			stage,
			strconv.FormatFloat(elapsed.Seconds()*1000, 'f', 3, 64),
		})
	}
}

// Totals returns the accumulated time per stage.
func (p *Profiler) Totals() map[string]time.Duration {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Duration, len(p.totals))
	for k, v := range p.totals {
		out[k] = v
	}
	return out
}

// Close flushes pending rows and closes the file.
func (p *Profiler) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.w.Flush()
	if err := p.w.Error(); err != nil {
		return fmt.Errorf("flush profile: %w", err)
	}
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func (p *Profiler) row(fields []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.w.Write(fields)
}
