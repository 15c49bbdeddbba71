// Package timing records how long the phases of a run take.
package timing

import (
	"sync"
	"time"

	"github.com/OFFIS-RIT/docgraph/pkg/logger"
)

// Phase is a finished phase of a run.
type Phase struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

// Report collects phases in the order they finish.
type Report struct {
	mu     sync.Mutex
	now    func() time.Time
	start  time.Time
	phases []Phase
}

func NewReport() *Report {
	return newReport(time.Now)
}

func newReport(now func() time.Time) *Report {
	return &Report{now: now, start: now()}
}

// Track starts a phase and returns the function that ends it.
//
// Example:
//
//	done := report.Track("load")
//	stats, err := loader.Run(ctx, files)
//	done()
func (r *Report) Track(name string) func() {
	start := r.now()
	var once sync.Once
	return func() {
		once.Do(func() {
			d := r.now().Sub(start)
			r.mu.Lock()
			r.phases = append(r.phases, Phase{Name: name, DurationMs: d.Milliseconds()})
			r.mu.Unlock()
			logger.Debug("[Timing] Phase finished", "phase", name, "duration", d)
		})
	}
}

func (r *Report) Phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.phases))
	copy(out, r.phases)
	return out
}

// Total is the time since the report was created.
func (r *Report) Total() time.Duration {
	return r.now().Sub(r.start)
}

// Log writes one line per phase and the total.
func (r *Report) Log() {
	for _, p := range r.Phases() {
		logger.Info("[Timing] Phase", "phase", p.Name, "duration", time.Duration(p.DurationMs)*time.Millisecond)
	}
	logger.Info("[Timing] Total", "duration", r.Total().Round(time.Millisecond))
}
