package util

import (
	"fmt"
	"time"
)

// Progress tracks completed units of work and estimates the time left from
// the average duration of the units done so far.
type Progress struct {
	total int
	done  int
	start time.Time
	now   func() time.Time
}

func NewProgress(total int) *Progress {
	return newProgressAt(total, time.Now)
}

func newProgressAt(total int, now func() time.Time) *Progress {
	return &Progress{total: total, start: now(), now: now}
}

// Advance marks n more units as done. Done never exceeds the total.
func (p *Progress) Advance(n int) {
	p.done = min(p.total, p.done+n)
}

func (p *Progress) Done() int {
	return p.done
}

func (p *Progress) Percentage() int32 {
	if p.total <= 0 {
		return 100
	}
	return int32(p.done * 100 / p.total)
}

// Remaining returns the estimated time until all units are done, or zero
// before the first unit completes.
func (p *Progress) Remaining() time.Duration {
	if p.done == 0 || p.done >= p.total {
		return 0
	}
	perUnit := p.now().Sub(p.start) / time.Duration(p.done)
	return perUnit * time.Duration(p.total-p.done)
}

// String renders the progress as "done/total (pct%)".
func (p *Progress) String() string {
	return fmt.Sprintf("%d/%d (%d%%)", p.done, p.total, p.Percentage())
}
