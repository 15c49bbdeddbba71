package util

import (
	"testing"
	"time"
)

func TestProgress(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := newProgressAt(4, clock)

	if p.Remaining() != 0 || p.Percentage() != 0 {
		t.Fatalf("expected no estimate before the first unit, got %v", p.Remaining())
	}

	now = now.Add(10 * time.Second)
	p.Advance(1)
	if got := p.Remaining(); got != 30*time.Second {
		t.Fatalf("Remaining() = %v, want 30s", got)
	}
	if got := p.String(); got != "1/4 (25%)" {
		t.Fatalf("String() = %q", got)
	}

	p.Advance(10)
	if p.Done() != 4 || p.Percentage() != 100 || p.Remaining() != 0 {
		t.Fatalf("expected completed progress, got %s", p)
	}
}

func TestProgressEmpty(t *testing.T) {
	if got := NewProgress(0).Percentage(); got != 100 {
		t.Fatalf("Percentage() = %d, want 100 for an empty run", got)
	}
}
