package ai

import (
	"sync"
	"testing"
)

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(ModelMetrics{InputTokens: 5, TotalTokens: 5, DurationMs: 100})
		}()
	}
	wg.Wait()

	got := r.Snapshot()
	if got.InputTokens != 50 || got.TotalTokens != 50 || got.DurationMs != 1000 || got.Requests != 10 {
		t.Fatalf("unexpected metrics %+v", got)
	}
	if got.TokenPerSecond != 50 {
		t.Fatalf("expected 50 tokens/s, got %v", got.TokenPerSecond)
	}

	r.Reset()
	if got := r.Snapshot(); got != (ModelMetrics{}) {
		t.Fatalf("expected reset metrics, got %+v", got)
	}
}

func TestTruncateTokensKeepsShortText(t *testing.T) {
	got, err := TruncateTokens("short text", 512)
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}
	if got != "short text" {
		t.Fatalf("expected text unchanged, got %q", got)
	}
}

func TestTruncateTokensDisabled(t *testing.T) {
	got, err := TruncateTokens("anything", 0)
	if err != nil || got != "anything" {
		t.Fatalf("expected passthrough, got %q, %v", got, err)
	}
}
