package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestChunkRange(t *testing.T) {
	tests := []struct {
		name  string
		total int
		size  int
		want  [][2]int
	}{
		{name: "empty", total: 0, size: 50, want: nil},
		{name: "single chunk", total: 3, size: 50, want: [][2]int{{0, 3}}},
		{name: "exact multiple", total: 4, size: 2, want: [][2]int{{0, 2}, {2, 4}}},
		{name: "remainder", total: 5, size: 2, want: [][2]int{{0, 2}, {2, 4}, {4, 5}}},
		{name: "non-positive size", total: 3, size: 0, want: [][2]int{{0, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][2]int
			err := ChunkRange(tt.total, tt.size, func(start, end int) error {
				got = append(got, [2]int{start, end})
				return nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ChunkRange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunkRangeStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := ChunkRange(10, 2, func(start, end int) error {
		calls++
		if start == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}
