package domain

import (
	"math"
	"sync"
	"testing"
)

func TestNewVectors_NormalizesKeys(t *testing.T) {
	v := NewVectors(map[string][]float32{
		"Travel": {1, 0},
		"":       {1, 1},
		"empty":  {},
	})
	if len(v) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(v))
	}
	if _, ok := v.Lookup(" TRAVEL "); !ok {
		t.Error("expected normalized lookup to succeed")
	}
	if _, ok := v.Lookup("empty"); ok {
		t.Error("empty vectors must be dropped")
	}
}

func TestVectors_Mean(t *testing.T) {
	v := Vectors{
		"a": {1, 0, 2},
		"b": {3, 2, 0},
		"c": {9, 9}, // minority dimension, skipped
	}
	mean := v.Mean()
	want := []float32{2, 1, 1}
	if len(mean) != len(want) {
		t.Fatalf("expected dim %d, got %d", len(want), len(mean))
	}
	for i := range want {
		if math.Abs(float64(mean[i]-want[i])) > 1e-6 {
			t.Errorf("mean[%d] = %f, want %f", i, mean[i], want[i])
		}
	}
}

func TestVectors_MeanEmpty(t *testing.T) {
	if Vectors(nil).Mean() != nil {
		t.Error("expected nil mean for no vectors")
	}
}

func TestReferenceMetadata_NeighborhoodConcurrent(t *testing.T) {
	m := NewReferenceMetadata(NewTagSet("a"), Vectors{"a": {2, 4}}, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := m.Neighborhood()
			if len(n) != 2 || n[0] != 2 || n[1] != 4 {
				t.Errorf("unexpected neighborhood %v", n)
			}
		}()
	}
	wg.Wait()
}
