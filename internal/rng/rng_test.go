package rng

import (
	"math"
	"testing"
)

func TestFloat64Range(t *testing.T) {
	t.Parallel()
	s := NewSource(42)
	for i := 0; i < 100000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64 out of [0,1): %v at draw %d", v, i)
		}
	}
}

func TestSeedDeterministic(t *testing.T) {
	t.Parallel()
	a := NewSource(1234)
	b := NewSource(1234)
	for i := 0; i < 1000; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("draw %d diverged: %v != %v", i, va, vb)
		}
	}
}

func TestReseedResetsStream(t *testing.T) {
	t.Parallel()
	s := NewSource(1)
	first := make([]float64, 10)
	for i := range first {
		first[i] = s.Float64()
	}
	s.Seed(1)
	for i := range first {
		if got := s.Float64(); got != first[i] {
			t.Fatalf("draw %d after reseed: got %v want %v", i, got, first[i])
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	t.Parallel()
	a := NewSource(1)
	b := NewSource(2)
	same := true
	for i := 0; i < 16; i++ {
		if a.Float64() != b.Float64() {
			same = false
			break
		}
	}
	if same {
		t.Fatal("distinct seeds produced identical streams")
	}
}

func TestMeanConvergesToUniform(t *testing.T) {
	t.Parallel()
	s := NewSource(7)
	const n = 200000
	var sum float64
	for i := 0; i < n; i++ {
		sum += s.Float64()
	}
	mean := sum / n
	if math.Abs(mean-0.5) > 0.01 {
		t.Fatalf("mean %v too far from 0.5", mean)
	}
}

func TestPoissonNonNegativeAndMeanReasonable(t *testing.T) {
	t.Parallel()
	s := NewSource(99)
	const n = 50000
	const lambda = 5.0
	var sum uint64
	for i := 0; i < n; i++ {
		k := s.Poisson(lambda)
		sum += uint64(k)
	}
	mean := float64(sum) / n
	if math.Abs(mean-lambda) > 0.2 {
		t.Fatalf("poisson mean %v too far from lambda %v", mean, lambda)
	}
}

func TestPoissonZeroLambda(t *testing.T) {
	t.Parallel()
	s := NewSource(1)
	if k := s.Poisson(0); k != 0 {
		t.Fatalf("Poisson(0) = %d, want 0", k)
	}
}
