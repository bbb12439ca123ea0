package domain

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v, want [0.6 0.8]", v)
	}

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for _, x := range v {
		if x != 0 {
			t.Fatalf("zero vector changed: %v", v)
		}
	}
}

func TestCosine(t *testing.T) {
	a := Normalize([]float32{1, 0})
	b := Normalize([]float32{0, 1})
	if got := Cosine(a, b); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal cosine = %f, want 0", got)
	}
	if got := Cosine(a, a); math.Abs(got-1) > 1e-6 {
		t.Errorf("self cosine = %f, want 1", got)
	}
	if got := Cosine(a, Normalize([]float32{-1, 0})); math.Abs(got+1) > 1e-6 {
		t.Errorf("opposite cosine = %f, want -1", got)
	}
}

func TestCosine_DimMismatch(t *testing.T) {
	if got := Cosine([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched dims cosine = %f, want 0", got)
	}
}
