package nn

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func equalParams(a, b *Network) bool {
	for i := range a.Weights {
		if a.Weights[i] != b.Weights[i] {
			return false
		}
	}
	for i := range a.Biases {
		if a.Biases[i] != b.Biases[i] {
			return false
		}
	}
	return true
}

func TestCopyThenZeroChanceMutateIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a, _ := NewRandom([]int{4, 6, 1}, Options{}, rng)
	b, _ := New([]int{4, 6, 1}, Options{})

	if err := CopyFromTo(a, b); err != nil {
		t.Fatalf("copy: %v", err)
	}
	for _, magnitude := range []float64{0, 1, 100} {
		if changed := b.Mutate(0, magnitude, rng); changed != 0 {
			t.Fatalf("zero chance mutated %d params", changed)
		}
	}
	if !equalParams(a, b) {
		t.Fatal("zero chance mutation changed the network")
	}
}

func TestMutateAlwaysChangesSomething(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a, _ := NewRandom([]int{4, 1}, Options{}, rng)
	b := a.Clone()

	for i := 0; i < 50; i++ {
		if changed := b.Mutate(0.1, 1, rng); changed == 0 {
			t.Fatal("mutate returned without changing anything")
		}
	}
	if equalParams(a, b) {
		t.Fatal("expected divergence after mutation")
	}
}

func TestMutateStaysWithinMagnitude(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	a, _ := New([]int{3, 3, 1}, Options{})
	b := a.Clone()
	b.Mutate(100, 2, rng)

	for i := range b.Weights {
		if d := math.Abs(b.Weights[i] - a.Weights[i]); d > 2.0/20 {
			t.Fatalf("weight %d moved by %f", i, d)
		}
	}
	for i := range b.Biases {
		if d := math.Abs(b.Biases[i] - a.Biases[i]); d > 2.0/20 {
			t.Fatalf("bias %d moved by %f", i, d)
		}
	}
}

func TestMutatePreservesShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n, _ := NewRandom([]int{4, 5, 2}, Options{}, rng)
	w, b := len(n.Weights), len(n.Biases)
	n.Mutate(30, 5, rng)
	if len(n.Weights) != w || len(n.Biases) != b {
		t.Fatal("mutation changed buffer sizes")
	}
}

func TestCopyShapeMismatch(t *testing.T) {
	a, _ := New([]int{4, 3, 1}, Options{})
	b, _ := New([]int{4, 2, 1}, Options{})
	c, _ := New([]int{4, 1}, Options{})

	var shapeErr *ShapeError
	err := CopyFromTo(a, b)
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if shapeErr.Layer != 1 || shapeErr.Want != 3 || shapeErr.Got != 2 {
		t.Fatalf("unexpected diagnostic: %+v", shapeErr)
	}

	err = CopyFromTo(a, c)
	if !errors.As(err, &shapeErr) || shapeErr.Layer != -1 {
		t.Fatalf("expected layer count mismatch, got %v", err)
	}
}
