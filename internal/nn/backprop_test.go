package nn

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestBackPropagateRequiresLearningRate(t *testing.T) {
	n, _ := New([]int{2, 1}, Options{Activation: SELU})
	n.Infer([]float64{1, 1})
	if err := n.BackPropagate([]float64{1}); !errors.Is(err, ErrNotTrainable) {
		t.Fatalf("expected ErrNotTrainable, got %v", err)
	}
}

func TestBackPropagateRequiresForwardPass(t *testing.T) {
	n, _ := New([]int{2, 1}, Options{Activation: SELU, LearningRate: 0.1})
	if err := n.BackPropagate([]float64{1}); !errors.Is(err, ErrNoForwardPass) {
		t.Fatalf("expected ErrNoForwardPass, got %v", err)
	}
}

func TestBackPropagateReducesError(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	n, _ := NewRandom([]int{3, 4, 1}, Options{Activation: SELU, LearningRate: 0.05}, rng)
	in := []float64{0.5, -0.3, 0.8}
	target := []float64{1}

	out, _ := n.Infer(in)
	before := math.Abs(target[0] - out[0])
	for i := 0; i < 200; i++ {
		if _, err := n.Infer(in); err != nil {
			t.Fatalf("infer: %v", err)
		}
		if err := n.BackPropagate(target); err != nil {
			t.Fatalf("backprop: %v", err)
		}
	}
	out, _ = n.Infer(in)
	after := math.Abs(target[0] - out[0])
	if after >= before || after > 0.05 {
		t.Fatalf("error did not shrink: before=%f after=%f", before, after)
	}
}

func TestBackPropagateClampsGradient(t *testing.T) {
	n, _ := New([]int{1, 1}, Options{Activation: SELU, LearningRate: 1})
	n.Infer([]float64{1})
	// raw delta would be 1000 * λ; clamped to 1 it moves the bias by exactly 1
	if err := n.BackPropagate([]float64{1000}); err != nil {
		t.Fatalf("backprop: %v", err)
	}
	if n.Bias(1, 0) != 1 {
		t.Fatalf("expected clamped step of 1, got %f", n.Bias(1, 0))
	}
	if n.Weight(1, 0, 0) != 1 {
		t.Fatalf("expected weight step of 1, got %f", n.Weight(1, 0, 0))
	}
}

func TestProbesDoNotDisturbActivations(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n, _ := NewRandom([]int{3, 3, 1}, Options{Activation: SELU, LearningRate: 0.1}, rng)
	in := []float64{0.4, 0.0, -0.9}
	want, _ := n.Infer(in)
	snapshot := append([]float64(nil), n.activations...)

	impulse, err := n.InputImpulse(1)
	if err != nil {
		t.Fatalf("impulse: %v", err)
	}
	contrib, err := n.InputContribution(2)
	if err != nil {
		t.Fatalf("contribution: %v", err)
	}
	if len(impulse) != 1 || len(contrib) != 1 {
		t.Fatal("probe output width mismatch")
	}
	for i := range snapshot {
		if snapshot[i] != n.activations[i] {
			t.Fatalf("probe modified activation %d", i)
		}
	}

	// contribution equals a real inference with only that input set
	solo := n.Clone()
	got, _ := solo.Infer([]float64{0, 0, -0.9})
	if got[0] != contrib[0] {
		t.Fatalf("contribution mismatch: %f vs %f", contrib[0], got[0])
	}

	if err := n.BackPropagate([]float64{want[0]}); err != nil {
		t.Fatalf("backprop after probe: %v", err)
	}
	if _, err := n.InputImpulse(3); err == nil {
		t.Fatal("expected range error")
	}
}

func TestInputContributionNeedsInference(t *testing.T) {
	n, _ := New([]int{2, 1}, Options{})
	if _, err := n.InputContribution(0); !errors.Is(err, ErrNoForwardPass) {
		t.Fatalf("expected ErrNoForwardPass, got %v", err)
	}
}
