package nn

import (
	"fmt"
	"math/rand"
)

// ShapeError reports the first layer where two networks disagree
type ShapeError struct {
	Layer int
	Want  int
	Got   int
}

func (e *ShapeError) Error() string {
	if e.Layer < 0 {
		return fmt.Sprintf("layer count mismatch: want %d, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("layer %d size mismatch: want %d, got %d", e.Layer, e.Want, e.Got)
}

// SameShape returns a *ShapeError if a and b differ in topology
func SameShape(a, b *Network) error {
	if len(a.Layers) != len(b.Layers) {
		return &ShapeError{Layer: -1, Want: len(a.Layers), Got: len(b.Layers)}
	}
	for l := range a.Layers {
		if a.Layers[l] != b.Layers[l] {
			return &ShapeError{Layer: l, Want: a.Layers[l], Got: b.Layers[l]}
		}
	}
	return nil
}

// CopyFromTo copies every weight and bias of src into dst
func CopyFromTo(src, dst *Network) error {
	if err := SameShape(src, dst); err != nil {
		return fmt.Errorf("copy genome: %w", err)
	}
	copy(dst.Weights, src.Weights)
	copy(dst.Biases, src.Biases)
	dst.hasPass = false
	return nil
}

// Mutate perturbs each weight and bias with probability percentChance/100
// by a uniform amount in [-magnitude/20, magnitude/20]. It repeats until at
// least one parameter changed and returns how many did. A zero chance or
// zero magnitude leaves the network untouched.
func (n *Network) Mutate(percentChance, magnitude float64, rng *rand.Rand) int {
	if percentChance <= 0 || magnitude == 0 {
		return 0
	}
	p := percentChance / 100
	scale := magnitude / 20

	changed := 0
	for changed == 0 {
		changed += mutateSlice(n.Weights, p, scale, rng)
		changed += mutateSlice(n.Biases, p, scale, rng)
	}
	n.hasPass = false
	return changed
}

func mutateSlice(vals []float64, p, scale float64, rng *rand.Rand) int {
	changed := 0
	for i := range vals {
		if rng.Float64() >= p {
			continue
		}
		delta := (rng.Float64()*2 - 1) * scale
		if delta == 0 {
			continue
		}
		vals[i] += delta
		changed++
	}
	return changed
}
