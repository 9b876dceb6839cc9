package nn

import "fmt"

// GradientLimit bounds every back-propagated delta
const GradientLimit = 1.0

// BackPropagate nudges weights and biases towards expected, using the
// activations of the most recent Infer call.
func (n *Network) BackPropagate(expected []float64) error {
	if n.learningRate <= 0 {
		return ErrNotTrainable
	}
	if !n.hasPass {
		return ErrNoForwardPass
	}
	if len(expected) != n.Outputs() {
		return fmt.Errorf("expected width %d, network outputs %d", len(expected), n.Outputs())
	}
	if n.deltas == nil {
		n.deltas = make([]float64, len(n.activations))
	}

	last := len(n.Layers) - 1
	out := n.layer(n.activations, last)
	outDelta := n.layer(n.deltas, last)
	for j, y := range out {
		d := (expected[j] - y) * n.activation.Derivative(y)
		outDelta[j] = clamp(d, -GradientLimit, GradientLimit)
	}

	for l := last - 1; l >= 1; l-- {
		cur := n.layer(n.activations, l)
		curDelta := n.layer(n.deltas, l)
		nextDelta := n.layer(n.deltas, l+1)
		for i, y := range cur {
			sum := 0.0
			for j, d := range nextDelta {
				sum += n.Weights[n.weightIndex(l+1, j, i)] * d
			}
			curDelta[i] = clamp(sum*n.activation.Derivative(y), -GradientLimit, GradientLimit)
		}
	}

	lr := n.learningRate
	for l := 1; l <= last; l++ {
		prev := n.layer(n.activations, l-1)
		delta := n.layer(n.deltas, l)
		bias := n.biasIndex(l, 0)
		offset := n.weightOffset[l]
		for j, d := range delta {
			n.Biases[bias+j] += lr * d
			row := n.Weights[offset : offset+len(prev)]
			offset += len(prev)
			for i, p := range prev {
				row[i] += lr * d * p
			}
		}
	}
	return nil
}

// InputImpulse feeds 1 into input neuron idx and 0 elsewhere and returns the
// output. The activations of the last real inference are not touched.
func (n *Network) InputImpulse(idx int) ([]float64, error) {
	return n.isolated(idx, 1)
}

// InputContribution feeds the value input neuron idx held during the last
// inference, alone, and returns the output.
func (n *Network) InputContribution(idx int) ([]float64, error) {
	if !n.hasPass {
		return nil, ErrNoForwardPass
	}
	if idx < 0 || idx >= n.Layers[0] {
		return nil, fmt.Errorf("input index %d out of range [0,%d)", idx, n.Layers[0])
	}
	return n.isolated(idx, n.activations[idx])
}

func (n *Network) isolated(idx int, value float64) ([]float64, error) {
	if idx < 0 || idx >= n.Layers[0] {
		return nil, fmt.Errorf("input index %d out of range [0,%d)", idx, n.Layers[0])
	}
	if n.probe == nil {
		n.probe = make([]float64, len(n.activations))
	}
	input := make([]float64, n.Layers[0])
	input[idx] = value
	n.forward(input, n.probe)

	out := make([]float64, n.Outputs())
	copy(out, n.layer(n.probe, len(n.Layers)-1))
	return out, nil
}
