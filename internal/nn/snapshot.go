package nn

import "fmt"

// Snapshot is the serialisable form of a network
type Snapshot struct {
	Layers       []int     `json:"layers"`
	Activation   string    `json:"activation"`
	LearningRate float64   `json:"learning_rate,omitempty"`
	Weights      []float64 `json:"weights"`
	Biases       []float64 `json:"biases"`
}

// Snapshot copies the network's parameters
func (n *Network) Snapshot() Snapshot {
	return Snapshot{
		Layers:       append([]int(nil), n.Layers...),
		Activation:   n.activation.Name,
		LearningRate: n.learningRate,
		Weights:      append([]float64(nil), n.Weights...),
		Biases:       append([]float64(nil), n.Biases...),
	}
}

// FromSnapshot rebuilds a network, checking the buffers match the layers
func FromSnapshot(s Snapshot) (*Network, error) {
	act, err := GetActivation(s.Activation)
	if err != nil {
		return nil, err
	}
	n, err := New(s.Layers, Options{Activation: act, LearningRate: s.LearningRate})
	if err != nil {
		return nil, err
	}
	if len(s.Weights) != len(n.Weights) {
		return nil, fmt.Errorf("snapshot has %d weights, layers %v need %d", len(s.Weights), s.Layers, len(n.Weights))
	}
	if len(s.Biases) != len(n.Biases) {
		return nil, fmt.Errorf("snapshot has %d biases, layers %v need %d", len(s.Biases), s.Layers, len(n.Biases))
	}
	copy(n.Weights, s.Weights)
	copy(n.Biases, s.Biases)
	return n, nil
}
