package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	ErrTooFewLayers  = errors.New("network needs at least two layers")
	ErrNotTrainable  = errors.New("network has no learning rate")
	ErrNoForwardPass = errors.New("no inference has been run yet")
)

// Action is a discrete push direction
type Action int

const (
	ActionLeft Action = iota
	ActionRight
)

// Options selects the activation and, optionally, gradient training
type Options struct {
	Activation   Activation
	LearningRate float64 // 0 means mutation-only
}

// Network is a fully-connected feedforward network.
//
// Biases and weights live in flat buffers. Bias(l, j) addresses neuron j of
// layer l >= 1; Weight(l, j, i) is the edge from neuron i of layer l-1 into
// neuron j of layer l. A Network is not safe for concurrent use: inference
// writes into its activation buffer.
type Network struct {
	Layers  []int
	Weights []float64
	Biases  []float64

	activation   Activation
	learningRate float64

	neuronOffset []int // start of each layer in the activation buffer
	weightOffset []int // start of each layer's incoming weights

	activations []float64
	hasPass     bool

	deltas []float64 // allocated on first BackPropagate
	probe  []float64 // allocated on first probe
}

// New creates a zero-initialised network with the given layer sizes
func New(layers []int, opts Options) (*Network, error) {
	if len(layers) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewLayers, len(layers))
	}
	for l, size := range layers {
		if size <= 0 {
			return nil, fmt.Errorf("layer %d has size %d", l, size)
		}
	}
	if opts.Activation.Fn == nil {
		opts.Activation = HardTanh
	}

	n := &Network{
		Layers:       append([]int(nil), layers...),
		activation:   opts.Activation,
		learningRate: opts.LearningRate,
		neuronOffset: make([]int, len(layers)),
		weightOffset: make([]int, len(layers)),
	}

	neurons, weights := 0, 0
	for l, size := range layers {
		n.neuronOffset[l] = neurons
		neurons += size
		if l > 0 {
			n.weightOffset[l] = weights
			weights += size * layers[l-1]
		}
	}

	n.Weights = make([]float64, weights)
	n.Biases = make([]float64, neurons-layers[0])
	n.activations = make([]float64, neurons)
	return n, nil
}

// NewRandom creates a network and randomizes it
func NewRandom(layers []int, opts Options, rng *rand.Rand) (*Network, error) {
	n, err := New(layers, opts)
	if err != nil {
		return nil, err
	}
	n.Randomize(rng)
	return n, nil
}

// Randomize draws LeCun-uniform weights and zeroes the biases
func (n *Network) Randomize(rng *rand.Rand) {
	for l := 1; l < len(n.Layers); l++ {
		limit := math.Sqrt(3.0 / float64(n.Layers[l-1]))
		start := n.weightOffset[l]
		end := start + n.Layers[l]*n.Layers[l-1]
		for k := start; k < end; k++ {
			n.Weights[k] = (rng.Float64()*2 - 1) * limit
		}
	}
	for k := range n.Biases {
		n.Biases[k] = 0
	}
	n.hasPass = false
}

// Activation returns the activation used by hidden and output layers
func (n *Network) Activation() Activation {
	return n.activation
}

// LearningRate returns the gradient step size, 0 for mutation-only networks
func (n *Network) LearningRate() float64 {
	return n.learningRate
}

// Inputs returns the width of the input layer
func (n *Network) Inputs() int {
	return n.Layers[0]
}

// Outputs returns the width of the output layer
func (n *Network) Outputs() int {
	return n.Layers[len(n.Layers)-1]
}

// NeuronCount returns the number of neurons across all layers
func (n *Network) NeuronCount() int {
	return len(n.activations)
}

func (n *Network) biasIndex(layer, neuron int) int {
	return n.neuronOffset[layer] - n.Layers[0] + neuron
}

func (n *Network) weightIndex(layer, neuron, prev int) int {
	return n.weightOffset[layer] + neuron*n.Layers[layer-1] + prev
}

// Bias returns the bias of neuron j in layer l (l >= 1)
func (n *Network) Bias(l, j int) float64 {
	return n.Biases[n.biasIndex(l, j)]
}

// SetBias sets the bias of neuron j in layer l (l >= 1)
func (n *Network) SetBias(l, j int, v float64) {
	n.Biases[n.biasIndex(l, j)] = v
}

// Weight returns the weight from neuron i of layer l-1 into neuron j of layer l
func (n *Network) Weight(l, j, i int) float64 {
	return n.Weights[n.weightIndex(l, j, i)]
}

// SetWeight sets the weight from neuron i of layer l-1 into neuron j of layer l
func (n *Network) SetWeight(l, j, i int, v float64) {
	n.Weights[n.weightIndex(l, j, i)] = v
}

// Infer performs a forward pass and returns a copy of the output layer
func (n *Network) Infer(input []float64) ([]float64, error) {
	if len(input) != n.Layers[0] {
		return nil, fmt.Errorf("input width %d, network expects %d", len(input), n.Layers[0])
	}
	n.forward(input, n.activations)
	n.hasPass = true

	out := make([]float64, n.Outputs())
	copy(out, n.layer(n.activations, len(n.Layers)-1))
	return out, nil
}

// Act runs inference and turns the output into an action
func (n *Network) Act(input []float64) (Action, error) {
	out, err := n.Infer(input)
	if err != nil {
		return ActionLeft, err
	}
	return Decide(out), nil
}

func (n *Network) layer(buf []float64, l int) []float64 {
	start := n.neuronOffset[l]
	return buf[start : start+n.Layers[l]]
}

// forward writes every layer's activations into buf
func (n *Network) forward(input, buf []float64) {
	copy(n.layer(buf, 0), input)

	for l := 1; l < len(n.Layers); l++ {
		prev := n.layer(buf, l-1)
		cur := n.layer(buf, l)
		bias := n.biasIndex(l, 0)
		offset := n.weightOffset[l]

		for j := range cur {
			sum := n.Biases[bias+j]
			row := n.Weights[offset : offset+len(prev)]
			offset += len(prev)
			for i, p := range prev {
				sum += row[i] * p
			}
			cur[j] = n.activation.Fn(sum)
		}
	}
}

// Decide maps an output vector to an action: the sign of a single
// output, or the argmax of several.
func Decide(out []float64) Action {
	if len(out) == 1 {
		if out[0] > 0 {
			return ActionRight
		}
		return ActionLeft
	}
	return Action(argmax(out))
}

func argmax(vals []float64) int {
	maxIdx := 0
	maxVal := vals[0]
	for i := 1; i < len(vals); i++ {
		if vals[i] > maxVal {
			maxVal = vals[i]
			maxIdx = i
		}
	}
	return maxIdx
}

// Clone makes a deep copy with fresh scratch buffers
func (n *Network) Clone() *Network {
	c, _ := New(n.Layers, Options{Activation: n.activation, LearningRate: n.learningRate})
	copy(c.Weights, n.Weights)
	copy(c.Biases, n.Biases)
	return c
}
