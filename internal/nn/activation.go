package nn

import (
	"fmt"
	"math"
)

// Activation is a transfer function paired with its derivative.
// Derivative takes the activation's output, not its input.
type Activation struct {
	Name       string
	Fn         func(x float64) float64
	Derivative func(y float64) float64
}

// SELU constants
const (
	seluLambda = 1.0507009873554805
	seluAlpha  = 1.6732632423543772
)

// HardTanh passes values through inside [-1,1] and clamps outside it
var HardTanh = Activation{
	Name: "hardtanh",
	Fn: func(x float64) float64 {
		return clamp(x, -1, 1)
	},
	Derivative: func(y float64) float64 {
		if y <= -1 || y >= 1 {
			return 0
		}
		return 1
	},
}

// SELU is the scaled exponential-linear unit
var SELU = Activation{
	Name: "selu",
	Fn: func(x float64) float64 {
		if x > 0 {
			return seluLambda * x
		}
		return seluLambda * seluAlpha * (math.Exp(x) - 1)
	},
	Derivative: func(y float64) float64 {
		if y > 0 {
			return seluLambda
		}
		// λα·e^x == y + λα on the negative branch
		return y + seluLambda*seluAlpha
	},
}

// Activations maps config names to activation functions
var Activations = map[string]Activation{
	HardTanh.Name: HardTanh,
	SELU.Name:     SELU,
}

// GetActivation retrieves an activation by name
func GetActivation(name string) (Activation, error) {
	if a, ok := Activations[name]; ok {
		return a, nil
	}
	return Activation{}, fmt.Errorf("unknown activation function: %s", name)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
