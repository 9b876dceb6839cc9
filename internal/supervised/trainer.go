// Package supervised fits a network to tell which way a rendered pole leans.
package supervised

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r1"

	"cartpole/internal/nn"
	"cartpole/internal/render"
)

// Acceptance band around the 0.5 decision boundary
const (
	AcceptLeft  = 0.49
	AcceptRight = 0.51
)

var ErrNotConverged = errors.New("training did not converge")

// Options bounds the sweep and the training effort
type Options struct {
	SweepMin      float64 // degrees
	SweepMax      float64
	SweepStep     float64
	MaxIterations int // backprop calls per TrainForAngle
	MaxRounds     int // probe rounds in Train
}

// Trainer drives one SELU network against rendered pole images
type Trainer struct {
	net  *nn.Network
	enc  *render.Encoder
	opts Options
	rng  *rand.Rand

	sweep r1.Interval

	lastIncorrect float64
	Iterations    int // total backprop calls so far
}

// NewNetwork builds a network sized for enc with a single output
func NewNetwork(enc *render.Encoder, hidden []int, learningRate float64, rng *rand.Rand) (*nn.Network, error) {
	layers := append([]int{enc.Size()}, hidden...)
	layers = append(layers, 1)
	return nn.NewRandom(layers, nn.Options{Activation: nn.SELU, LearningRate: learningRate}, rng)
}

// NewTrainer wraps net, which must take enc's vectors and emit one output
func NewTrainer(net *nn.Network, enc *render.Encoder, opts Options, rng *rand.Rand) (*Trainer, error) {
	if net.Inputs() != enc.Size() {
		return nil, fmt.Errorf("network takes %d inputs, encoder emits %d", net.Inputs(), enc.Size())
	}
	if net.Outputs() != 1 {
		return nil, fmt.Errorf("network must have one output, has %d", net.Outputs())
	}
	if net.LearningRate() <= 0 {
		return nil, nn.ErrNotTrainable
	}
	if opts.SweepStep <= 0 {
		return nil, fmt.Errorf("sweep step must be positive, got %g", opts.SweepStep)
	}
	if opts.SweepMax < opts.SweepMin {
		return nil, fmt.Errorf("sweep [%g,%g] is empty", opts.SweepMin, opts.SweepMax)
	}
	return &Trainer{
		net:   net,
		enc:   enc,
		opts:  opts,
		rng:   rng,
		sweep: r1.Interval{Min: opts.SweepMin, Max: opts.SweepMax},
	}, nil
}

// Network returns the network being trained
func (t *Trainer) Network() *nn.Network {
	return t.net
}

// Label is the expected output: 0 for a pole leaning left, 1 otherwise
func Label(degrees float64) float64 {
	if degrees < 0 {
		return 0
	}
	return 1
}

// Accepted reports whether out lies on the label's side of the dead zone
func Accepted(out, label float64) bool {
	if label == 0 {
		return out <= AcceptLeft
	}
	return out >= AcceptRight
}

// Predict returns the raw network output for a pole at degrees
func (t *Trainer) Predict(degrees float64) (float64, error) {
	out, err := t.net.Infer(t.enc.Encode(degrees))
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// TrainForAngle back-propagates the label of degrees until the output is
// accepted. Returns the number of backprop calls it took.
func (t *Trainer) TrainForAngle(degrees float64) (int, error) {
	input := t.enc.Encode(degrees)
	expected := []float64{Label(degrees)}

	for i := 0; i < t.opts.MaxIterations; i++ {
		out, err := t.net.Infer(input)
		if err != nil {
			return i, err
		}
		if Accepted(out[0], expected[0]) {
			return i, nil
		}
		if err := t.net.BackPropagate(expected); err != nil {
			return i, err
		}
		t.Iterations++
	}
	return t.opts.MaxIterations, fmt.Errorf("angle %.2f: %w after %d iterations", degrees, ErrNotConverged, t.opts.MaxIterations)
}

func (t *Trainer) sweepCount() int {
	return int(math.Floor((t.sweep.Max-t.sweep.Min)/t.opts.SweepStep+1e-9)) + 1
}

func (t *Trainer) sweepAngle(k int) float64 {
	return t.sweep.Min + float64(k)*t.opts.SweepStep
}

// IsTrained sweeps the angle range. On the first rejected angle it trains
// that angle once and returns false.
func (t *Trainer) IsTrained() (bool, error) {
	for k := 0; k < t.sweepCount(); k++ {
		deg := t.sweepAngle(k)
		out, err := t.Predict(deg)
		if err != nil {
			return false, err
		}
		if !Accepted(out, Label(deg)) {
			t.lastIncorrect = deg
			_, err := t.TrainForAngle(deg)
			return false, err
		}
	}
	return true, nil
}

// Result summarises a Train call
type Result struct {
	Rounds     int
	Iterations int
}

// Train runs one full sweep, then alternates IsTrained checks with random
// probes near the last rejected angle until every sweep angle is accepted.
func (t *Trainer) Train(ctx context.Context) (Result, error) {
	for k := 0; k < t.sweepCount(); k++ {
		if _, err := t.TrainForAngle(t.sweepAngle(k)); err != nil {
			return Result{Iterations: t.Iterations}, err
		}
	}

	for round := 0; round < t.opts.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return Result{Rounds: round, Iterations: t.Iterations}, err
		}
		ok, err := t.IsTrained()
		if err != nil {
			return Result{Rounds: round, Iterations: t.Iterations}, err
		}
		if ok {
			return Result{Rounds: round, Iterations: t.Iterations}, nil
		}
		if _, err := t.TrainForAngle(t.probe(round)); err != nil {
			return Result{Rounds: round, Iterations: t.Iterations}, err
		}
	}
	return Result{Rounds: t.opts.MaxRounds, Iterations: t.Iterations},
		fmt.Errorf("%w within %d rounds", ErrNotConverged, t.opts.MaxRounds)
}

// probe picks a sweep angle near the last rejected one, mirrored on odd rounds
func (t *Trainer) probe(round int) float64 {
	spread := (t.sweep.Max - t.sweep.Min) / 4
	deg := t.lastIncorrect + t.rng.NormFloat64()*spread
	if round%2 == 1 {
		deg = -deg
	}
	// snap onto the sweep grid
	k := int(math.Round((deg - t.sweep.Min) / t.opts.SweepStep))
	if k < 0 {
		k = 0
	}
	if last := t.sweepCount() - 1; k > last {
		k = last
	}
	return t.sweepAngle(k)
}
