package env

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r1"

	"cartpole/internal/nn"
)

// StrictResetBound is the half-width every strict reset must stay within
const StrictResetBound = 0.05

var (
	ErrInvalidAction    = errors.New("action must be 0 (left) or 1 (right)")
	ErrResetOutOfBounds = errors.New("reset produced a state outside the strict bound")
)

// Action is a discrete push direction
type Action = nn.Action

const (
	ActionLeft  = nn.ActionLeft
	ActionRight = nn.ActionRight
)

// Options configures an environment
type Options struct {
	Integrator  Integrator
	ResetBound  float64 // half-width of the uniform reset interval
	StrictReset bool    // reject draws outside StrictResetBound
}

// Transition is the result of one Step
type Transition struct {
	State      State
	Terminated bool
	Reward     int
}

// Env is the cart-pole environment. It owns its brain and the running
// fitness record of the individual in its population slot.
type Env struct {
	ID    int
	Brain *nn.Network

	// Fitness record, kept across episodes
	Wins   int
	Losses int
	Age    int
	Score  float64

	state      State
	terminated bool
	outcome    Outcome
	steps      int
	speedSum   float64
	angleSum   float64

	opts  Options
	reset r1.Interval
	rng   *rand.Rand
}

// New creates an environment with the given identity and seed and resets it
func New(id int, brain *nn.Network, opts Options, seed int64) (*Env, error) {
	if opts.ResetBound <= 0 {
		opts.ResetBound = StrictResetBound
	}
	e := &Env{
		ID:    id,
		Brain: brain,
		opts:  opts,
		reset: r1.Interval{Min: -opts.ResetBound, Max: opts.ResetBound},
		rng:   rand.New(rand.NewSource(seed)),
	}
	if _, err := e.Reset(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset draws a fresh initial state and clears the episode counters.
// The brain and the fitness record are left alone.
func (e *Env) Reset() (State, error) {
	s := State{
		Position:        e.draw(),
		Velocity:        e.draw(),
		Angle:           e.draw(),
		AngularVelocity: e.draw(),
	}
	if e.opts.StrictReset {
		for _, v := range [...]float64{s.Position, s.Velocity, s.Angle, s.AngularVelocity} {
			if math.Abs(v) > StrictResetBound {
				return State{}, fmt.Errorf("env %d: %w: %+v", e.ID, ErrResetOutOfBounds, s)
			}
		}
	}

	e.state = s
	e.terminated = false
	e.outcome = Running
	e.steps = 0
	e.speedSum = 0
	e.angleSum = 0
	return s, nil
}

// SetState overrides the current state, for scripted scenarios
func (e *Env) SetState(s State) {
	e.state = s
}

func (e *Env) draw() float64 {
	return e.reset.Min + e.rng.Float64()*(e.reset.Max-e.reset.Min)
}

// Step advances the simulation by one tick
func (e *Env) Step(action Action) (Transition, error) {
	if action != ActionLeft && action != ActionRight {
		return Transition{}, fmt.Errorf("%w: got %d", ErrInvalidAction, action)
	}
	if e.terminated {
		return Transition{State: e.state, Terminated: true}, nil
	}

	force := ForceMag
	if action == ActionLeft {
		force = -ForceMag
	}

	e.state = Advance(e.state, force, e.opts.Integrator)
	e.steps++
	e.speedSum += math.Abs(e.state.Velocity)
	e.angleSum += math.Abs(e.state.Angle)

	switch {
	case e.state.Position < -PositionThreshold || e.state.Position > PositionThreshold:
		e.outcome = CartOut
	case e.state.Angle < -AngleThreshold || e.state.Angle > AngleThreshold:
		e.outcome = PoleFell
	case e.steps > MaxSteps:
		e.outcome = Truncated
	}
	e.terminated = e.outcome != Running

	return Transition{State: e.state, Terminated: e.terminated, Reward: 1}, nil
}

// State returns the current snapshot
func (e *Env) State() State {
	return e.state
}

// Terminated reports whether the episode is over
func (e *Env) Terminated() bool {
	return e.terminated
}

// Steps returns the reward counter of the current episode
func (e *Env) Steps() int {
	return e.steps
}

// Outcome returns how the current episode ended
func (e *Env) Outcome() Outcome {
	return e.outcome
}

// Stats returns the episode statistics
func (e *Env) Stats(seed int64) EpisodeStats {
	avgSpeed, avgDev := e.averages()
	return EpisodeStats{
		Score:        e.Score,
		Steps:        e.steps,
		AvgSpeed:     avgSpeed,
		AvgDeviation: avgDev,
		Outcome:      e.outcome,
		Seed:         seed,
	}
}

func (e *Env) averages() (speed, deviation float64) {
	if e.steps == 0 {
		return 0, 0
	}
	n := float64(e.steps)
	return e.speedSum / n, e.angleSum / n
}

// ClearRecord forgets the fitness history, used when a new genome moves into the slot
func (e *Env) ClearRecord() {
	e.Wins = 0
	e.Losses = 0
	e.Age = 0
	e.Score = 0
}
