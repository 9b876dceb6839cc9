package env

import (
	"fmt"
	"math"
	"strings"
)

// Physical constants of the cart-pole system
const (
	Gravity        = 9.8
	CartMass       = 1.0
	PoleMass       = 0.1
	TotalMass      = CartMass + PoleMass
	HalfPoleLength = 0.5
	PoleMassLength = PoleMass * HalfPoleLength
	ForceMag       = 10.0
	Tau            = 0.02 // seconds per step

	PositionThreshold = 2.4
	AngleThreshold    = 12 * 2 * math.Pi / 360
	MaxSteps          = 500
)

// State is one snapshot of the cart-pole system
type State struct {
	Position        float64 `json:"position"`
	Velocity        float64 `json:"velocity"`
	Angle           float64 `json:"angle"`
	AngularVelocity float64 `json:"angular_velocity"`
}

// Finite reports whether every field is a real number
func (s State) Finite() bool {
	for _, v := range [...]float64{s.Position, s.Velocity, s.Angle, s.AngularVelocity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Integrator selects the time-stepping scheme
type Integrator int

const (
	Euler Integrator = iota
	SemiImplicitEuler
)

func (i Integrator) String() string {
	switch i {
	case Euler:
		return "euler"
	case SemiImplicitEuler:
		return "semi-implicit"
	default:
		return "unknown"
	}
}

// ParseIntegrator maps a config string to an Integrator
func ParseIntegrator(name string) (Integrator, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", "euler":
		return Euler, nil
	case "semi-implicit", "semi_implicit", "semi-implicit-euler":
		return SemiImplicitEuler, nil
	default:
		return Euler, fmt.Errorf("unsupported integrator: %s", name)
	}
}

// Advance applies force to s for one tick and returns the next state.
func Advance(s State, force float64, integrator Integrator) State {
	cosTheta := math.Cos(s.Angle)
	sinTheta := math.Sin(s.Angle)

	temp := (force + PoleMassLength*s.AngularVelocity*s.AngularVelocity*sinTheta) / TotalMass
	angularAcc := (Gravity*sinTheta - cosTheta*temp) /
		(HalfPoleLength * (4.0/3.0 - PoleMass*cosTheta*cosTheta/TotalMass))
	acc := temp - PoleMassLength*angularAcc*cosTheta/TotalMass

	next := s
	if integrator == SemiImplicitEuler {
		next.Velocity += Tau * acc
		next.Position += Tau * next.Velocity
		next.AngularVelocity += Tau * angularAcc
		next.Angle += Tau * next.AngularVelocity
		return next
	}

	next.Position += Tau * s.Velocity
	next.Velocity += Tau * acc
	next.Angle += Tau * s.AngularVelocity
	next.AngularVelocity += Tau * angularAcc
	return next
}
