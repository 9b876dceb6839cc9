package env

import "math"

// FitnessWeights are the tunable coefficients of the episode score
type FitnessWeights struct {
	StepWeight   float64 `yaml:"step_weight" ini:"step_weight"`
	SpeedPenalty float64 `yaml:"speed_penalty" ini:"speed_penalty"`
	AnglePenalty float64 `yaml:"angle_penalty" ini:"angle_penalty"`
	WinBonus     float64 `yaml:"win_bonus" ini:"win_bonus"`
	AgeBonus     float64 `yaml:"age_bonus" ini:"age_bonus"`
	LossPenalty  float64 `yaml:"loss_penalty" ini:"loss_penalty"`
}

// DefaultFitnessWeights returns the stock coefficients
func DefaultFitnessWeights() FitnessWeights {
	return FitnessWeights{
		StepWeight:   100,
		SpeedPenalty: 10,
		AnglePenalty: 100,
		WinBonus:     1000,
		AgeBonus:     100,
		LossPenalty:  10000,
	}
}

// winFloor sits above every possible loss score
const winFloor = MaxSteps + 2

// Won reports whether the current episode survived past the step limit
func (e *Env) Won() bool {
	return e.steps > MaxSteps
}

// Finish scores the completed episode and updates the fitness record.
// Any win ranks above any loss; among losses more steps always rank higher.
func (e *Env) Finish(w FitnessWeights) float64 {
	avgSpeed, avgDev := e.averages()
	steps := float64(e.steps)

	if e.Won() {
		e.Wins++
		e.Age++
		score := steps*w.StepWeight -
			avgSpeed*w.SpeedPenalty -
			avgDev*w.AnglePenalty +
			float64(e.Wins)*w.WinBonus +
			float64(e.Age)*w.AgeBonus -
			float64(e.Losses)*w.LossPenalty
		e.Score = math.Max(score, winFloor)
		return e.Score
	}

	e.Losses++
	e.Age = 0
	// speed penalty is squashed into [0,1) so it never outweighs one step
	e.Score = steps - avgSpeed/(1+avgSpeed)
	return e.Score
}
