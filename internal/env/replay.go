package env

import (
	"encoding/json"
	"fmt"
	"os"
)

// Replay stores a deterministic action trace for playback
type Replay struct {
	Seed       int64        `json:"seed"`
	Actions    []Action     `json:"actions"`
	FinalStats EpisodeStats `json:"final_stats"`
	Config     ReplayConfig `json:"config"`
}

// ReplayConfig stores environment options for replay
type ReplayConfig struct {
	Integrator  string  `json:"integrator"`
	ResetBound  float64 `json:"reset_bound"`
	StrictReset bool    `json:"strict_reset"`
}

// NewReplay creates a new replay recorder
func NewReplay(seed int64, opts Options) *Replay {
	return &Replay{
		Seed:    seed,
		Actions: make([]Action, 0, MaxSteps+1),
		Config: ReplayConfig{
			Integrator:  opts.Integrator.String(),
			ResetBound:  opts.ResetBound,
			StrictReset: opts.StrictReset,
		},
	}
}

// Record adds an action to the replay
func (r *Replay) Record(action Action) {
	r.Actions = append(r.Actions, action)
}

// SetFinalStats sets the final episode statistics
func (r *Replay) SetFinalStats(stats EpisodeStats) {
	r.FinalStats = stats
}

// Save writes the replay to a file
func (r *Replay) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadReplay loads a replay from a file
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Replay
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Playback recreates the environment from the replay, freshly reset
func (r *Replay) Playback() (*Env, error) {
	integrator, err := ParseIntegrator(r.Config.Integrator)
	if err != nil {
		return nil, err
	}
	return New(0, nil, Options{
		Integrator:  integrator,
		ResetBound:  r.Config.ResetBound,
		StrictReset: r.Config.StrictReset,
	}, r.Seed)
}

// PlaybackStep runs the replay up to step n
func (r *Replay) PlaybackStep(e *Env, step int) error {
	if step > len(r.Actions) {
		step = len(r.Actions)
	}
	for i := 0; i < step && !e.Terminated(); i++ {
		if _, err := e.Step(r.Actions[i]); err != nil {
			return fmt.Errorf("replay step %d: %w", i, err)
		}
	}
	return nil
}
