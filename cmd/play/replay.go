package main

import (
	"fmt"

	"cartpole/internal/env"
)

// playTrace rebuilds the recorded episode. The first `from` actions are
// fast-forwarded; frame is called before each of the remaining steps.
func playTrace(r *env.Replay, from int, frame func(e *env.Env, next env.Action)) (*env.Env, error) {
	e, err := r.Playback()
	if err != nil {
		return nil, err
	}
	if from < 0 {
		from = 0
	}
	if err := r.PlaybackStep(e, from); err != nil {
		return nil, err
	}
	for i := from; i < len(r.Actions) && !e.Terminated(); i++ {
		if frame != nil {
			frame(e, r.Actions[i])
		}
		if _, err := e.Step(r.Actions[i]); err != nil {
			return nil, fmt.Errorf("replay step %d: %w", i, err)
		}
	}
	if e.Steps() != r.FinalStats.Steps || e.Outcome() != r.FinalStats.Outcome {
		return e, fmt.Errorf("replay diverged: %d steps (%s), recorded %d (%s)",
			e.Steps(), e.Outcome(), r.FinalStats.Steps, r.FinalStats.Outcome)
	}
	return e, nil
}
