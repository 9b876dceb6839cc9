package main

import (
	"testing"

	"cartpole/internal/env"
)

func recordEpisode(t *testing.T, seed int64) (*env.Replay, *env.Env) {
	t.Helper()
	opts := env.Options{Integrator: env.SemiImplicitEuler}
	e, err := env.New(0, nil, opts, seed)
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	r := env.NewReplay(seed, opts)
	for !e.Terminated() {
		a := env.ActionLeft
		if e.State().Angle+e.State().AngularVelocity > 0 {
			a = env.ActionRight
		}
		r.Record(a)
		if _, err := e.Step(a); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	r.SetFinalStats(e.Stats(seed))
	return r, e
}

func TestPlayTraceFromStart(t *testing.T) {
	r, original := recordEpisode(t, 31)

	frames := 0
	e, err := playTrace(r, 0, func(*env.Env, env.Action) { frames++ })
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if frames != len(r.Actions) || e.State() != original.State() {
		t.Fatalf("%d frames for %d actions, state %+v vs %+v", frames, len(r.Actions), e.State(), original.State())
	}
}

func TestPlayTraceFastForward(t *testing.T) {
	r, original := recordEpisode(t, 32)
	if len(r.Actions) < 10 {
		t.Fatalf("episode too short: %d", len(r.Actions))
	}

	frames := 0
	e, err := playTrace(r, 5, func(e *env.Env, _ env.Action) {
		if frames == 0 && e.Steps() != 5 {
			t.Errorf("first frame at step %d, want 5", e.Steps())
		}
		frames++
	})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if frames != len(r.Actions)-5 || e.State() != original.State() {
		t.Fatalf("fast-forward diverged after %d frames", frames)
	}
}

func TestPlayTraceDetectsDivergence(t *testing.T) {
	r, _ := recordEpisode(t, 33)
	r.FinalStats.Steps++
	if _, err := playTrace(r, 0, nil); err == nil {
		t.Fatal("expected a divergence error")
	}
}
