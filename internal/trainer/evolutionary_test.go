package trainer

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"cartpole/internal/env"
	"cartpole/internal/ga"
	"cartpole/internal/nn"
)

func testConfig(size int) Config {
	return Config{
		Population: ga.Spec{
			Size:     size,
			Layers:   []int{4, 4, 1},
			Network:  nn.Options{Activation: nn.HardTanh},
			BaseSeed: 100,
		},
		Mutation: ga.MutationConfig{PercentChance: 10, Magnitude: 1, RandomPercent: 2},
		Fitness:  env.DefaultFitnessWeights(),
		Features: "raw",
		Workers:  3,
	}
}

func TestRunStopsBetweenGenerations(t *testing.T) {
	tr, err := NewEvolutionary(testConfig(20), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reports []ga.Report
	err = tr.Run(ctx, func(r ga.Report, pop *ga.Population) error {
		reports = append(reports, r)
		// every worker has joined before the callback runs
		for _, m := range pop.Members {
			if !m.Terminated() {
				t.Errorf("member %d still running in generation %d", m.ID, r.Generation)
			}
		}
		if r.Generation == 5 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(reports) != 5 || tr.Generation() != 5 {
		t.Fatalf("expected 5 generations, got %d reports, generation %d", len(reports), tr.Generation())
	}
	if !reports[0].Improved {
		t.Fatal("first generation must be reported")
	}
	for i, r := range reports {
		if r.Generation != i+1 {
			t.Fatalf("report %d has generation %d", i, r.Generation)
		}
		if i > 0 && r.Improved != (r.BestScore != reports[i-1].BestScore) {
			t.Fatalf("generation %d: improved=%v but best %f vs %f", r.Generation, r.Improved, r.BestScore, reports[i-1].BestScore)
		}
	}
}

func TestIdentitiesSurviveGenerations(t *testing.T) {
	tr, err := NewEvolutionary(testConfig(10), rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for gen := 0; gen < 3; gen++ {
		if _, err := tr.Evaluate(); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if err := tr.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	for i, m := range tr.Population().Members {
		if m.ID != i {
			t.Fatalf("slot %d holds id %d", i, m.ID)
		}
		if m.Terminated() || m.Steps() != 0 {
			t.Fatalf("member %d not reset after advance", i)
		}
	}
}

func TestBestSnapshotMatchesReport(t *testing.T) {
	tr, err := NewEvolutionary(testConfig(12), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := tr.Best(); ok {
		t.Fatal("no best before the first generation")
	}
	r, err := tr.Evaluate()
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	best, ok := tr.Best()
	if !ok {
		t.Fatal("expected a best after evaluation")
	}
	if best.ID != r.BestID || best.Score != r.BestScore || best.Generation != 1 {
		t.Fatalf("best %+v does not match report %+v", best, r)
	}
	net, err := nn.FromSnapshot(best.Network)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if net.Describe() != best.Formula {
		t.Fatalf("formula mismatch: %q vs %q", net.Describe(), best.Formula)
	}
}

func TestCallbackErrorStopsRun(t *testing.T) {
	tr, err := NewEvolutionary(testConfig(4), rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	stop := errors.New("stop")
	err = tr.Run(context.Background(), func(ga.Report, *ga.Population) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestNewEvolutionaryRejectsTinyPopulation(t *testing.T) {
	if _, err := NewEvolutionary(testConfig(1), rand.New(rand.NewSource(5))); err == nil {
		t.Fatal("expected an error for a population of one")
	}
}
