// Package trainer runs the generational search over cart-pole controllers.
package trainer

import (
	"context"
	"fmt"
	"math/rand"

	"cartpole/internal/env"
	"cartpole/internal/eval"
	"cartpole/internal/ga"
	"cartpole/internal/nn"
)

// Config assembles everything the evolutionary trainer needs
type Config struct {
	Population ga.Spec
	Mutation   ga.MutationConfig
	Fitness    env.FitnessWeights
	Features   string
	Workers    int
}

// Best is a snapshot of the best individual seen in the latest generation
type Best struct {
	ID         int
	Generation int
	Score      float64
	Steps      int
	Formula    string
	Network    nn.Snapshot
}

// GenerationFunc is called after every evaluation, before selection. The
// population is fully evaluated and ranked while it runs.
type GenerationFunc func(report ga.Report, pop *ga.Population) error

// Evolutionary owns a population and steps it generation by generation
type Evolutionary struct {
	pop        *ga.Population
	evaluator  *eval.Evaluator
	mutation   ga.MutationConfig
	generation int
	best       Best
	hasBest    bool
}

// NewEvolutionary builds the population and the evaluator
func NewEvolutionary(cfg Config, rng *rand.Rand) (*Evolutionary, error) {
	pop, err := ga.NewPopulation(cfg.Population, rng)
	if err != nil {
		return nil, fmt.Errorf("build population: %w", err)
	}
	return &Evolutionary{
		pop:       pop,
		evaluator: eval.NewEvaluator(cfg.Fitness, cfg.Features, cfg.Workers),
		mutation:  cfg.Mutation,
	}, nil
}

// Population returns the trained population
func (t *Evolutionary) Population() *ga.Population {
	return t.pop
}

// Evaluator returns the episode evaluator
func (t *Evolutionary) Evaluator() *eval.Evaluator {
	return t.evaluator
}

// Generation returns the number of evaluated generations
func (t *Evolutionary) Generation() int {
	return t.generation
}

// Best returns the best individual of the latest generation
func (t *Evolutionary) Best() (Best, bool) {
	return t.best, t.hasBest
}

// Evaluate runs every member's episode in parallel, scores and ranks the
// population, and reports whether the best score moved.
func (t *Evolutionary) Evaluate() (ga.Report, error) {
	t.generation++
	if err := t.evaluator.EvaluatePopulation(t.pop); err != nil {
		return ga.Report{}, fmt.Errorf("generation %d: %w", t.generation, err)
	}
	t.pop.Rank()

	report := ga.Summarize(t.generation, t.pop)
	report.Improved = !t.hasBest || report.BestScore != t.best.Score

	best := t.pop.Best()
	t.best = Best{
		ID:         best.ID,
		Generation: t.generation,
		Score:      best.Score,
		Steps:      best.Steps(),
		Formula:    report.Formula,
		Network:    best.Brain.Snapshot(),
	}
	t.hasBest = true
	return report, nil
}

// Advance replaces the condemned half, injects fresh brains and resets
// every environment
func (t *Evolutionary) Advance() error {
	return ga.NextGeneration(t.pop, t.mutation)
}

// Run loops generations until ctx is cancelled. Cancellation is only
// checked between generations, so the population is never left half
// mutated. Returns ctx.Err() on cancellation.
func (t *Evolutionary) Run(ctx context.Context, onGeneration GenerationFunc) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		report, err := t.Evaluate()
		if err != nil {
			return err
		}
		if onGeneration != nil {
			if err := onGeneration(report, t.pop); err != nil {
				return err
			}
		}
		if err := t.Advance(); err != nil {
			return fmt.Errorf("generation %d: %w", t.generation, err)
		}
	}
}
