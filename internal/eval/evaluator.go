package eval

import (
	"fmt"
	"runtime"
	"sync"

	"cartpole/internal/env"
	"cartpole/internal/ga"
	"cartpole/internal/nn"
)

// Evaluator runs episodes and scores them
type Evaluator struct {
	weights  env.FitnessWeights
	features string
	workers  int
}

// NewEvaluator creates an evaluator; workers <= 0 means one per CPU
func NewEvaluator(weights env.FitnessWeights, features string, workers int) *Evaluator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Evaluator{
		weights:  weights,
		features: features,
		workers:  workers,
	}
}

// Workers returns the number of evaluation goroutines
func (e *Evaluator) Workers() int {
	return e.workers
}

// RunEpisode drives one environment with its own brain until it terminates
func (e *Evaluator) RunEpisode(m *env.Env, replay *env.Replay) error {
	features := env.NewFeatureExtractor(e.features)
	for !m.Terminated() {
		action, err := m.Brain.Act(features.Extract(m.State()))
		if err != nil {
			return fmt.Errorf("member %d: %w", m.ID, err)
		}
		if replay != nil {
			replay.Record(action)
		}
		if _, err := m.Step(action); err != nil {
			return fmt.Errorf("member %d: %w", m.ID, err)
		}
	}
	return nil
}

// EvaluateAgent runs one episode and scores it
func (e *Evaluator) EvaluateAgent(m *env.Env) (float64, error) {
	if err := e.RunEpisode(m, nil); err != nil {
		return 0, err
	}
	return m.Finish(e.weights), nil
}

// EvaluatePopulation runs every member's episode in parallel. Members are
// split into one contiguous chunk per worker; the call returns only after
// every worker has finished.
func (e *Evaluator) EvaluatePopulation(pop *ga.Population) error {
	members := pop.Members
	workers := e.workers
	if workers > len(members) {
		workers = len(members)
	}
	chunk := (len(members) + workers - 1) / workers

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(members) {
			hi = len(members)
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(w int, part []*env.Env) {
			defer wg.Done()
			for _, m := range part {
				if _, err := e.EvaluateAgent(m); err != nil {
					errs[w] = err
					return
				}
			}
		}(w, members[lo:hi])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// EvaluateWithReplay runs a member's episode and records its actions.
// m must be freshly built from seed for the replay to play back.
func (e *Evaluator) EvaluateWithReplay(m *env.Env, seed int64, opts env.Options) (*env.Replay, env.EpisodeStats, error) {
	replay := env.NewReplay(seed, opts)
	if err := e.RunEpisode(m, replay); err != nil {
		return nil, env.EpisodeStats{}, err
	}
	stats := m.Stats(seed)
	replay.SetFinalStats(stats)
	return replay, stats, nil
}

// EvaluateMultiSeed plays a copy of brain once per seed on fresh
// environments. The caller's brain and fitness record are untouched.
func (e *Evaluator) EvaluateMultiSeed(brain *nn.Network, opts env.Options, seeds []int64) (env.AggregatedStats, error) {
	episodes := make([]env.EpisodeStats, len(seeds))
	for i, seed := range seeds {
		m, err := env.New(0, brain.Clone(), opts, seed)
		if err != nil {
			return env.AggregatedStats{}, err
		}
		if _, err := e.EvaluateAgent(m); err != nil {
			return env.AggregatedStats{}, fmt.Errorf("seed %d: %w", seed, err)
		}
		episodes[i] = m.Stats(seed)
	}
	return env.Aggregate(episodes), nil
}

// BenchmarkResult is one member's performance on the benchmark seeds
type BenchmarkResult struct {
	ID    int
	Stats env.AggregatedStats
}

// RunBenchmark evaluates members on a fixed seed suite, one goroutine per
// member bounded by the worker count.
func (e *Evaluator) RunBenchmark(members []*env.Env, opts env.Options, seeds []int64) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, len(members))
	errs := make([]error, len(members))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers)
	for i, m := range members {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, m *env.Env) {
			defer wg.Done()
			defer func() { <-sem }()
			stats, err := e.EvaluateMultiSeed(m.Brain, opts, seeds)
			results[i] = BenchmarkResult{ID: m.ID, Stats: stats}
			errs[i] = err
		}(i, m)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("benchmark member %d: %w", members[i].ID, err)
		}
	}
	return results, nil
}
