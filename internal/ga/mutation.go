package ga

import (
	"fmt"

	"cartpole/internal/nn"
)

// MutationConfig holds the selection-and-mutation parameters
type MutationConfig struct {
	PercentChance float64 // per-parameter chance, 0..100
	Magnitude     float64
	RandomPercent float64 // share of slots re-seeded with fresh brains, 0..100
}

// ReplaceCondemned overwrites the lower half of the ranked population with
// mutated copies of the upper half. Rank must have been called.
// Returns the IDs of the condemned slots.
func ReplaceCondemned(p *Population, cfg MutationConfig) ([]int, error) {
	half := p.Size() / 2
	condemned := make([]int, 0, half)
	for k := 0; k < half; k++ {
		loser := p.Members[p.order[k]]
		elite := p.Members[p.order[k+half]]
		if err := nn.CopyFromTo(elite.Brain, loser.Brain); err != nil {
			return nil, fmt.Errorf("slot %d from elite %d: %w", loser.ID, elite.ID, err)
		}
		loser.ClearRecord()
		loser.Brain.Mutate(cfg.PercentChance, cfg.Magnitude, p.rng)
		condemned = append(condemned, loser.ID)
	}
	return condemned, nil
}

// InjectRandom re-seeds RandomPercent of the population with fresh brains,
// always at least one, drawn from the given candidate slots.
// Returns the IDs that were replaced.
func InjectRandom(p *Population, candidates []int, cfg MutationConfig) []int {
	count := int(float64(p.Size()) * cfg.RandomPercent / 100)
	if count < 1 {
		count = 1
	}
	if len(candidates) == 0 {
		return nil
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	pool := append([]int(nil), candidates...)
	p.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	replaced := pool[:count]
	for _, id := range replaced {
		m := p.Members[id]
		m.Brain.Randomize(p.rng)
		m.ClearRecord()
	}
	return replaced
}

// NextGeneration runs selection, mutation and diversity injection, then
// resets every environment.
func NextGeneration(p *Population, cfg MutationConfig) error {
	p.Rank()
	condemned, err := ReplaceCondemned(p, cfg)
	if err != nil {
		return err
	}
	InjectRandom(p, condemned, cfg)
	return p.ResetAll()
}
