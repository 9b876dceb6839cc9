package ga

import (
	"fmt"
	"math/rand"
	"sort"

	"cartpole/internal/env"
	"cartpole/internal/nn"
)

// Spec describes how every member of a population is built
type Spec struct {
	Size     int
	Layers   []int
	Network  nn.Options
	Env      env.Options
	BaseSeed int64
}

// Population is a fixed set of environments, each owning one brain.
// Slot index equals the member's ID and never changes.
type Population struct {
	Members []*env.Env
	order   []int // slot indices, ascending by score after Rank
	rng     *rand.Rand
}

// NewPopulation creates a population of randomly initialised brains
func NewPopulation(spec Spec, rng *rand.Rand) (*Population, error) {
	if spec.Size < 2 {
		return nil, fmt.Errorf("population size must be at least 2, got %d", spec.Size)
	}
	p := &Population{
		Members: make([]*env.Env, spec.Size),
		order:   make([]int, spec.Size),
		rng:     rng,
	}

	for i := 0; i < spec.Size; i++ {
		brain, err := nn.NewRandom(spec.Layers, spec.Network, rng)
		if err != nil {
			return nil, err
		}
		e, err := env.New(i, brain, spec.Env, spec.BaseSeed+int64(i))
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		p.Members[i] = e
		p.order[i] = i
	}
	return p, nil
}

// Size returns the population size
func (p *Population) Size() int {
	return len(p.Members)
}

// Rank sorts the fitness view ascending by score. Slots keep their IDs.
func (p *Population) Rank() {
	sort.SliceStable(p.order, func(i, j int) bool {
		return p.Members[p.order[i]].Score < p.Members[p.order[j]].Score
	})
}

// Ranked returns the members in the order of the last Rank, worst first
func (p *Population) Ranked() []*env.Env {
	out := make([]*env.Env, len(p.order))
	for i, id := range p.order {
		out[i] = p.Members[id]
	}
	return out
}

// Best returns the member with the highest score
func (p *Population) Best() *env.Env {
	best := p.Members[0]
	for _, m := range p.Members[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	return best
}

// ResetAll resets every environment's physics for the next generation
func (p *Population) ResetAll() error {
	for _, m := range p.Members {
		if _, err := m.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// TopK returns the K best members, best first. Rank must have been called.
func (p *Population) TopK(k int) []*env.Env {
	if k > len(p.order) {
		k = len(p.order)
	}
	out := make([]*env.Env, 0, k)
	for i := len(p.order) - 1; i >= len(p.order)-k; i-- {
		out = append(out, p.Members[p.order[i]])
	}
	return out
}
