package ga

import (
	"math/rand"
	"testing"

	"cartpole/internal/env"
	"cartpole/internal/nn"
)

func newTestPopulation(t *testing.T, size int, seed int64) *Population {
	t.Helper()
	p, err := NewPopulation(Spec{
		Size:     size,
		Layers:   []int{4, 3, 1},
		Network:  nn.Options{Activation: nn.HardTanh},
		BaseSeed: 10,
	}, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("population: %v", err)
	}
	return p
}

// scoreByID gives slot i the score i, so the upper half are the elites
func scoreByID(p *Population) {
	for i, m := range p.Members {
		m.Score = float64(i)
		m.Wins = i
	}
	p.Rank()
}

func TestRankAndTopK(t *testing.T) {
	p := newTestPopulation(t, 6, 1)
	scores := []float64{3, 9, 1, 7, 5, 2}
	for i, m := range p.Members {
		m.Score = scores[i]
	}
	p.Rank()

	ranked := p.Ranked()
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score > ranked[i].Score {
			t.Fatalf("ranked out of order at %d", i)
		}
	}
	top := p.TopK(2)
	if len(top) != 2 || top[0].ID != 1 || top[1].ID != 3 {
		t.Fatalf("unexpected top 2: %d %d", top[0].ID, top[1].ID)
	}
	if p.Best().ID != 1 {
		t.Fatalf("best is %d", p.Best().ID)
	}
	if len(p.TopK(100)) != 6 {
		t.Fatal("TopK should clamp to the population size")
	}
	for i, m := range p.Members {
		if m.ID != i {
			t.Fatal("ranking must not move members between slots")
		}
	}
}

func TestReplaceCondemnedCopiesElites(t *testing.T) {
	p := newTestPopulation(t, 8, 2)
	scoreByID(p)
	elites := make([]*nn.Network, 8)
	for i, m := range p.Members {
		elites[i] = m.Brain.Clone()
	}

	// zero chance keeps the copies exact
	condemned, err := ReplaceCondemned(p, MutationConfig{PercentChance: 0, Magnitude: 1})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(condemned) != 4 {
		t.Fatalf("expected 4 condemned slots, got %d", len(condemned))
	}
	for k := 0; k < 4; k++ {
		loser := p.Members[k]
		elite := elites[k+4]
		for i := range elite.Weights {
			if loser.Brain.Weights[i] != elite.Weights[i] {
				t.Fatalf("slot %d: weight %d not copied from slot %d", k, i, k+4)
			}
		}
		if loser.Wins != 0 || loser.Score != 0 {
			t.Fatalf("slot %d kept its old record", k)
		}
		if loser.ID != k {
			t.Fatalf("slot %d changed identity to %d", k, loser.ID)
		}
	}
	for k := 4; k < 8; k++ {
		if p.Members[k].Wins != k {
			t.Fatalf("elite %d lost its record", k)
		}
	}
}

func TestReplaceCondemnedMutates(t *testing.T) {
	p := newTestPopulation(t, 4, 3)
	scoreByID(p)
	if _, err := ReplaceCondemned(p, MutationConfig{PercentChance: 50, Magnitude: 1}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	for k := 0; k < 2; k++ {
		same := true
		for i, w := range p.Members[k].Brain.Weights {
			if w != p.Members[k+2].Brain.Weights[i] {
				same = false
			}
		}
		for i, b := range p.Members[k].Brain.Biases {
			if b != p.Members[k+2].Brain.Biases[i] {
				same = false
			}
		}
		if same {
			t.Fatalf("slot %d is an unmutated copy", k)
		}
	}
}

func TestInjectRandomCount(t *testing.T) {
	p := newTestPopulation(t, 10, 4)
	candidates := []int{0, 1, 2, 3, 4}

	if got := InjectRandom(p, candidates, MutationConfig{RandomPercent: 0}); len(got) != 1 {
		t.Fatalf("expected at least one injection, got %d", len(got))
	}
	got := InjectRandom(p, candidates, MutationConfig{RandomPercent: 30})
	if len(got) != 3 {
		t.Fatalf("expected 3 injections, got %d", len(got))
	}
	for _, id := range got {
		if id > 4 {
			t.Fatalf("injected into non-candidate slot %d", id)
		}
	}
	if got := InjectRandom(p, candidates, MutationConfig{RandomPercent: 100}); len(got) != len(candidates) {
		t.Fatalf("injections should be capped by candidates, got %d", len(got))
	}
}

func TestNextGenerationResets(t *testing.T) {
	p := newTestPopulation(t, 6, 5)
	for _, m := range p.Members {
		for !m.Terminated() {
			m.Step(env.ActionLeft)
		}
		m.Finish(env.DefaultFitnessWeights())
	}
	if err := NextGeneration(p, MutationConfig{PercentChance: 10, Magnitude: 1, RandomPercent: 2}); err != nil {
		t.Fatalf("next generation: %v", err)
	}
	for _, m := range p.Members {
		if m.Terminated() || m.Steps() != 0 {
			t.Fatalf("member %d not reset", m.ID)
		}
	}
}

func TestSummarize(t *testing.T) {
	p := newTestPopulation(t, 4, 6)
	for _, m := range p.Members {
		for !m.Terminated() {
			m.Step(env.ActionRight)
		}
		m.Finish(env.DefaultFitnessWeights())
	}
	r := Summarize(3, p)
	best := p.Best()
	if r.Generation != 3 || r.BestID != best.ID || r.BestScore != best.Score || r.BestSteps != best.Steps() {
		t.Fatalf("unexpected report %+v", r)
	}
	total := 0
	for _, n := range r.Outcomes {
		total += n
	}
	if total != 4 || r.Wins != 0 {
		t.Fatalf("outcomes %v wins %d", r.Outcomes, r.Wins)
	}
	if r.Formula != best.Brain.Describe() {
		t.Fatal("formula should describe the best brain")
	}
}

func TestNewPopulationRejectsTiny(t *testing.T) {
	_, err := NewPopulation(Spec{Size: 1, Layers: []int{4, 1}}, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("expected error")
	}
}
