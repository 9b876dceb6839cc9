package ga

import (
	"gonum.org/v1/gonum/stat"
)

// Report summarises one evaluated generation
type Report struct {
	Generation int     `json:"generation"`
	BestID     int     `json:"best_id"`
	BestScore  float64 `json:"best_score"`
	BestSteps  int     `json:"best_steps"`
	Formula    string  `json:"formula"`
	MeanScore  float64 `json:"mean_score"`
	StdScore   float64 `json:"std_score"`
	MeanSteps  float64 `json:"mean_steps"`
	Wins       int     `json:"wins"`
	Improved   bool    `json:"improved"`

	Outcomes map[string]int `json:"outcomes"`
}

// Summarize builds a report from the evaluated, not yet mutated, population
func Summarize(gen int, p *Population) Report {
	scores := make([]float64, p.Size())
	steps := make([]float64, p.Size())
	r := Report{
		Generation: gen,
		Outcomes:   make(map[string]int),
	}
	for i, m := range p.Members {
		scores[i] = m.Score
		steps[i] = float64(m.Steps())
		r.Outcomes[m.Outcome().String()]++
		if m.Won() {
			r.Wins++
		}
	}
	r.MeanScore, r.StdScore = stat.PopMeanStdDev(scores, nil)
	r.MeanSteps = stat.Mean(steps, nil)

	best := p.Best()
	r.BestID = best.ID
	r.BestScore = best.Score
	r.BestSteps = best.Steps()
	r.Formula = best.Brain.Describe()
	return r
}
