package env

import (
	"gonum.org/v1/gonum/stat"
)

// Outcome indicates how an episode ended
type Outcome int

const (
	Running   Outcome = iota
	CartOut           // cart left the track
	PoleFell          // angle past the threshold
	Truncated         // step limit reached
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case CartOut:
		return "cart_out"
	case PoleFell:
		return "pole_fell"
	case Truncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// EpisodeStats captures all metrics from a single episode
type EpisodeStats struct {
	Score        float64 `json:"score"`
	Steps        int     `json:"steps"`
	AvgSpeed     float64 `json:"avg_speed"`
	AvgDeviation float64 `json:"avg_deviation"`
	Outcome      Outcome `json:"outcome"`
	Seed         int64   `json:"seed"`
}

// AggregatedStats holds statistics across multiple episodes
type AggregatedStats struct {
	ScoreMean     float64
	ScoreStd      float64
	StepsMean     float64
	Wins          int // episodes that outlasted MaxSteps
	OutcomeCounts map[Outcome]int
	NumEpisodes   int
}

// Aggregate computes statistics from multiple episode stats
func Aggregate(episodes []EpisodeStats) AggregatedStats {
	agg := AggregatedStats{
		OutcomeCounts: make(map[Outcome]int),
		NumEpisodes:   len(episodes),
	}
	if len(episodes) == 0 {
		return agg
	}

	scores := make([]float64, len(episodes))
	steps := make([]float64, len(episodes))
	for i, ep := range episodes {
		scores[i] = ep.Score
		steps[i] = float64(ep.Steps)
		agg.OutcomeCounts[ep.Outcome]++
		if ep.Steps > MaxSteps {
			agg.Wins++
		}
	}

	agg.ScoreMean, agg.ScoreStd = stat.PopMeanStdDev(scores, nil)
	agg.StepsMean = stat.Mean(steps, nil)
	return agg
}
