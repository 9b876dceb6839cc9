package main

import (
	"context"
	"fmt"

	"cartpole/internal/ga"
	"cartpole/internal/storage"
	"cartpole/internal/trainer"
)

// recorder writes finished generations to the run store. A generation that
// completed is stored even if the run is being cancelled; cancellation is
// only observed by the trainer between generations.
type recorder struct {
	store storage.Store
	runID string
}

func (r recorder) record(ctx context.Context, report ga.Report, best trainer.Best) error {
	ctx = context.WithoutCancel(ctx)

	if err := r.store.SaveGeneration(ctx, r.runID, report); err != nil {
		return fmt.Errorf("store generation %d: %w", report.Generation, err)
	}
	if !report.Improved {
		return nil
	}
	if err := r.store.SaveChampion(ctx, storage.Champion{
		RunID:      r.runID,
		Generation: report.Generation,
		Score:      best.Score,
		Steps:      best.Steps,
		Network:    best.Network,
	}); err != nil {
		return fmt.Errorf("store champion: %w", err)
	}
	return nil
}
