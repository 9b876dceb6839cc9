package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"cartpole/internal/ga"
	"cartpole/internal/nn"
)

// Champion is the best network of a run at some generation
type Champion struct {
	RunID      string      `json:"run_id"`
	Generation int         `json:"generation"`
	Score      float64     `json:"score"`
	Steps      int         `json:"steps"`
	Network    nn.Snapshot `json:"network"`
}

// Store persists generation history and champions of training runs
type Store interface {
	Init(ctx context.Context) error
	SaveGeneration(ctx context.Context, runID string, report ga.Report) error
	GetHistory(ctx context.Context, runID string) ([]ga.Report, error)
	SaveChampion(ctx context.Context, champion Champion) error
	GetChampion(ctx context.Context, runID string) (Champion, bool, error)
}

// NewStore returns a SQLite store for a non-empty path, else a memory store
func NewStore(sqlitePath string) Store {
	if sqlitePath == "" {
		return NewMemoryStore()
	}
	return NewSQLiteStore(sqlitePath)
}

// CloseIfSupported closes stores that hold resources
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

func encodeReport(r ga.Report) ([]byte, error) {
	return json.Marshal(r)
}

func decodeReport(data []byte) (ga.Report, error) {
	var r ga.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return ga.Report{}, err
	}
	return r, nil
}

func encodeChampion(c Champion) ([]byte, error) {
	return json.Marshal(c)
}

func decodeChampion(data []byte) (Champion, error) {
	var c Champion
	if err := json.Unmarshal(data, &c); err != nil {
		return Champion{}, err
	}
	if len(c.Network.Layers) < 2 {
		return Champion{}, fmt.Errorf("champion %s has no network", c.RunID)
	}
	return c, nil
}
