package storage

import (
	"context"
	"errors"
	"sync"

	"cartpole/internal/ga"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	history     map[string][]ga.Report
	champions   map[string]Champion
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.history = make(map[string][]ga.Report)
	s.champions = make(map[string]Champion)
	return nil
}

func (s *MemoryStore) SaveGeneration(_ context.Context, runID string, report ga.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.history[runID] = append(s.history[runID], report)
	return nil
}

func (s *MemoryStore) GetHistory(_ context.Context, runID string) ([]ga.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]ga.Report(nil), s.history[runID]...), nil
}

func (s *MemoryStore) SaveChampion(_ context.Context, champion Champion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.champions[champion.RunID] = champion
	return nil
}

func (s *MemoryStore) GetChampion(_ context.Context, runID string) (Champion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.champions[runID]
	return c, ok, nil
}
