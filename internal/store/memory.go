package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore keeps results in process memory. Used when no database is
// configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[uuid.UUID]domain.Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[uuid.UUID]domain.Result)}
}

func (s *MemoryStore) SaveResult(ctx context.Context, r *domain.Result) error {
	cp := *r
	cp.Turns = append([]domain.Turn(nil), r.Turns...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.DebateID] = cp
	return nil
}

func (s *MemoryStore) GetResult(ctx context.Context, id uuid.UUID) (*domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := r
	cp.Turns = append([]domain.Turn(nil), r.Turns...)
	return &cp, nil
}

func (s *MemoryStore) ListResults(ctx context.Context, limit int) ([]domain.DebateSummary, error) {
	s.mu.RLock()
	summaries := make([]domain.DebateSummary, 0, len(s.results))
	for _, r := range s.results {
		summaries = append(summaries, domain.DebateSummary{
			DebateID:    r.DebateID,
			Problem:     r.Problem,
			Status:      r.Status,
			Rounds:      r.Rounds,
			FinalAnswer: r.FinalAnswer,
			StartedAt:   r.StartedAt,
			Elapsed:     r.Elapsed,
		})
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

var _ domain.DebateStore = (*MemoryStore)(nil)
