package runlog

import (
	"context"
	"sync"

	"vantera/models"
)

// MemoryStore keeps runs for the process lifetime only.
type MemoryStore struct {
	mu   sync.Mutex
	runs []*models.ImportRun
	byID map[string]*models.ImportRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*models.ImportRun)}
}

func (s *MemoryStore) CreateRun(ctx context.Context, run *models.ImportRun) (*models.ImportRun, error) {
	r := Prepare(run)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, r)
	s.byID[r.ID] = r
	return clone(r), nil
}

func (s *MemoryStore) UpdateRun(ctx context.Context, id string, patch models.RunPatch) (*models.ImportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, models.ErrRunNotFound
	}
	if err := r.Apply(patch); err != nil {
		return nil, err
	}
	return clone(r), nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit = ClampLimit(limit)
	out := make([]models.ImportRun, 0, min(limit, len(s.runs)))
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *clone(s.runs[i]))
	}
	return out, nil
}

func clone(r *models.ImportRun) *models.ImportRun {
	c := *r
	c.ErrorSamples = append([]models.ErrorSample{}, r.ErrorSamples...)
	c.Params = append([]byte(nil), r.Params...)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
