package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/AngelCh415/funnel_go/internal/models"
)

var (
	ErrNotFound = errors.New("scenario not found")
	ErrConflict = errors.New("scenario revision conflict")
)

// Store persists saved scenarios. Save overwrites by ID; Update only writes
// when the stored revision is still prev.
type Store interface {
	Save(ctx context.Context, sc models.Scenario) error
	Update(ctx context.Context, sc models.Scenario, prev int) error
	Get(ctx context.Context, id string) (models.Scenario, error)
	List(ctx context.Context) ([]models.Scenario, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

type MemoryStore struct {
	mu        sync.RWMutex
	scenarios map[string]models.Scenario
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scenarios: make(map[string]models.Scenario)}
}

func (s *MemoryStore) Save(_ context.Context, sc models.Scenario) error {
	if sc.ID == "" {
		return eris.New("store: scenario without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[sc.ID] = sc
	return nil
}

func (s *MemoryStore) Update(_ context.Context, sc models.Scenario, prev int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.scenarios[sc.ID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "store: update %s", sc.ID)
	}
	if cur.Revision != prev {
		return eris.Wrapf(ErrConflict, "store: update %s: revision %d, want %d", sc.ID, cur.Revision, prev)
	}
	s.scenarios[sc.ID] = sc
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[id]
	if !ok {
		return models.Scenario{}, eris.Wrapf(ErrNotFound, "store: get %s", id)
	}
	return sc, nil
}

// List devuelve los escenarios, el más reciente primero.
func (s *MemoryStore) List(_ context.Context) ([]models.Scenario, error) {
	s.mu.RLock()
	out := make([]models.Scenario, 0, len(s.scenarios))
	for _, v := range s.scenarios {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sortRecent(out)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scenarios[id]; !ok {
		return eris.Wrapf(ErrNotFound, "store: delete %s", id)
	}
	delete(s.scenarios, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// orden determinista
func sortRecent(out []models.Scenario) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
