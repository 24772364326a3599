// Package memstore is an in-memory, mutex-guarded Store: deep copy in,
// deep copy out, matching the same discipline a process-local session
// store uses to keep callers from aliasing internal state.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/storage"
)

// Store is an in-memory storage.Store, the default used by Engine when
// no other backend is configured and in tests.
type Store struct {
	mu   sync.Mutex
	data map[string]workflow.Instance
}

func New() *Store {
	return &Store{data: map[string]workflow.Instance{}}
}

func (s *Store) Save(ctx context.Context, inst workflow.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[inst.ID]; ok && existing.Version != inst.Version {
		return storage.ErrConflict
	}
	inst = inst.Clone()
	inst.Version++
	s.data[inst.ID] = inst
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (workflow.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.data[id]
	if !ok {
		return workflow.Instance{}, storage.NotFound(id)
	}
	return inst.Clone(), nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[id]
	return ok, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return storage.NotFound(id)
	}
	delete(s.data, id)
	return nil
}

func (s *Store) FindInstances(ctx context.Context, criteria storage.Criteria) ([]workflow.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []workflow.Instance
	for _, inst := range s.data {
		if criteria.State != "" && inst.State != criteria.State {
			continue
		}
		if criteria.Name != "" && inst.DefinitionRef.Name != criteria.Name {
			continue
		}
		matches = append(matches, inst.Clone())
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	if criteria.Offset > 0 {
		if criteria.Offset >= len(matches) {
			return nil, nil
		}
		matches = matches[criteria.Offset:]
	}
	if criteria.Limit > 0 && criteria.Limit < len(matches) {
		matches = matches[:criteria.Limit]
	}
	return matches, nil
}
