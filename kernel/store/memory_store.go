package store

import (
	"sync"

	"github.com/openkiss/kiss/kernel/model"
	"github.com/pkg/errors"
)

// MemoryStore is the in-memory Store implementation. A single lock covers
// all kinds; no operation calls another while holding it.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[model.Kind]map[string]*model.Resource
}

func NewMemoryStore() *MemoryStore {
	resources := make(map[model.Kind]map[string]*model.Resource)
	for _, kind := range model.Kinds() {
		resources[kind] = make(map[string]*model.Resource)
	}
	return &MemoryStore{resources: resources}
}

func (s *MemoryStore) Create(resource *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.ensureKind(resource.Kind)
	if _, present := byName[resource.Name]; present {
		return errors.Wrapf(ErrAlreadyExists, "%s [%s]", resource.Kind, resource.Name)
	}
	byName[resource.Name] = resource.Clone()
	return nil
}

func (s *MemoryStore) Update(resource *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.ensureKind(resource.Kind)
	if _, present := byName[resource.Name]; !present {
		return errors.Wrapf(ErrNotFound, "%s [%s]", resource.Kind, resource.Name)
	}
	byName[resource.Name] = resource.Clone()
	return nil
}

func (s *MemoryStore) Get(kind model.Kind, name string) (*model.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[kind][name]
	if !ok {
		return nil, false
	}
	return resource.Clone(), true
}

// List returns a copy to prevent concurrent modification.
func (s *MemoryStore) List(kind model.Kind) []*model.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := s.resources[kind]
	result := make([]*model.Resource, 0, len(byName))
	for _, resource := range byName {
		result = append(result, resource.Clone())
	}
	return result
}

func (s *MemoryStore) Delete(kind model.Kind, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := s.resources[kind]
	if _, present := byName[name]; !present {
		return false
	}
	delete(byName, name)
	return true
}

func (s *MemoryStore) ensureKind(kind model.Kind) map[string]*model.Resource {
	if byName, ok := s.resources[kind]; ok {
		return byName
	}
	byName := make(map[string]*model.Resource)
	s.resources[kind] = byName
	return byName
}
