package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"JobWatch/internal/domain"
	"JobWatch/internal/ports"
)

// MemoryRepository is an in-process SourceStore used when no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	sources []domain.Source
}

var _ ports.SourceStore = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) List(_ context.Context) ([]domain.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Source, len(r.sources))
	for i, src := range r.sources {
		out[i] = clone(src)
	}
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (domain.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, src := range r.sources {
		if src.ID == id {
			return clone(src), nil
		}
	}
	return domain.Source{}, fmt.Errorf("%w: id %d", domain.ErrSourceNotFound, id)
}

func (r *MemoryRepository) GetByName(_ context.Context, name string) (domain.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, src := range r.sources {
		if src.Name == name {
			return clone(src), nil
		}
	}
	return domain.Source{}, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, name)
}

func (r *MemoryRepository) Create(_ context.Context, src domain.Source) (domain.Source, error) {
	if err := src.Validate(); err != nil {
		return domain.Source{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sources {
		if existing.Name == src.Name {
			return domain.Source{}, fmt.Errorf("%w: %s", domain.ErrSourceExists, src.Name)
		}
	}
	src = clone(src)
	src.ID = r.nextID
	r.nextID++
	r.sources = append(r.sources, src)
	return clone(src), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.sources, func(s domain.Source) bool { return s.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: id %d", domain.ErrSourceNotFound, id)
	}
	r.sources = slices.Delete(r.sources, idx, idx+1)
	return nil
}

func (r *MemoryRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = nil
	return nil
}

func clone(src domain.Source) domain.Source {
	src.RoleKeywords = slices.Clone(src.RoleKeywords)
	src.AllowedHosts = slices.Clone(src.AllowedHosts)
	src.KeepQueryParams = slices.Clone(src.KeepQueryParams)
	return src
}
