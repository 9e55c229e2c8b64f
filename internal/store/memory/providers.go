package memory

import (
	"context"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type providerRepo struct{ s *Store }

func (r *providerRepo) Get(_ context.Context, providerID string) (*repository.ProviderConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cfg, ok := r.s.providers[providerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cfg.Clone(), nil
}

func (r *providerRepo) ListByRealm(_ context.Context, realm string) ([]repository.ProviderConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.ProviderConfig
	for _, cfg := range r.s.providers {
		if cfg.Realm == realm {
			out = append(out, *cfg.Clone())
		}
	}
	return out, nil
}

func (r *providerRepo) Save(_ context.Context, cfg *repository.ProviderConfig) error {
	if cfg == nil || cfg.ProviderID == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.providers[cfg.ProviderID] = cfg.Clone()
	return nil
}

func (r *providerRepo) Delete(_ context.Context, providerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.providers[providerID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.providers, providerID)
	return nil
}
