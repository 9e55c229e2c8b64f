package memory

import (
	"context"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type passwordRepo struct{ s *Store }

func (r *passwordRepo) findActive(repositoryID, username string) *repository.PasswordRecord {
	for _, rec := range r.s.passwords {
		if rec.RepositoryID == repositoryID && rec.Username == username && rec.IsActive() {
			return rec
		}
	}
	return nil
}

func (r *passwordRepo) GetActiveByUsername(_ context.Context, repositoryID, username string) (*repository.PasswordRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if rec := r.findActive(repositoryID, username); rec != nil {
		return clonePassword(rec), nil
	}
	return nil, repository.ErrNotFound
}

func (r *passwordRepo) GetByResetKey(_ context.Context, repositoryID, key string) (*repository.PasswordRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rec := range r.s.passwords {
		if rec.RepositoryID == repositoryID && rec.IsActive() && rec.ResetKey != nil && *rec.ResetKey == key {
			return clonePassword(rec), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *passwordRepo) Create(_ context.Context, rec *repository.PasswordRecord) error {
	if rec == nil || rec.ID == "" || rec.RepositoryID == "" || rec.Username == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.passwords[rec.ID]; ok {
		return repository.ErrConflict
	}
	if rec.IsActive() && r.findActive(rec.RepositoryID, rec.Username) != nil {
		return repository.ErrConflict
	}
	r.s.passwords[rec.ID] = clonePassword(rec)
	return nil
}

func (r *passwordRepo) Update(_ context.Context, rec *repository.PasswordRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.passwords[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.passwords[rec.ID] = clonePassword(rec)
	return nil
}

func (r *passwordRepo) ConsumeResetKey(_ context.Context, repositoryID, key string) (*repository.PasswordRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.passwords {
		if rec.RepositoryID != repositoryID || !rec.IsActive() || rec.ResetKey == nil || *rec.ResetKey != key {
			continue
		}
		if rec.ResetDeadline == nil || r.s.now().After(*rec.ResetDeadline) {
			return nil, repository.ErrNotFound
		}
		// Single-use: key y deadline se limpian en el mismo update. De dos
		// llamadas concurrentes sólo una observa la key vigente.
		rec.ResetKey = nil
		rec.ResetDeadline = nil
		return clonePassword(rec), nil
	}
	return nil, repository.ErrNotFound
}

func (r *passwordRepo) RevokeActive(_ context.Context, repositoryID, username string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec := r.findActive(repositoryID, username)
	if rec == nil {
		return repository.ErrNotFound
	}
	rec.Status = repository.CredentialStatusRevoked
	rec.ResetKey = nil
	rec.ResetDeadline = nil
	return nil
}

func (r *passwordRepo) DeleteByUsername(_ context.Context, repositoryID, username string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, rec := range r.s.passwords {
		if rec.RepositoryID == repositoryID && rec.Username == username {
			delete(r.s.passwords, id)
		}
	}
	return nil
}
