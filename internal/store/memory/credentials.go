package memory

import (
	"bytes"
	"context"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type credentialRepo struct{ s *Store }

func (r *credentialRepo) GetByCredentialID(_ context.Context, repositoryID, userHandle string, credentialID []byte) (*repository.WebAuthnCredential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.credentials {
		if c.RepositoryID == repositoryID && c.UserHandle == userHandle &&
			c.IsActive() && bytes.Equal(c.CredentialID, credentialID) {
			return cloneCredential(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *credentialRepo) ListByUserHandle(_ context.Context, repositoryID, userHandle string) ([]repository.WebAuthnCredential, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.WebAuthnCredential
	for _, c := range r.s.credentials {
		if c.RepositoryID == repositoryID && c.UserHandle == userHandle && c.IsActive() {
			out = append(out, *cloneCredential(c))
		}
	}
	return out, nil
}

func (r *credentialRepo) Create(_ context.Context, cred *repository.WebAuthnCredential) error {
	if cred == nil || cred.ID == "" || cred.RepositoryID == "" || cred.UserHandle == "" || len(cred.CredentialID) == 0 {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.credentials[cred.ID]; ok {
		return repository.ErrConflict
	}
	for _, c := range r.s.credentials {
		if c.RepositoryID == cred.RepositoryID && c.IsActive() && bytes.Equal(c.CredentialID, cred.CredentialID) {
			return repository.ErrConflict
		}
	}
	r.s.credentials[cred.ID] = cloneCredential(cred)
	return nil
}

func (r *credentialRepo) UpdateSignCount(_ context.Context, repositoryID, id string, observed uint32) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.credentials[id]
	if !ok || c.RepositoryID != repositoryID {
		return repository.ErrNotFound
	}
	// CAS: el contador debe avanzar. Ambos en cero se tolera (authenticators
	// sin contador reportan siempre 0).
	if observed == 0 && c.SignCount == 0 {
		now := r.s.now()
		c.LastUsedAt = &now
		return nil
	}
	if observed <= c.SignCount {
		return repository.ErrStaleCounter
	}
	c.SignCount = observed
	now := r.s.now()
	c.LastUsedAt = &now
	return nil
}

func (r *credentialRepo) Revoke(_ context.Context, repositoryID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.credentials[id]
	if !ok || c.RepositoryID != repositoryID {
		return repository.ErrNotFound
	}
	c.Status = repository.CredentialStatusRevoked
	return nil
}

func (r *credentialRepo) DeleteByUserHandle(_ context.Context, repositoryID, userHandle string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.credentials {
		if c.RepositoryID == repositoryID && c.UserHandle == userHandle {
			delete(r.s.credentials, id)
		}
	}
	return nil
}
