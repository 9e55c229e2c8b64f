package memory

import (
	"context"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type accountRepo struct{ s *Store }

func (r *accountRepo) findByUsername(repositoryID, username string) *repository.Account {
	for _, a := range r.s.accounts {
		if a.RepositoryID == repositoryID && a.Username == username {
			return a
		}
	}
	return nil
}

func (r *accountRepo) GetByUsername(_ context.Context, repositoryID, username string) (*repository.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if a := r.findByUsername(repositoryID, username); a != nil {
		return cloneAccount(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) GetBySubject(_ context.Context, repositoryID, subject string) (*repository.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.accounts {
		if a.RepositoryID == repositoryID && a.Subject == subject {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) GetByConfirmationKey(_ context.Context, repositoryID, key string) (*repository.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.accounts {
		if a.RepositoryID == repositoryID && a.ConfirmationKey != nil && *a.ConfirmationKey == key {
			return cloneAccount(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) Create(_ context.Context, a *repository.Account) error {
	if a == nil || a.ID == "" || a.RepositoryID == "" || a.Username == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.findByUsername(a.RepositoryID, a.Username) != nil {
		return repository.ErrConflict
	}
	if _, ok := r.s.accounts[a.ID]; ok {
		return repository.ErrConflict
	}
	r.s.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *accountRepo) Update(_ context.Context, a *repository.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[a.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *accountRepo) ConsumeConfirmationKey(_ context.Context, repositoryID, key string) (*repository.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.RepositoryID != repositoryID || a.ConfirmationKey == nil || *a.ConfirmationKey != key {
			continue
		}
		if a.ConfirmationDeadline == nil || r.s.now().After(*a.ConfirmationDeadline) {
			return nil, repository.ErrNotFound
		}
		// Key y deadline se limpian juntos, en el mismo update que confirma.
		a.ConfirmationKey = nil
		a.ConfirmationDeadline = nil
		a.Confirmed = true
		return cloneAccount(a), nil
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepo) Delete(_ context.Context, repositoryID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok || a.RepositoryID != repositoryID {
		return repository.ErrNotFound
	}
	delete(r.s.accounts, id)
	// Cascada explícita: credenciales de la cuenta.
	for pid, p := range r.s.passwords {
		if p.RepositoryID == repositoryID && p.Username == a.Username {
			delete(r.s.passwords, pid)
		}
	}
	for cid, c := range r.s.credentials {
		if c.RepositoryID == repositoryID && c.UserHandle == a.Subject {
			delete(r.s.credentials, cid)
		}
	}
	return nil
}
