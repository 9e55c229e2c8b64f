package repository

import (
	"context"
	"time"
)

// AccountStatus representa el estado de una cuenta.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusLocked   AccountStatus = "locked"
)

// Account representa una cuenta interna (credential holder) dentro de un
// repository (realm slug o provider id, según el flag de "scoped data").
type Account struct {
	ID           string
	RepositoryID string
	Subject      string // user id estable, sobrevive rotaciones de credenciales
	Realm        string
	Username     string
	Email        string
	Status       AccountStatus
	Confirmed    bool

	// ConfirmationKey y ConfirmationDeadline se setean/limpian siempre juntos.
	ConfirmationKey      *string
	ConfirmationDeadline *time.Time

	CreatedAt time.Time
}

// IsLocked indica si la cuenta está bloqueada.
func (a *Account) IsLocked() bool { return a.Status == AccountStatusLocked }

// UserHandle es el identificador WebAuthn de la cuenta (el subject uuid).
func (a *Account) UserHandle() string { return a.Subject }

// AccountRepository define operaciones sobre cuentas.
type AccountRepository interface {
	// GetByUsername busca por (repositoryID, username). Retorna ErrNotFound si no existe.
	GetByUsername(ctx context.Context, repositoryID, username string) (*Account, error)

	// GetBySubject busca por (repositoryID, subject uuid). Retorna ErrNotFound si no existe.
	GetBySubject(ctx context.Context, repositoryID, subject string) (*Account, error)

	// GetByConfirmationKey busca por confirmation key vigente.
	GetByConfirmationKey(ctx context.Context, repositoryID, key string) (*Account, error)

	// Create crea una cuenta. Retorna ErrConflict si (repositoryID, username) ya existe.
	Create(ctx context.Context, a *Account) error

	// Update reemplaza los campos mutables de la cuenta.
	Update(ctx context.Context, a *Account) error

	// ConsumeConfirmationKey valida y limpia atómicamente la confirmation key:
	// sólo una llamada concurrente puede consumirla; una key expirada o
	// inexistente retorna ErrNotFound. Al consumirla, marca Confirmed=true.
	ConsumeConfirmationKey(ctx context.Context, repositoryID, key string) (*Account, error)

	// Delete elimina la cuenta y, en cascada, sus credenciales.
	Delete(ctx context.Context, repositoryID, id string) error
}
