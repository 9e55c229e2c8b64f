package repository

import (
	"context"
	"time"
)

// CredentialStatus representa el estado de una credencial.
type CredentialStatus string

const (
	CredentialStatusActive  CredentialStatus = "active"
	CredentialStatusRevoked CredentialStatus = "revoked"
)

// PasswordRecord es la credencial de password de una cuenta. Una cuenta tiene
// a lo sumo un record activo; los revocados se conservan como historial.
type PasswordRecord struct {
	ID           string
	RepositoryID string
	Username     string
	Hash         string // PHC string (argon2id)
	Status       CredentialStatus

	// ResetKey y ResetDeadline se setean/limpian siempre juntos: nunca hay
	// una key sin deadline ni viceversa.
	ResetKey      *string
	ResetDeadline *time.Time

	ChangeOnFirstAccess bool
	CreatedAt           time.Time
}

// IsActive indica si la credencial está activa.
func (r *PasswordRecord) IsActive() bool { return r.Status == CredentialStatusActive }

// PasswordRepository define operaciones sobre credenciales de password.
type PasswordRepository interface {
	// GetActiveByUsername busca el record activo de (repositoryID, username).
	// Retorna ErrNotFound si no existe.
	GetActiveByUsername(ctx context.Context, repositoryID, username string) (*PasswordRecord, error)

	// GetByResetKey busca el record activo cuya reset key coincide verbatim.
	GetByResetKey(ctx context.Context, repositoryID, key string) (*PasswordRecord, error)

	// Create persiste un record nuevo.
	Create(ctx context.Context, rec *PasswordRecord) error

	// Update reemplaza los campos mutables del record (hash, status, reset key).
	Update(ctx context.Context, rec *PasswordRecord) error

	// ConsumeResetKey valida y limpia atómicamente la reset key: key y deadline
	// se limpian en el mismo update, y de dos llamadas concurrentes con la misma
	// key exactamente una observa el record con key vigente. Una key expirada o
	// inexistente retorna ErrNotFound.
	ConsumeResetKey(ctx context.Context, repositoryID, key string) (*PasswordRecord, error)

	// RevokeActive marca revocado el record activo de (repositoryID, username).
	// No borra historial. Retorna ErrNotFound si no hay record activo.
	RevokeActive(ctx context.Context, repositoryID, username string) error

	// DeleteByUsername elimina todos los records (historial incluido) de un username.
	DeleteByUsername(ctx context.Context, repositoryID, username string) error
}
