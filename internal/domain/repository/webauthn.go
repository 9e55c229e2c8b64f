package repository

import (
	"context"
	"time"
)

// WebAuthnCredential es una credencial FIDO2 registrada por un authenticator.
// Una cuenta puede tener varias (un authenticator por registro), cada una
// revocable de forma independiente.
type WebAuthnCredential struct {
	ID           string
	RepositoryID string
	UserHandle   string // subject uuid de la cuenta dueña
	CredentialID []byte // id opaco asignado por el authenticator
	PublicKey    []byte // COSE public key
	SignCount    uint32 // monótonamente no-decreciente
	Transports   []string
	Status       CredentialStatus
	CreatedAt    time.Time
	LastUsedAt   *time.Time
}

// IsActive indica si la credencial está activa.
func (c *WebAuthnCredential) IsActive() bool { return c.Status == CredentialStatusActive }

// WebAuthnCredentialRepository define operaciones sobre credenciales WebAuthn.
type WebAuthnCredentialRepository interface {
	// GetByCredentialID busca la credencial activa que firmó una assertion.
	// Retorna ErrNotFound si no existe.
	GetByCredentialID(ctx context.Context, repositoryID, userHandle string, credentialID []byte) (*WebAuthnCredential, error)

	// ListByUserHandle lista las credenciales activas de una cuenta.
	ListByUserHandle(ctx context.Context, repositoryID, userHandle string) ([]WebAuthnCredential, error)

	// Create persiste una credencial nueva. Retorna ErrConflict si ya existe
	// una credencial activa con el mismo credential id.
	Create(ctx context.Context, cred *WebAuthnCredential) error

	// UpdateSignCount avanza el contador con semántica compare-and-set: el
	// valor observado debe ser mayor al almacenado (o ambos cero, para
	// authenticators sin contador). Un valor menor o repetido retorna
	// ErrStaleCounter sin modificar el record. Actualiza LastUsedAt.
	UpdateSignCount(ctx context.Context, repositoryID, id string, observed uint32) error

	// Revoke marca la credencial como revocada; se conserva como historial.
	Revoke(ctx context.Context, repositoryID, id string) error

	// DeleteByUserHandle elimina todas las credenciales de una cuenta.
	DeleteByUserHandle(ctx context.Context, repositoryID, userHandle string) error
}
