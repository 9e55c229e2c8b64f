// Package memory implementa los repositorios de dominio sobre maps en
// memoria. Es el backend por defecto para desarrollo y tests; el adapter de
// PostgreSQL vive en internal/store/pg.
package memory

import (
	"sync"
	"time"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

// Store agrupa los repositorios en memoria. Thread-safe: todas las
// operaciones (incluidas las atómicas de consumo de keys y el CAS del sign
// count) se serializan bajo el mismo mutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	providers   map[string]*repository.ProviderConfig    // providerID → config
	accounts    map[string]*repository.Account           // id → account
	passwords   map[string]*repository.PasswordRecord    // id → record
	credentials map[string]*repository.WebAuthnCredential // id → credential
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		now:         time.Now,
		providers:   make(map[string]*repository.ProviderConfig),
		accounts:    make(map[string]*repository.Account),
		passwords:   make(map[string]*repository.PasswordRecord),
		credentials: make(map[string]*repository.WebAuthnCredential),
	}
}

// WithClock reemplaza el reloj usado para chequear deadlines. Para tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Providers retorna el repositorio de provider configs.
func (s *Store) Providers() repository.ProviderConfigRepository { return &providerRepo{s} }

// Accounts retorna el repositorio de cuentas.
func (s *Store) Accounts() repository.AccountRepository { return &accountRepo{s} }

// Passwords retorna el repositorio de credenciales de password.
func (s *Store) Passwords() repository.PasswordRepository { return &passwordRepo{s} }

// Credentials retorna el repositorio de credenciales WebAuthn.
func (s *Store) Credentials() repository.WebAuthnCredentialRepository { return &credentialRepo{s} }

func cloneAccount(a *repository.Account) *repository.Account {
	out := *a
	if a.ConfirmationKey != nil {
		k := *a.ConfirmationKey
		out.ConfirmationKey = &k
	}
	if a.ConfirmationDeadline != nil {
		d := *a.ConfirmationDeadline
		out.ConfirmationDeadline = &d
	}
	return &out
}

func clonePassword(r *repository.PasswordRecord) *repository.PasswordRecord {
	out := *r
	if r.ResetKey != nil {
		k := *r.ResetKey
		out.ResetKey = &k
	}
	if r.ResetDeadline != nil {
		d := *r.ResetDeadline
		out.ResetDeadline = &d
	}
	return &out
}

func cloneCredential(c *repository.WebAuthnCredential) *repository.WebAuthnCredential {
	out := *c
	out.CredentialID = append([]byte(nil), c.CredentialID...)
	out.PublicKey = append([]byte(nil), c.PublicKey...)
	out.Transports = append([]string(nil), c.Transports...)
	if c.LastUsedAt != nil {
		t := *c.LastUsedAt
		out.LastUsedAt = &t
	}
	return &out
}
