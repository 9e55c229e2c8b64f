package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials es el fallo genérico de autenticación. Todos los
	// fallos del camino de verificación se colapsan a este error en el borde.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountUnconfirmed indica cuenta pendiente de confirmación (interno).
	ErrAccountUnconfirmed = errors.New("account unconfirmed")

	// ErrAccountLocked indica cuenta bloqueada (interno).
	ErrAccountLocked = errors.New("account locked")

	// ErrUntrustedAttestation indica que la attestation de registro WebAuthn
	// no satisface la política de confianza del relying party.
	ErrUntrustedAttestation = errors.New("untrusted attestation")

	// ErrUntrustedAssertion indica que la assertion de login WebAuthn no pasó
	// la verificación criptográfica o la validación del contador.
	ErrUntrustedAssertion = errors.New("untrusted assertion")
)

// InputError es un input malformado, expirado o que no coincide (ej: una
// reset key inválida). El Code es estable ("invalid-key", "missing-handle");
// nunca revela cuál chequeo interno falló.
type InputError struct {
	Code string
}

func (e *InputError) Error() string { return "invalid input: " + e.Code }

// NewInputError crea un InputError con el code dado.
func NewInputError(code string) error { return &InputError{Code: code} }

// DataError es un dato persistido o presentado inconsistente con un
// invariante del sistema (ej: regresión del signature counter).
type DataError struct {
	Code string
}

func (e *DataError) Error() string { return "invalid data: " + e.Code }

// NewDataError crea un DataError con el code dado.
func NewDataError(code string) error { return &DataError{Code: code} }

// PolicyError es una violación de la política de passwords durante un
// set/reset. A diferencia de los fallos de autenticación, los reason codes
// son seguros de exponer: es validación proactiva, no un oráculo.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("password policy violation: %v", e.Reasons)
}

// Coarsen colapsa los fallos internos de autenticación al error genérico.
// Cualquier error del camino de verificación sale como ErrInvalidCredentials;
// nil queda nil.
func Coarsen(err error) error {
	if err == nil {
		return nil
	}
	return ErrInvalidCredentials
}
