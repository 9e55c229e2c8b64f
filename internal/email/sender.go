// Package email implementa el despacho de mails de los flujos de reset y
// confirmación. El core sólo genera la key y computa el link; la composición
// del cuerpo vive acá.
package email

import (
	"context"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

// Sender despacha los mails con links de un solo uso.
type Sender interface {
	// SendResetKey envía el link de reset de password.
	SendResetKey(ctx context.Context, account *repository.Account, key, link string) error

	// SendConfirmationKey envía el link de confirmación de cuenta.
	SendConfirmationKey(ctx context.Context, account *repository.Account, key, link string) error
}
