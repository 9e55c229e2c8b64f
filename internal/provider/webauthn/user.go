package webauthn

import (
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

// ceremonyUser adapta una cuenta y sus credenciales persistidas a la
// interfaz webauthn.User que la librería espera durante una ceremonia.
// El user handle WebAuthn es el subject uuid de la cuenta.
type ceremonyUser struct {
	account *repository.Account
	creds   []repository.WebAuthnCredential
}

func (u ceremonyUser) WebAuthnID() []byte { return []byte(u.account.Subject) }

func (u ceremonyUser) WebAuthnName() string { return u.account.Username }

func (u ceremonyUser) WebAuthnDisplayName() string {
	if u.account.Email != "" {
		return u.account.Email
	}
	return u.account.Username
}

func (u ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	out := make([]webauthn.Credential, 0, len(u.creds))
	for i := range u.creds {
		out = append(out, toLibraryCredential(&u.creds[i]))
	}
	return out
}

func toLibraryCredential(c *repository.WebAuthnCredential) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(c.Transports))
	for _, t := range c.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return webauthn.Credential{
		ID:        c.CredentialID,
		PublicKey: c.PublicKey,
		Transport: transports,
		Authenticator: webauthn.Authenticator{
			SignCount: c.SignCount,
		},
	}
}

func transportsFromLibrary(ts []protocol.AuthenticatorTransport) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, string(t))
	}
	return out
}
