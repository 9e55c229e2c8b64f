package password

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/aac/internal/auth"
	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/observability/logger"
	tokens "github.com/dropDatabas3/aac/internal/security/token"
)

const keyBytes = 32

// SetPassword valida la política y reemplaza la credencial activa de la
// cuenta. El record anterior queda revocado como historial; el nuevo nace
// activo y sin reset key.
func (p *Provider) SetPassword(ctx context.Context, username, plain string, changeOnFirstAccess bool) error {
	if reasons := p.policy.Validate(plain); len(reasons) > 0 {
		return &auth.PolicyError{Reasons: reasons}
	}
	if _, err := p.accounts.GetByUsername(ctx, p.repositoryID, username); err != nil {
		return err
	}
	hash, err := p.hasher.Hash(plain)
	if err != nil {
		return err
	}
	if err := p.passwords.RevokeActive(ctx, p.repositoryID, username); err != nil && !repository.IsNotFound(err) {
		return err
	}
	return p.passwords.Create(ctx, &repository.PasswordRecord{
		ID:                  uuid.NewString(),
		RepositoryID:        p.repositoryID,
		Username:            username,
		Hash:                hash,
		Status:              repository.CredentialStatusActive,
		ChangeOnFirstAccess: changeOnFirstAccess,
		CreatedAt:           time.Now(),
	})
}

// ResetPassword genera una reset key de un solo uso con deadline y la
// persiste junto al record en un único update, luego despacha el link.
// El cuerpo del mail lo compone el Sender; acá sólo se computa el link.
func (p *Provider) ResetPassword(ctx context.Context, username string) error {
	account, err := p.accounts.GetByUsername(ctx, p.repositoryID, username)
	if err != nil {
		return err
	}
	rec, err := p.passwords.GetActiveByUsername(ctx, p.repositoryID, username)
	if err != nil {
		return err
	}
	key, err := tokens.GenerateOpaqueToken(keyBytes)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(p.resetTTL)
	rec.ResetKey = &key
	rec.ResetDeadline = &deadline
	if err := p.passwords.Update(ctx, rec); err != nil {
		return err
	}
	p.countReset("requested")
	if p.sender != nil {
		if err := p.sender.SendResetKey(ctx, account, key, p.link(p.resetURL, key)); err != nil {
			logger.From(ctx).Warn("reset mail dispatch failed",
				logger.ProviderID(p.providerID), logger.Username(username), logger.Err(err))
		}
	}
	return nil
}

// ConfirmReset consume la reset key: la key debe coincidir verbatim y el
// deadline no haber pasado; key y deadline se limpian en el mismo update, así
// que de dos confirmaciones concurrentes con la misma key exactamente una
// gana. Cualquier fallo sale como InputError("invalid-key"), sin revelar qué
// chequeo falló. Retorna la cuenta dueña de la credencial.
func (p *Provider) ConfirmReset(ctx context.Context, key string) (*repository.Account, error) {
	rec, err := p.passwords.ConsumeResetKey(ctx, p.repositoryID, key)
	if err != nil {
		p.countReset("rejected")
		return nil, auth.NewInputError("invalid-key")
	}
	account, err := p.accounts.GetByUsername(ctx, p.repositoryID, rec.Username)
	if err != nil {
		p.countReset("rejected")
		return nil, auth.NewInputError("invalid-key")
	}
	p.countReset("confirmed")
	return account, nil
}

// Revoke marca revocada la credencial activa. El record revocado sigue
// siendo consultable como historial.
func (p *Provider) Revoke(ctx context.Context, username string) error {
	return p.passwords.RevokeActive(ctx, p.repositoryID, username)
}

// RequestConfirmation genera la confirmation key de la cuenta y despacha el
// link. Misma mecánica que el reset: key + deadline atómicos, single-use.
func (p *Provider) RequestConfirmation(ctx context.Context, username string) error {
	account, err := p.accounts.GetByUsername(ctx, p.repositoryID, username)
	if err != nil {
		return err
	}
	if account.Confirmed {
		return nil
	}
	key, err := tokens.GenerateOpaqueToken(keyBytes)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(p.confirmTTL)
	account.ConfirmationKey = &key
	account.ConfirmationDeadline = &deadline
	if err := p.accounts.Update(ctx, account); err != nil {
		return err
	}
	if p.sender != nil {
		if err := p.sender.SendConfirmationKey(ctx, account, key, p.link(p.confirmURL, key)); err != nil {
			logger.From(ctx).Warn("confirmation mail dispatch failed",
				logger.ProviderID(p.providerID), logger.Username(username), logger.Err(err))
		}
	}
	return nil
}

// ConfirmAccount consume la confirmation key y marca la cuenta confirmada.
func (p *Provider) ConfirmAccount(ctx context.Context, key string) (*repository.Account, error) {
	account, err := p.accounts.ConsumeConfirmationKey(ctx, p.repositoryID, key)
	if err != nil {
		return nil, auth.NewInputError("invalid-key")
	}
	return account, nil
}
