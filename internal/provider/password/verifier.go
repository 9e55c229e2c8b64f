package password

import (
	"context"

	"github.com/dropDatabas3/aac/internal/auth"
	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/observability/logger"
	tokens "github.com/dropDatabas3/aac/internal/security/token"
)

// Verify valida un par username/password y produce el principal autenticado.
//
// Todos los fallos salen como auth.ErrInvalidCredentials: la distinción entre
// usuario inexistente, password incorrecto, cuenta bloqueada y cuenta sin
// confirmar sólo se loguea server-side. Para un username inexistente se
// ejecuta igual una comparación de hash contra un hash dummy precomputado,
// equalizando el costo de ambos caminos (resistencia a enumeración por timing).
func (p *Provider) Verify(ctx context.Context, username, plain string) (*auth.Principal, error) {
	log := logger.From(ctx).With(logger.ProviderID(p.providerID), logger.Username(username))

	account, err := p.accounts.GetByUsername(ctx, p.repositoryID, username)
	if err != nil {
		p.hasher.Verify(plain, p.dummyHash())
		log.Debug("verify failed: unknown account", logger.Err(err))
		p.countLogin("failure")
		return nil, auth.Coarsen(err)
	}

	rec, err := p.passwords.GetActiveByUsername(ctx, p.repositoryID, username)
	if err != nil {
		p.hasher.Verify(plain, p.dummyHash())
		log.Debug("verify failed: no active password credential", logger.Err(err))
		p.countLogin("failure")
		return nil, auth.Coarsen(err)
	}

	if err := p.checkStatus(account); err != nil {
		// Igualar costo también en los fallos de estado: el hash se compara
		// antes de descartar, así el tiempo no delata el estado de la cuenta.
		p.hasher.Verify(plain, rec.Hash)
		log.Debug("verify failed: account status", logger.Err(err))
		p.countLogin("failure")
		return nil, auth.Coarsen(err)
	}

	if !p.hasher.Verify(plain, rec.Hash) {
		log.Debug("verify failed: hash mismatch")
		p.countLogin("failure")
		return nil, auth.ErrInvalidCredentials
	}

	p.countLogin("success")
	return auth.NewPrincipal(account.Subject, account.Username, p.realm, p.providerID, AuthorityID), nil
}

func (p *Provider) checkStatus(account *repository.Account) error {
	if account.IsLocked() {
		return auth.ErrAccountLocked
	}
	if p.requireConfirmation && !account.Confirmed {
		return auth.ErrAccountUnconfirmed
	}
	return nil
}

// dummyHash retorna el hash "not found", computado una sola vez por instancia
// y cacheado para la vida del provider.
func (p *Provider) dummyHash() string {
	p.notFoundOnce.Do(func() {
		plain, err := tokens.GenerateOpaqueToken(24)
		if err != nil {
			plain = "not-a-real-password"
		}
		h, err := p.hasher.Hash(plain)
		if err != nil {
			p.log.Error("precomputing not-found hash failed", logger.Err(err))
		}
		p.notFoundHash = h
	})
	return p.notFoundHash
}
