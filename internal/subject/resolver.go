// Package subject resuelve identificadores externos estables (user id,
// realm+username, confirmation key, reset key) a la identidad interna.
package subject

import (
	"context"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

// Subject es la identidad interna estable a la que se liga un principal.
type Subject struct {
	Subject  string // user id estable
	Realm    string
	Username string
}

// Attribute keys soportadas.
const (
	AttrUserID          = "userId"
	AttrRealm           = "realm"
	AttrUsername        = "username"
	AttrConfirmationKey = "confirmationKey"
	AttrResetKey        = "resetKey"
)

// Resolver intenta una lista fija y ordenada de estrategias de lookup sobre
// el set de atributos presentado. Nunca expone por qué falló una estrategia
// particular: sólo si la resolución completa tuvo éxito o no.
type Resolver struct {
	repositoryID string
	realm        string
	accounts     repository.AccountRepository
	passwords    repository.PasswordRepository
}

// NewResolver crea un resolver scoped a un repository/realm.
func NewResolver(repositoryID, realm string, accounts repository.AccountRepository, passwords repository.PasswordRepository) *Resolver {
	return &Resolver{
		repositoryID: repositoryID,
		realm:        realm,
		accounts:     accounts,
		passwords:    passwords,
	}
}

// IdentifyingAttributes retorna las combinaciones de atributos soportadas,
// en el orden en que se intentan. Los callers saben qué proveer sin adivinar.
func (r *Resolver) IdentifyingAttributes() [][]string {
	return [][]string{
		{AttrUserID},
		{AttrRealm, AttrUsername},
		{AttrConfirmationKey},
		{AttrResetKey},
	}
}

// ResolveByIdentifyingAttributes intenta cada estrategia en orden y retorna
// el primer match; si ninguna matchea, repository.ErrNotFound.
func (r *Resolver) ResolveByIdentifyingAttributes(ctx context.Context, attrs map[string]string) (*Subject, error) {
	if v := attrs[AttrUserID]; v != "" {
		if a, err := r.accounts.GetBySubject(ctx, r.repositoryID, v); err == nil {
			return r.subject(a), nil
		}
	}
	if realm, username := attrs[AttrRealm], attrs[AttrUsername]; realm == r.realm && username != "" {
		if a, err := r.accounts.GetByUsername(ctx, r.repositoryID, username); err == nil {
			return r.subject(a), nil
		}
	}
	if v := attrs[AttrConfirmationKey]; v != "" {
		if a, err := r.accounts.GetByConfirmationKey(ctx, r.repositoryID, v); err == nil {
			return r.subject(a), nil
		}
	}
	if v := attrs[AttrResetKey]; v != "" {
		if rec, err := r.passwords.GetByResetKey(ctx, r.repositoryID, v); err == nil {
			if a, err := r.accounts.GetByUsername(ctx, r.repositoryID, rec.Username); err == nil {
				return r.subject(a), nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Resolver) subject(a *repository.Account) *Subject {
	return &Subject{Subject: a.Subject, Realm: a.Realm, Username: a.Username}
}
