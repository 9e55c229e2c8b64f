package webauthn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/dropDatabas3/aac/internal/auth"
	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/observability/logger"
	tokens "github.com/dropDatabas3/aac/internal/security/token"
)

// Registration es el resultado de StartRegistration: la key opaca que el
// caller debe devolver en FinishRegistration, y las opciones para el cliente.
type Registration struct {
	Key     string
	Options *protocol.CredentialCreation
}

// Login es el resultado de StartLogin.
type Login struct {
	Key     string
	Options *protocol.CredentialAssertion
}

// challengeKey genera la key del estado de ceremonia. El prefijo incluye la
// fase y el provider id: un challenge emitido por un provider nunca puede
// consumirse desde otro (aislamiento cross-tenant).
func (p *Provider) challengeKey(phase string) (string, error) {
	tok, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	return phase + ":" + p.providerID + ":" + tok, nil
}

func (p *Provider) ownsKey(phase, key string) bool {
	return strings.HasPrefix(key, phase+":"+p.providerID+":")
}

// StartRegistration arma el challenge de registro para una cuenta existente.
// Las credenciales ya registradas se excluyen para que el authenticator no
// re-registre la misma.
func (p *Provider) StartRegistration(ctx context.Context, username string) (*Registration, error) {
	account, err := p.accounts.GetByUsername(ctx, p.repositoryID, username)
	if err != nil {
		return nil, err
	}
	existing, err := p.credentials.ListByUserHandle(ctx, p.repositoryID, account.UserHandle())
	if err != nil {
		return nil, err
	}
	user := ceremonyUser{account: account, creds: existing}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(existing))
	for _, c := range user.WebAuthnCredentials() {
		exclusions = append(exclusions, c.Descriptor())
	}

	options, session, err := p.wa.BeginRegistration(user, webauthn.WithExclusions(exclusions))
	if err != nil {
		p.countCeremony("registration", "failure")
		return nil, err
	}
	reg, err := p.saveSession(ctx, "reg", session)
	if err != nil {
		return nil, err
	}
	return &Registration{Key: reg, Options: options}, nil
}

// FinishRegistration consume el challenge (single-use: un replay de la misma
// key falla), verifica la attestation contra el relying party y persiste la
// credencial nueva.
func (p *Provider) FinishRegistration(ctx context.Context, key string, resp *protocol.ParsedCredentialCreationData) (*repository.WebAuthnCredential, error) {
	session, err := p.consumeSession(ctx, "reg", key)
	if err != nil {
		p.countCeremony("registration", "expired")
		return nil, auth.NewInputError("invalid-key")
	}
	account, err := p.accounts.GetBySubject(ctx, p.repositoryID, string(session.UserID))
	if err != nil {
		p.countCeremony("registration", "failure")
		return nil, auth.NewInputError("invalid-key")
	}
	existing, err := p.credentials.ListByUserHandle(ctx, p.repositoryID, account.UserHandle())
	if err != nil {
		return nil, err
	}
	user := ceremonyUser{account: account, creds: existing}

	cred, err := p.wa.CreateCredential(user, *session, resp)
	if err != nil {
		p.countCeremony("registration", "failure")
		p.log.Debug("attestation verification failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %w", auth.ErrUntrustedAttestation, err)
	}
	if p.requireTrustedAttestation && cred.AttestationType == "none" {
		p.countCeremony("registration", "failure")
		return nil, auth.ErrUntrustedAttestation
	}

	row := &repository.WebAuthnCredential{
		ID:           uuid.NewString(),
		RepositoryID: p.repositoryID,
		UserHandle:   account.UserHandle(),
		CredentialID: cred.ID,
		PublicKey:    cred.PublicKey,
		SignCount:    cred.Authenticator.SignCount,
		Transports:   transportsFromLibrary(cred.Transport),
		Status:       repository.CredentialStatusActive,
		CreatedAt:    time.Now(),
	}
	if err := p.credentials.Create(ctx, row); err != nil {
		p.countCeremony("registration", "failure")
		return nil, err
	}
	p.countCeremony("registration", "success")
	p.log.Info("webauthn credential registered",
		logger.Subject(account.Subject), logger.Username(account.Username))
	return row, nil
}

// StartLogin arma el challenge de assertion para el user handle de la cuenta.
func (p *Provider) StartLogin(ctx context.Context, username string) (*Login, error) {
	account, err := p.accounts.GetByUsername(ctx, p.repositoryID, username)
	if err != nil {
		return nil, err
	}
	creds, err := p.credentials.ListByUserHandle(ctx, p.repositoryID, account.UserHandle())
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, repository.ErrNotFound
	}
	user := ceremonyUser{account: account, creds: creds}

	options, session, err := p.wa.BeginLogin(user)
	if err != nil {
		p.countCeremony("login", "failure")
		return nil, err
	}
	key, err := p.saveSession(ctx, "login", session)
	if err != nil {
		return nil, err
	}
	return &Login{Key: key, Options: options}, nil
}

// FinishLogin consume el challenge y corre la máquina de verificación:
// resultado criptográfico → cuenta por user handle (scoped al repository del
// provider) → estado de la cuenta → credencial firmante → avance del
// contador. Se exige éxito criptográfico Y contador válido; el fallo
// criptográfico sale como UntrustedAssertion y la regresión del contador
// como UntrustedAssertion envolviendo DataError("signature-count").
func (p *Provider) FinishLogin(ctx context.Context, key string, resp *protocol.ParsedCredentialAssertionData) (*auth.Principal, error) {
	session, err := p.consumeSession(ctx, "login", key)
	if err != nil {
		p.countCeremony("login", "expired")
		return nil, auth.NewInputError("invalid-key")
	}

	principal, err := p.verifyAssertion(ctx, session, resp)
	if err != nil {
		p.countCeremony("login", "failure")
		p.countLogin("failure")
		return nil, err
	}
	p.countCeremony("login", "success")
	p.countLogin("success")
	return principal, nil
}

func (p *Provider) verifyAssertion(ctx context.Context, session *webauthn.SessionData, resp *protocol.ParsedCredentialAssertionData) (*auth.Principal, error) {
	log := logger.From(ctx).With(logger.ProviderID(p.providerID))

	// AccountLookup: el handle resuelve scoped al repository de este
	// provider; una colisión de uuid cross-tenant se rechaza acá.
	account, err := p.accounts.GetBySubject(ctx, p.repositoryID, string(session.UserID))
	if err != nil {
		log.Debug("assertion failed: unknown user handle", logger.Err(err))
		return nil, auth.Coarsen(err)
	}
	if account.IsLocked() {
		log.Debug("assertion failed: account locked", logger.Subject(account.Subject))
		return nil, auth.Coarsen(auth.ErrAccountLocked)
	}
	if p.requireConfirmation && !account.Confirmed {
		log.Debug("assertion failed: account unconfirmed", logger.Subject(account.Subject))
		return nil, auth.Coarsen(auth.ErrAccountUnconfirmed)
	}

	creds, err := p.credentials.ListByUserHandle(ctx, p.repositoryID, account.UserHandle())
	if err != nil {
		return nil, auth.Coarsen(err)
	}
	user := ceremonyUser{account: account, creds: creds}

	// Verificación criptográfica, delegada a la librería. Si falla, se corta
	// acá sin más lookups.
	validated, err := p.wa.ValidateLogin(user, *session, resp)
	if err != nil {
		log.Debug("assertion failed: signature validation", logger.Err(err))
		return nil, fmt.Errorf("%w: %w", auth.ErrUntrustedAssertion, auth.ErrInvalidCredentials)
	}

	// CredentialLookup: la ausencia se trata igual que bad-credentials.
	stored, err := p.credentials.GetByCredentialID(ctx, p.repositoryID, account.UserHandle(), validated.ID)
	if err != nil {
		log.Debug("assertion failed: unknown credential", logger.Err(err))
		return nil, auth.Coarsen(err)
	}

	// CounterUpdate: compare-and-set contra el row. Un contador presentado
	// menor o igual al almacenado es señal de replay/authenticator clonado.
	observed := validated.Authenticator.SignCount
	if validated.Authenticator.CloneWarning {
		log.Warn("assertion rejected: clone warning", logger.Subject(account.Subject))
		return nil, fmt.Errorf("%w: %w", auth.ErrUntrustedAssertion, auth.NewDataError("signature-count"))
	}
	if err := p.credentials.UpdateSignCount(ctx, p.repositoryID, stored.ID, observed); err != nil {
		if repository.IsNotFound(err) {
			return nil, auth.Coarsen(err)
		}
		log.Warn("assertion rejected: signature counter regression",
			logger.Subject(account.Subject), logger.Int("observed", int(observed)), logger.Int("stored", int(stored.SignCount)))
		return nil, fmt.Errorf("%w: %w", auth.ErrUntrustedAssertion, auth.NewDataError("signature-count"))
	}

	return auth.NewPrincipal(account.Subject, account.Username, p.realm, p.providerID, AuthorityID), nil
}

func (p *Provider) saveSession(ctx context.Context, phase string, session *webauthn.SessionData) (string, error) {
	key, err := p.challengeKey(phase)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	if err := p.challenges.Save(ctx, key, data, p.challengeTTL); err != nil {
		return "", err
	}
	return key, nil
}

func (p *Provider) consumeSession(ctx context.Context, phase, key string) (*webauthn.SessionData, error) {
	if !p.ownsKey(phase, key) {
		return nil, repository.ErrNotFound
	}
	data, err := p.challenges.Consume(ctx, key)
	if err != nil {
		return nil, err
	}
	var session webauthn.SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
