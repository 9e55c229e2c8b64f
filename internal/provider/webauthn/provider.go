// Package webauthn implementa el identity provider FIDO2/WebAuthn: las
// ceremonias de registro y login contra el relying party, y la verificación
// de assertions con protección de replay por signature counter.
//
// La verificación criptográfica (attestation y assertion) se delega a
// github.com/go-webauthn/webauthn; este paquete orquesta las ceremonias y la
// política alrededor de esa primitiva.
package webauthn

import (
	"context"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"go.uber.org/zap"

	"github.com/dropDatabas3/aac/internal/authority"
	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/metrics"
	"github.com/dropDatabas3/aac/internal/observability/logger"
)

// AuthorityID identifica esta authority en configs y métricas.
const AuthorityID = "webauthn"

// Defaults de settings configurables por provider.
const (
	// DefaultTimeout es el timeout comunicado al authenticator del cliente
	// (gestos de user presence).
	DefaultTimeout = 60 * time.Second

	// DefaultChallengeTTL es la vigencia server-side del estado de ceremonia.
	// Es un mecanismo de limpieza distinto, y típicamente más largo, que el
	// timeout del cliente.
	DefaultChallengeTTL = 300 * time.Second
)

// Settings keys reconocidas en ProviderConfig.Config:
//
//	rpID                      string — relying party id (dominio)
//	rpOrigins                 string — origins permitidos, separados por coma
//	scopedData                bool
//	requireConfirmation       bool
//	timeout                   dur    — timeout del cliente
//	challengeTTL              dur    — TTL server-side del challenge
//	residentKey               string — "required" | "preferred" | "discouraged"
//	userVerification          string — "required" | "preferred" | "discouraged"
//	attestation               string — "none" | "indirect" | "direct"
//	requireTrustedAttestation bool   — rechazar attestation "none"

// Deps son los colaboradores compartidos por las instancias del provider.
type Deps struct {
	Accounts    repository.AccountRepository
	Credentials repository.WebAuthnCredentialRepository
	Challenges  ChallengeStore
	Metrics     *metrics.Metrics
}

// Provider es una instancia tenant-scoped del relying party WebAuthn.
type Provider struct {
	providerID   string
	realm        string
	repositoryID string

	requireConfirmation       bool
	requireTrustedAttestation bool
	residentKey               protocol.ResidentKeyRequirement
	userVerification          protocol.UserVerificationRequirement
	challengeTTL              time.Duration

	wa *webauthn.WebAuthn

	accounts    repository.AccountRepository
	credentials repository.WebAuthnCredentialRepository
	challenges  ChallengeStore
	mx          *metrics.Metrics
	log         *zap.Logger
}

// NewBuilder retorna el Builder que la Authority usa para construir
// instancias a partir de una ProviderConfig.
func NewBuilder(deps Deps) authority.Builder[*Provider] {
	return func(_ context.Context, cfg *repository.ProviderConfig) (*Provider, error) {
		return newProvider(cfg, deps)
	}
}

func newProvider(cfg *repository.ProviderConfig, deps Deps) (*Provider, error) {
	if cfg.ProviderID == "" || cfg.Realm == "" {
		return nil, repository.ErrInvalidInput
	}
	repositoryID := cfg.Realm
	if cfg.Bool("scopedData", false) {
		repositoryID = cfg.ProviderID
	}

	rpID := cfg.String("rpID", "")
	if rpID == "" {
		return nil, repository.ErrInvalidInput
	}
	origins := splitList(cfg.String("rpOrigins", "https://"+rpID))
	displayName := cfg.Name
	if displayName == "" {
		displayName = cfg.Realm
	}
	timeout := cfg.Duration("timeout", DefaultTimeout)
	residentKey := protocol.ResidentKeyRequirement(cfg.String("residentKey", string(protocol.ResidentKeyRequirementPreferred)))
	userVerification := protocol.UserVerificationRequirement(cfg.String("userVerification", string(protocol.VerificationPreferred)))

	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: displayName,
		RPID:          rpID,
		RPOrigins:     origins,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			ResidentKey:      residentKey,
			UserVerification: userVerification,
		},
		AttestationPreference: protocol.ConveyancePreference(cfg.String("attestation", string(protocol.PreferNoAttestation))),
		Timeouts: webauthn.TimeoutsConfig{
			Login:        webauthn.TimeoutConfig{Enforce: true, Timeout: timeout, TimeoutUVD: timeout},
			Registration: webauthn.TimeoutConfig{Enforce: true, Timeout: timeout, TimeoutUVD: timeout},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Provider{
		providerID:                cfg.ProviderID,
		realm:                     cfg.Realm,
		repositoryID:              repositoryID,
		requireConfirmation:       cfg.Bool("requireConfirmation", false),
		requireTrustedAttestation: cfg.Bool("requireTrustedAttestation", false),
		residentKey:               residentKey,
		userVerification:          userVerification,
		challengeTTL:              cfg.Duration("challengeTTL", DefaultChallengeTTL),
		wa:                        wa,
		accounts:                  deps.Accounts,
		credentials:               deps.Credentials,
		challenges:                deps.Challenges,
		mx:                        deps.Metrics,
		log: logger.Named("provider.webauthn").With(
			logger.ProviderID(cfg.ProviderID), logger.Realm(cfg.Realm)),
	}, nil
}

// ProviderID retorna el id del provider.
func (p *Provider) ProviderID() string { return p.providerID }

// Realm retorna el realm del provider.
func (p *Provider) Realm() string { return p.realm }

// RepositoryID retorna la partición de datos (realm slug o provider id).
func (p *Provider) RepositoryID() string { return p.repositoryID }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (p *Provider) countCeremony(phase, outcome string) {
	if p.mx != nil {
		p.mx.Ceremonies.WithLabelValues(phase, outcome).Inc()
	}
}

func (p *Provider) countLogin(outcome string) {
	if p.mx != nil {
		p.mx.LoginAttempts.WithLabelValues(AuthorityID, outcome).Inc()
	}
}
