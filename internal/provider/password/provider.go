// Package password implementa el identity provider de username/password:
// verificación con mitigación de timing, política de passwords en set/reset,
// y las ceremonias de reset y confirmación con keys de un solo uso.
package password

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/aac/internal/authority"
	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/email"
	"github.com/dropDatabas3/aac/internal/metrics"
	"github.com/dropDatabas3/aac/internal/observability/logger"
	pwd "github.com/dropDatabas3/aac/internal/security/password"
)

// AuthorityID identifica esta authority en configs y métricas.
const AuthorityID = "password"

// Defaults de settings configurables por provider.
const (
	DefaultResetTTL   = 300 * time.Second
	MaxResetTTL       = 3 * 24 * time.Hour
	DefaultConfirmTTL = 24 * time.Hour
)

// Settings keys reconocidas en ProviderConfig.Config:
//
//	scopedData          bool   — datos particionados por provider id en vez de realm
//	requireConfirmation bool   — exigir cuenta confirmada para autenticar
//	resetTTL            dur    — vigencia de la reset key (default 300s, máx 3d)
//	resetURL            string — base del link de reset
//	confirmTTL          dur    — vigencia de la confirmation key
//	confirmURL          string — base del link de confirmación
//	policy.minLength, policy.maxLength            int
//	policy.requireAlpha, policy.requireUppercase,
//	policy.requireNumber, policy.requireSpecial,
//	policy.allowWhitespace                        bool

// Deps son los colaboradores compartidos por todas las instancias del provider.
type Deps struct {
	Accounts  repository.AccountRepository
	Passwords repository.PasswordRepository
	Hasher    pwd.Hasher
	Sender    email.Sender
	Metrics   *metrics.Metrics
}

// Provider es una instancia tenant-scoped del identity provider de password.
type Provider struct {
	providerID   string
	realm        string
	repositoryID string

	requireConfirmation bool
	policy              pwd.Policy
	resetTTL            time.Duration
	resetURL            string
	confirmTTL          time.Duration
	confirmURL          string

	accounts  repository.AccountRepository
	passwords repository.PasswordRepository
	hasher    pwd.Hasher
	sender    email.Sender
	mx        *metrics.Metrics
	log       *zap.Logger

	notFoundOnce sync.Once
	notFoundHash string
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
	resetTTL := cfg.Duration("resetTTL", DefaultResetTTL)
	if resetTTL > MaxResetTTL {
		resetTTL = MaxResetTTL
	}
	p := &Provider{
		providerID:          cfg.ProviderID,
		realm:               cfg.Realm,
		repositoryID:        repositoryID,
		requireConfirmation: cfg.Bool("requireConfirmation", false),
		policy:              policyFromConfig(cfg),
		resetTTL:            resetTTL,
		resetURL:            cfg.String("resetURL", ""),
		confirmTTL:          cfg.Duration("confirmTTL", DefaultConfirmTTL),
		confirmURL:          cfg.String("confirmURL", ""),
		accounts:            deps.Accounts,
		passwords:           deps.Passwords,
		hasher:              deps.Hasher,
		sender:              deps.Sender,
		mx:                  deps.Metrics,
		log: logger.Named("provider.password").With(
			logger.ProviderID(cfg.ProviderID), logger.Realm(cfg.Realm)),
	}
	if p.hasher == nil {
		p.hasher = pwd.NewArgon2()
	}
	return p, nil
}

func policyFromConfig(cfg *repository.ProviderConfig) pwd.Policy {
	def := pwd.DefaultPolicy()
	return pwd.Policy{
		MinLength:        cfg.Int("policy.minLength", def.MinLength),
		MaxLength:        cfg.Int("policy.maxLength", def.MaxLength),
		RequireAlpha:     cfg.Bool("policy.requireAlpha", def.RequireAlpha),
		RequireUppercase: cfg.Bool("policy.requireUppercase", def.RequireUppercase),
		RequireNumber:    cfg.Bool("policy.requireNumber", def.RequireNumber),
		RequireSpecial:   cfg.Bool("policy.requireSpecial", def.RequireSpecial),
		AllowWhitespace:  cfg.Bool("policy.allowWhitespace", def.AllowWhitespace),
	}
}

// ProviderID retorna el id del provider.
func (p *Provider) ProviderID() string { return p.providerID }

// Realm retorna el realm del provider.
func (p *Provider) Realm() string { return p.realm }

// RepositoryID retorna la partición de datos (realm slug o provider id).
func (p *Provider) RepositoryID() string { return p.repositoryID }

// Policy retorna la política de passwords vigente.
func (p *Provider) Policy() pwd.Policy { return p.policy }

func (p *Provider) link(base, key string) string {
	if base == "" {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + key
}

func (p *Provider) countLogin(outcome string) {
	if p.mx != nil {
		p.mx.LoginAttempts.WithLabelValues(AuthorityID, outcome).Inc()
	}
}

func (p *Provider) countReset(event string) {
	if p.mx != nil {
		p.mx.ResetRequests.WithLabelValues(event).Inc()
	}
}
