package authority

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/observability/logger"
)

// SystemRealm es el realm protegido: sus providers no pueden desregistrarse.
const SystemRealm = "system"

var (
	// ErrRegistrationConflict indica que el provider id ya está registrado
	// bajo otro realm.
	ErrRegistrationConflict = errors.New("provider registration conflict")
)

// RegistrationError envuelve un fallo durante el build posterior a la
// registración. La config recién persistida ya fue revertida.
type RegistrationError struct {
	ProviderID string
	Err        error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register provider %q: %v", e.ProviderID, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Authority es la fachada por tipo de provider: registry de configs + cache
// de instancias. T es el tipo concreto de provider que construye su Builder.
type Authority[T any] struct {
	id      string
	configs repository.ProviderConfigRepository
	cache   *Cache[T]
	log     *zap.Logger
}

// New crea una Authority sobre el repositorio de configs dado.
func New[T any](id string, configs repository.ProviderConfigRepository, build Builder[T], opts ...CacheOption[T]) *Authority[T] {
	return &Authority[T]{
		id:      id,
		configs: configs,
		cache:   NewCache(id, configs, build, opts...),
		log:     logger.Named("authority." + id),
	}
}

// ID retorna el id de la authority ("password", "webauthn").
func (a *Authority[T]) ID() string { return a.id }

// HasProvider verifica existencia contra el repositorio de configs, no el cache.
func (a *Authority[T]) HasProvider(ctx context.Context, providerID string) bool {
	_, err := a.configs.Get(ctx, providerID)
	return err == nil
}

// Provider resuelve la instancia para providerID via cache.
func (a *Authority[T]) Provider(ctx context.Context, providerID string) (T, error) {
	return a.cache.Get(ctx, providerID)
}

// RegisterProvider valida, persiste y construye un provider. La registración
// es todo-o-nada: cualquier fallo del build posterior revierte la config
// recién persistida antes de retornar RegistrationError.
//
// Re-registrar un id bajo su mismo realm se define como update (la config
// anterior se reemplaza y la instancia cacheada se invalida). Un id ya
// registrado bajo otro realm es conflicto duro.
func (a *Authority[T]) RegisterProvider(ctx context.Context, cfg *repository.ProviderConfig) (T, error) {
	var zero T
	if cfg == nil || cfg.ProviderID == "" || cfg.Realm == "" {
		return zero, repository.ErrInvalidInput
	}
	if cfg.AuthorityID != "" && cfg.AuthorityID != a.id {
		return zero, fmt.Errorf("authority %q cannot register provider of authority %q: %w", a.id, cfg.AuthorityID, repository.ErrInvalidInput)
	}
	cfg = cfg.Clone()
	cfg.AuthorityID = a.id

	existing, err := a.configs.Get(ctx, cfg.ProviderID)
	if err != nil && !repository.IsNotFound(err) {
		return zero, err
	}
	replacing := existing != nil
	if replacing && existing.Realm != cfg.Realm {
		return zero, fmt.Errorf("provider %q already bound to realm %q: %w", cfg.ProviderID, existing.Realm, ErrRegistrationConflict)
	}

	if err := a.configs.Save(ctx, cfg); err != nil {
		return zero, err
	}
	a.cache.Invalidate(cfg.ProviderID)

	inst, err := a.cache.Get(ctx, cfg.ProviderID)
	if err != nil {
		// Rollback: la registración no debe quedar a medias.
		if replacing {
			if rbErr := a.configs.Save(ctx, existing); rbErr != nil {
				a.log.Error("rollback to previous config failed", logger.ProviderID(cfg.ProviderID), logger.Err(rbErr))
			}
		} else if rbErr := a.configs.Delete(ctx, cfg.ProviderID); rbErr != nil && !repository.IsNotFound(rbErr) {
			a.log.Error("rollback of registration failed", logger.ProviderID(cfg.ProviderID), logger.Err(rbErr))
		}
		a.cache.Invalidate(cfg.ProviderID)
		return zero, &RegistrationError{ProviderID: cfg.ProviderID, Err: err}
	}

	a.log.Info("provider registered",
		logger.ProviderID(cfg.ProviderID), logger.Realm(cfg.Realm))
	return inst, nil
}

// UnregisterProvider invalida el cache y elimina la config. Providers del
// system realm se ignoran en silencio (protegidos contra borrado).
func (a *Authority[T]) UnregisterProvider(ctx context.Context, providerID string) error {
	cfg, err := a.configs.Get(ctx, providerID)
	if err != nil {
		return err
	}
	if cfg.Realm == SystemRealm {
		a.log.Debug("unregister ignored for system realm provider", logger.ProviderID(providerID))
		return nil
	}
	a.cache.Invalidate(providerID)
	if err := a.configs.Delete(ctx, providerID); err != nil {
		return err
	}
	a.log.Info("provider unregistered", logger.ProviderID(providerID), logger.Realm(cfg.Realm))
	return nil
}

// ProvidersByRealm resuelve todos los providers del realm. Una config que no
// resuelve se omite: una config corrupta no debe tumbar el listado completo.
func (a *Authority[T]) ProvidersByRealm(ctx context.Context, realm string) ([]T, error) {
	cfgs, err := a.configs.ListByRealm(ctx, realm)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(cfgs))
	for i := range cfgs {
		if cfgs[i].AuthorityID != a.id {
			continue
		}
		inst, err := a.cache.Get(ctx, cfgs[i].ProviderID)
		if err != nil {
			a.log.Warn("skipping unresolvable provider",
				logger.ProviderID(cfgs[i].ProviderID), logger.Realm(realm), logger.Err(err))
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}
