package authority

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/metrics"
)

const (
	// DefaultTTL es la expiración de una instancia desde su load.
	DefaultTTL = time.Hour
	// DefaultMaxEntries es la capacidad del cache.
	DefaultMaxEntries = 100
)

// Builder construye una instancia de provider a partir de su config.
type Builder[T any] func(ctx context.Context, cfg *repository.ProviderConfig) (T, error)

type entry[T any] struct {
	instance T
	loadedAt time.Time
}

// Cache resuelve provider id → instancia construida. En miss carga la config
// del repositorio y construye via Builder. Cargas concurrentes de la misma
// key se deduplican (single-flight); keys distintas cargan en paralelo.
// Entradas expiran por TTL desde el load, o se desalojan al exceder la
// capacidad (se elimina la cargada hace más tiempo). Los errores de load se
// propagan al caller y nunca se cachean.
type Cache[T any] struct {
	authorityID string
	configs     repository.ProviderConfigRepository
	build       Builder[T]

	ttl        time.Duration
	maxEntries int

	entries *gocache.Cache
	sf      singleflight.Group
	mu      sync.Mutex // serializa set + eviction por capacidad

	mx *metrics.Metrics // opcional
}

// CacheOption personaliza el cache.
type CacheOption[T any] func(*Cache[T])

// WithTTL cambia la expiración por entrada.
func WithTTL[T any](ttl time.Duration) CacheOption[T] {
	return func(c *Cache[T]) { c.ttl = ttl }
}

// WithMaxEntries cambia la capacidad.
func WithMaxEntries[T any](n int) CacheOption[T] {
	return func(c *Cache[T]) { c.maxEntries = n }
}

// WithMetrics registra eventos del cache.
func WithMetrics[T any](mx *metrics.Metrics) CacheOption[T] {
	return func(c *Cache[T]) { c.mx = mx }
}

// NewCache crea un cache para una authority.
func NewCache[T any](authorityID string, configs repository.ProviderConfigRepository, build Builder[T], opts ...CacheOption[T]) *Cache[T] {
	c := &Cache[T]{
		authorityID: authorityID,
		configs:     configs,
		build:       build,
		ttl:         DefaultTTL,
		maxEntries:  DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = gocache.New(c.ttl, c.ttl/6+time.Minute)
	return c
}

// Get resuelve la instancia para providerID, cargándola si hace falta.
// Retorna repository.ErrNotFound (envuelto) si la config no existe.
func (c *Cache[T]) Get(ctx context.Context, providerID string) (T, error) {
	if v, ok := c.entries.Get(providerID); ok {
		c.event("hit")
		return v.(entry[T]).instance, nil
	}
	c.event("miss")

	v, err, _ := c.sf.Do(providerID, func() (any, error) {
		// Otro caller pudo haber completado el load mientras esperábamos.
		if v, ok := c.entries.Get(providerID); ok {
			return v.(entry[T]).instance, nil
		}
		inst, err := c.load(ctx, providerID)
		if err != nil {
			return nil, err
		}
		c.store(providerID, inst)
		return inst, nil
	})
	if err != nil {
		c.event("load_error")
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache[T]) load(ctx context.Context, providerID string) (T, error) {
	var zero T
	cfg, err := c.configs.Get(ctx, providerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return zero, fmt.Errorf("provider %q: %w", providerID, repository.ErrNotFound)
		}
		return zero, fmt.Errorf("load provider %q config: %w", providerID, err)
	}
	inst, err := c.build(ctx, cfg.Clone())
	if err != nil {
		return zero, fmt.Errorf("build provider %q: %w", providerID, err)
	}
	return inst, nil
}

func (c *Cache[T]) store(providerID string, inst T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.SetDefault(providerID, entry[T]{instance: inst, loadedAt: time.Now()})
	for c.entries.ItemCount() > c.maxEntries {
		c.evictOldestLocked()
	}
}

// evictOldestLocked elimina la entrada con loadedAt más antiguo.
func (c *Cache[T]) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, it := range c.entries.Items() {
		e := it.Object.(entry[T])
		if !found || e.loadedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.loadedAt, true
		}
	}
	if found {
		c.entries.Delete(oldestKey)
		c.event("eviction")
	}
}

// Invalidate elimina la entrada inmediatamente (unregister, cambio de config).
func (c *Cache[T]) Invalidate(providerID string) {
	c.sf.Forget(providerID)
	c.entries.Delete(providerID)
}

// Len retorna la cantidad de entradas vigentes.
func (c *Cache[T]) Len() int { return c.entries.ItemCount() }

func (c *Cache[T]) event(name string) {
	if c.mx != nil {
		c.mx.ProviderCache.WithLabelValues(c.authorityID, name).Inc()
	}
}
