package repository

import (
	"context"
	"time"
)

// ProviderConfig es la configuración tenant-scoped e inmutable de un identity
// provider registrado. Se crea al registrar el provider y sólo cambia via
// re-registración explícita (delete + recreate).
type ProviderConfig struct {
	AuthorityID string         // tipo de authority: "password", "webauthn", ...
	ProviderID  string         // único global, a través de todas las authorities
	Realm       string         // agrupa configs para queries por tenant
	Name        string         // nombre visible (ej: relying party display name)
	Config      map[string]any // settings opcionales tipados, con defaults documentados
}

// String retorna el setting como string, o def si no existe.
func (c *ProviderConfig) String(key, def string) string {
	if v, ok := c.Config[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Int retorna el setting como int, o def si no existe.
func (c *ProviderConfig) Int(key string, def int) int {
	switch v := c.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool retorna el setting como bool, o def si no existe.
func (c *ProviderConfig) Bool(key string, def bool) bool {
	if v, ok := c.Config[key].(bool); ok {
		return v
	}
	return def
}

// Duration retorna el setting como duration. Acepta segundos (numérico) o un
// string parseable por time.ParseDuration ("300s", "5m").
func (c *ProviderConfig) Duration(key string, def time.Duration) time.Duration {
	switch v := c.Config[key].(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v) * time.Second
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Clone devuelve una copia profunda (el Config map no se comparte).
func (c *ProviderConfig) Clone() *ProviderConfig {
	out := *c
	out.Config = make(map[string]any, len(c.Config))
	for k, v := range c.Config {
		out.Config[k] = v
	}
	return &out
}

// ProviderConfigRepository define operaciones sobre configuraciones de providers.
type ProviderConfigRepository interface {
	// Get busca una config por provider id. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, providerID string) (*ProviderConfig, error)

	// ListByRealm lista todas las configs de un realm.
	ListByRealm(ctx context.Context, realm string) ([]ProviderConfig, error)

	// Save crea o reemplaza una config (upsert por provider id).
	Save(ctx context.Context, cfg *ProviderConfig) error

	// Delete elimina una config. Retorna ErrNotFound si no existe.
	Delete(ctx context.Context, providerID string) error
}
