package webauthn

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

// ChallengeStore guarda el estado server-side de una ceremonia en curso,
// keyed por un token opaco. Las entradas son de un solo uso (Consume las
// elimina atómicamente) y expiran por TTL aunque el cliente abandone la
// ceremonia a mitad de camino.
type ChallengeStore interface {
	// Save persiste el estado con el TTL dado.
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Consume retorna y elimina el estado en una sola operación: una key no
	// puede consumirse dos veces, ni siquiera concurrentemente. Retorna
	// repository.ErrNotFound si no existe o ya expiró.
	Consume(ctx context.Context, key string) ([]byte, error)
}

// MemoryChallenges es el ChallengeStore in-process (go-cache con TTL).
type MemoryChallenges struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewMemoryChallenges crea un store en memoria con limpieza periódica.
func NewMemoryChallenges() *MemoryChallenges {
	return &MemoryChallenges{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *MemoryChallenges) Save(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.c.Set(key, data, ttl)
	return nil
}

func (m *MemoryChallenges) Consume(_ context.Context, key string) ([]byte, error) {
	// go-cache no tiene get+delete atómico; el mutex lo garantiza.
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.c.Delete(key)
	return v.([]byte), nil
}

// RedisChallenges es el ChallengeStore distribuido.
type RedisChallenges struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisChallenges crea un store sobre redis. El prefijo separa los keys
// del resto del keyspace.
func NewRedisChallenges(rdb *redis.Client, prefix string) *RedisChallenges {
	if prefix == "" {
		prefix = "aac:challenge:"
	}
	return &RedisChallenges{rdb: rdb, prefix: prefix}
}

func (r *RedisChallenges) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+key, data, ttl).Err()
}

func (r *RedisChallenges) Consume(ctx context.Context, key string) ([]byte, error) {
	// GETDEL: remove-and-return en una sola operación.
	v, err := r.rdb.GetDel(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
