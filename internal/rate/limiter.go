// Package rate implementa rate limiting de intentos de login.
package rate

import (
	"context"
	"sync"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es el veredicto de un intento.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter limita intentos por key (ej: realm+username).
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE).
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

// NewRedisLimiter crea un limiter con la ventana y el máximo dados.
func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.Prefix + key
	n, err := l.Client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	if n == 1 {
		if err := l.Client.Expire(ctx, k, l.Window).Err(); err != nil {
			return Result{}, err
		}
	}
	if n > l.Max {
		ttl, _ := l.Client.TTL(ctx, k).Result()
		return Result{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: l.Max - n}, nil
}

// MemoryLimiter: fixed window in-process, para dev y tests.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count int64
	reset time.Time
}

// NewMemoryLimiter crea un limiter in-process.
func NewMemoryLimiter(max int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{Max: int64(max), Window: win, windows: make(map[string]*window)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.reset) {
		w = &window{reset: now.Add(l.Window)}
		l.windows[key] = w
	}
	w.count++
	if w.count > l.Max {
		return Result{Allowed: false, RetryAfter: time.Until(w.reset)}, nil
	}
	return Result{Allowed: true, Remaining: l.Max - w.count}, nil
}
