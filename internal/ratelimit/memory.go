package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoryKeys bounds how many keys the in-memory limiter tracks.
const DefaultMemoryKeys = 10000

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps fixed windows in a size-bounded LRU whose entries
// expire with their window. Suitable for a single gateway instance.
type MemoryLimiter struct {
	cfg     Config
	mu      sync.Mutex
	windows *expirable.LRU[string, *window]
	now     func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter tracking up to size keys.
func NewMemoryLimiter(cfg Config, size int) *MemoryLimiter {
	if size <= 0 {
		size = DefaultMemoryKeys
	}
	return &MemoryLimiter{
		cfg:     cfg,
		windows: expirable.NewLRU[string, *window](size, nil, cfg.Window),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows.Get(key)
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.cfg.Window)}
		l.windows.Add(key, w)
	}
	w.count++
	return w.count <= l.cfg.MaxAttempts, nil
}
