package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config tunes KeyedLimiter.
type Config struct {
	Rate       float64       // requests per second per key
	Burst      int           // bucket capacity
	TTL        time.Duration // idle keys are forgotten after this; 0 keeps them forever
	MaxBuckets int           // new keys are refused once this many are tracked; 0 is unbounded
}

// KeyedLimiter keeps one rate.Limiter per caller key.
type KeyedLimiter struct {
	cfg   Config
	clock Clock

	mu        sync.Mutex
	entries   map[string]*entry
	lastSweep time.Time
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter builds a limiter. Non-positive Rate and Burst fall back to 1.
func NewKeyedLimiter(clock Clock, cfg Config) *KeyedLimiter {
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxBuckets < 0 {
		cfg.MaxBuckets = 0
	}
	return &KeyedLimiter{
		cfg:     cfg,
		clock:   clock,
		entries: make(map[string]*entry),
	}
}

// PerWindow allows limit requests per window for every key.
func PerWindow(clock Clock, limit int, window, ttl time.Duration) *KeyedLimiter {
	if window <= 0 {
		window = time.Second
	}
	if limit <= 0 {
		limit = 1
	}
	return NewKeyedLimiter(clock, Config{
		Rate:  float64(limit) / window.Seconds(),
		Burst: limit,
		TTL:   ttl,
	})
}

// Allow consumes one token for key.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	l.sweep(now)
	e, ok := l.entries[key]
	if !ok {
		if l.cfg.MaxBuckets > 0 && len(l.entries) >= l.cfg.MaxBuckets {
			l.mu.Unlock()
			return false
		}
		e = &entry{lim: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

// Len reports how many keys are tracked.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep drops idle keys at most once per max(TTL/2, 1m). Caller holds mu.
func (l *KeyedLimiter) sweep(now time.Time) {
	if l.cfg.TTL <= 0 {
		return
	}
	every := time.Minute
	if half := l.cfg.TTL / 2; half > every {
		every = half
	}
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < every {
		return
	}
	l.lastSweep = now
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.cfg.TTL {
			delete(l.entries, k)
		}
	}
}
