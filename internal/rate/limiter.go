package rate

import (
	"context"
	"sync"
	"time"
)

// Config defines client-side pacing for one Lacework account.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Limiter is a token bucket. The zero rate disables pacing.
type Limiter struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
	rate   float64
	burst  float64
	now    func() time.Time
}

// New creates a limiter with a full bucket.
func New(cfg Config) *Limiter {
	burst := float64(cfg.Burst)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		tokens: burst,
		last:   time.Now(),
		rate:   cfg.RequestsPerSecond,
		burst:  burst,
		now:    time.Now,
	}
}

// reserve takes a token if one is available, otherwise reports how long until one is.
func (l *Limiter) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rate <= 0 {
		return 0, true
	}

	now := l.now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	if l.tokens >= 1 {
		l.tokens--
		return 0, true
	}
	missing := 1 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second)), false
}

// Allow reports whether a request may be sent right now, consuming a token if so.
func (l *Limiter) Allow() bool {
	_, ok := l.reserve()
	return ok
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, ok := l.reserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Manager hands out one limiter per account so that several sessions
// against the same account share a budget.
type Manager struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	defaults Config
}

// NewManager creates a Manager whose limiters use defaults.
func NewManager(defaults Config) *Manager {
	return &Manager{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
	}
}

// For returns the limiter for key, creating it on first use.
func (m *Manager) For(key string) *Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	lim, ok := m.limiters[key]
	if !ok {
		lim = New(m.defaults)
		m.limiters[key] = lim
	}
	return lim
}

// Wait paces a request for key.
func (m *Manager) Wait(ctx context.Context, key string) error {
	return m.For(key).Wait(ctx)
}
