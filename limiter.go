package blogit

import (
	"sync"
	"time"
)

// LoginLimiter counts failed login attempts per client over a sliding window.
type LoginLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewLoginLimiter creates a LoginLimiter that blocks a client after max
// failures within window. Call Stop to release the sweeper goroutine. A
// window of zero or less keeps no history and never blocks.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
		stop:     make(chan struct{}),
	}
	if window > 0 {
		go l.sweep()
	}
	return l
}

func (l *LoginLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-l.window)
		l.mu.Lock()
		for key := range l.failures {
			l.prune(key, cutoff)
		}
		l.mu.Unlock()
	}
}

// prune drops failures older than cutoff; l.mu must be held.
func (l *LoginLimiter) prune(key string, cutoff time.Time) int {
	hits := l.failures[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
	} else {
		l.failures[key] = kept
	}
	return len(kept)
}

// Check reports whether key may attempt another login. It does not record
// anything; call Fail after a rejected attempt.
func (l *LoginLimiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(key, time.Now().Add(-l.window)) < l.max
}

// Fail records a failed attempt for key.
func (l *LoginLimiter) Fail(key string) {
	l.mu.Lock()
	l.failures[key] = append(l.failures[key], time.Now())
	l.mu.Unlock()
}

// Reset forgets the failures of key after a successful login.
func (l *LoginLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.failures, key)
	l.mu.Unlock()
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *LoginLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
