// Package ratelimit implements a fixed-window request counter keyed by
// (client identifier, policy). Windows reset at a boundary rather than
// sliding, which permits up to ~2x burst around the boundary; accepted
// trade-off for a process-local limiter.
package ratelimit

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Policy is one named (window, max) pair. Independent policies count
// independently even for the same client key.
type Policy struct {
	Name   string
	Window time.Duration
	Max    int
}

// RateExceededError tells the caller when the current window resets.
type RateExceededError struct {
	Policy  string
	ResetAt time.Time
}

func (e *RateExceededError) Error() string {
	return fmt.Sprintf("rate limit %q exceeded, resets at %s", e.Policy, e.ResetAt.Format(time.RFC3339))
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a concurrency-safe in-memory window store. It carries no
// durability guarantee and is expected to be process-local.
type Limiter struct {
	mu   sync.Mutex
	wins map[string]*window
	now  func() time.Time
}

func New() *Limiter {
	return &Limiter{wins: make(map[string]*window), now: time.Now}
}

// Allow counts one request for clientKey under p. Returns nil while the
// window has room, *RateExceededError once count would pass p.Max. The
// counter is not incremented past the limit.
func (l *Limiter) Allow(clientKey string, p Policy) error {
	key := p.Name + "|" + clientKey
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wins[key]
	if !ok || !now.Before(w.resetAt) {
		l.wins[key] = &window{count: 1, resetAt: now.Add(p.Window)}
		// Opportunistic pruning on a small fraction of calls, purely to
		// bound memory. Correctness never depends on it.
		if rand.Intn(64) == 0 {
			l.pruneLocked(now)
		}
		return nil
	}
	if w.count >= p.Max {
		return &RateExceededError{Policy: p.Name, ResetAt: w.resetAt}
	}
	w.count++
	return nil
}

func (l *Limiter) pruneLocked(now time.Time) {
	for k, w := range l.wins {
		if !now.Before(w.resetAt) {
			delete(l.wins, k)
		}
	}
}

// Middleware rejects over-limit requests with 429 and a Retry-After hint.
// keyFn extracts the client identifier from the request (typically the
// remote IP resolved by chi's RealIP middleware).
func Middleware(l *Limiter, p Policy, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := l.Allow(keyFn(r), p); err != nil {
				if re, ok := err.(*RateExceededError); ok {
					secs := int(time.Until(re.ResetAt).Seconds())
					if secs < 1 {
						secs = 1
					}
					w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
				}
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
