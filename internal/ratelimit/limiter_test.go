package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func testLimiter(start time.Time) (*Limiter, *time.Time) {
	now := start
	l := New()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestSixthCallRejected(t *testing.T) {
	p := Policy{Name: "checkout", Window: 60 * time.Second, Max: 5}
	l, _ := testLimiter(time.Unix(1000, 0))

	for i := 0; i < 5; i++ {
		if err := l.Allow("10.0.0.1", p); err != nil {
			t.Fatalf("call %d: unexpected reject: %v", i+1, err)
		}
	}
	err := l.Allow("10.0.0.1", p)
	var re *RateExceededError
	if !errors.As(err, &re) {
		t.Fatalf("6th call: want RateExceededError, got %v", err)
	}
	if want := time.Unix(1060, 0); !re.ResetAt.Equal(want) {
		t.Fatalf("resetAt = %v, want %v", re.ResetAt, want)
	}
}

func TestWindowBoundaryResets(t *testing.T) {
	p := Policy{Name: "auth", Window: 60 * time.Second, Max: 2}
	l, now := testLimiter(time.Unix(1000, 0))

	for i := 0; i < 2; i++ {
		if err := l.Allow("c1", p); err != nil {
			t.Fatalf("unexpected reject: %v", err)
		}
	}
	if err := l.Allow("c1", p); err == nil {
		t.Fatal("expected reject inside window")
	}

	*now = now.Add(61 * time.Second)
	if err := l.Allow("c1", p); err != nil {
		t.Fatalf("call after window elapsed should reset to 1: %v", err)
	}
	if err := l.Allow("c1", p); err != nil {
		t.Fatalf("second call of fresh window rejected: %v", err)
	}
}

func TestPoliciesCountIndependently(t *testing.T) {
	l, _ := testLimiter(time.Unix(1000, 0))
	auth := Policy{Name: "auth", Window: time.Minute, Max: 1}
	browse := Policy{Name: "browse", Window: time.Minute, Max: 100}

	if err := l.Allow("c1", auth); err != nil {
		t.Fatalf("auth: %v", err)
	}
	if err := l.Allow("c1", auth); err == nil {
		t.Fatal("auth should be exhausted")
	}
	// Same client under a different policy is unaffected.
	if err := l.Allow("c1", browse); err != nil {
		t.Fatalf("browse: %v", err)
	}
}

func TestCounterNotIncrementedPastLimit(t *testing.T) {
	p := Policy{Name: "auth", Window: time.Minute, Max: 1}
	l, _ := testLimiter(time.Unix(1000, 0))

	_ = l.Allow("c1", p)
	for i := 0; i < 10; i++ {
		_ = l.Allow("c1", p)
	}
	l.mu.Lock()
	count := l.wins["auth|c1"].count
	l.mu.Unlock()
	if count != 1 {
		t.Fatalf("count = %d, want 1 (rejected calls must not increment)", count)
	}
}

func TestConcurrentAllow(t *testing.T) {
	p := Policy{Name: "checkout", Window: time.Minute, Max: 50}
	l := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Allow("burst", p); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if granted != 50 {
		t.Fatalf("granted = %d, want exactly 50", granted)
	}
}
