package ratelimit

import (
	"math"
	"sync"
	"testing"
	"time"
)

func testRules() map[string]Rule {
	return map[string]Rule{
		"vote": {MaxRequests: 5, Window: time.Minute},
		"play": {MaxRequests: 3, Window: time.Hour},
	}
}

func TestCheck_AllowsUpToMaxWithDecreasingRemaining(t *testing.T) {
	l := NewLimiter(testRules())

	for i := 0; i < 5; i++ {
		res := l.Check("identity-a", "vote")
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		wantRemaining := 5 - i - 1
		if res.Remaining != wantRemaining {
			t.Errorf("request %d remaining = %d, want %d", i+1, res.Remaining, wantRemaining)
		}
	}
}

func TestCheck_DeniesAfterMax(t *testing.T) {
	l := NewLimiter(testRules())

	start := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		l.Check("identity-a", "vote")
	}

	res := l.Check("identity-a", "vote")
	if res.Allowed {
		t.Fatal("6th request should be denied")
	}
	if res.Remaining != 0 {
		t.Errorf("denied remaining = %d, want 0", res.Remaining)
	}
	if res.ResetAt <= start {
		t.Errorf("resetAt = %d, want strictly in the future (> %d)", res.ResetAt, start)
	}
}

func TestCheck_RejectedAttemptsAreNotRecorded(t *testing.T) {
	l := NewLimiter(testRules())
	l.now = func() time.Time { return time.UnixMilli(1_000_000) }

	for i := 0; i < 5; i++ {
		l.Check("identity-a", "vote")
	}
	// Hammer the denied path; none of these should extend the window.
	for i := 0; i < 10; i++ {
		l.Check("identity-a", "vote")
	}

	// Advance past the window; the very next check must be admitted.
	l.now = func() time.Time { return time.UnixMilli(1_000_000 + 61_000) }
	if res := l.Check("identity-a", "vote"); !res.Allowed {
		t.Fatal("check after window expiry should be allowed")
	}
}

func TestCheck_SlidingWindowNotFixedBucket(t *testing.T) {
	l := NewLimiter(map[string]Rule{"vote": {MaxRequests: 2, Window: time.Minute}})

	base := int64(1_000_000)
	clock := base
	l.now = func() time.Time { return time.UnixMilli(clock) }

	l.Check("id", "vote") // t=0
	clock = base + 30_000
	l.Check("id", "vote") // t=30s

	// t=45s: first stamp still inside the trailing window, deny.
	clock = base + 45_000
	if res := l.Check("id", "vote"); res.Allowed {
		t.Fatal("should deny while both stamps are inside the window")
	}

	// t=61s: the t=0 stamp slid out; one slot free again.
	clock = base + 61_000
	res := l.Check("id", "vote")
	if !res.Allowed {
		t.Fatal("should allow once the oldest stamp slides out")
	}
	if res.Remaining != 0 {
		t.Errorf("remaining = %d, want 0 (window holds t=30s and t=61s)", res.Remaining)
	}
}

func TestCheck_DeniedResetAtIsOldestPlusWindow(t *testing.T) {
	l := NewLimiter(map[string]Rule{"vote": {MaxRequests: 1, Window: time.Minute}})
	clock := int64(1_000_000)
	l.now = func() time.Time { return time.UnixMilli(clock) }

	l.Check("id", "vote")
	clock += 10_000
	res := l.Check("id", "vote")
	if res.Allowed {
		t.Fatal("second check should be denied")
	}
	if want := int64(1_000_000 + 60_000); res.ResetAt != want {
		t.Errorf("resetAt = %d, want %d (oldest surviving + window)", res.ResetAt, want)
	}
}

func TestCheck_IndependentKeys(t *testing.T) {
	l := NewLimiter(testRules())

	for i := 0; i < 5; i++ {
		l.Check("identity-a", "vote")
	}

	// Exhausted identity-a on vote; identity-b and other actions unaffected.
	if !l.Check("identity-b", "vote").Allowed {
		t.Error("identity-b should have an independent vote quota")
	}
	if !l.Check("identity-a", "play").Allowed {
		t.Error("identity-a should have an independent play quota")
	}
	if l.Check("identity-a", "vote").Allowed {
		t.Error("identity-a vote quota should remain exhausted")
	}
}

func TestCheck_UnknownActionFailsOpen(t *testing.T) {
	l := NewLimiter(testRules())

	for i := 0; i < 1000; i++ {
		res := l.Check("identity-a", "brand-new-action")
		if !res.Allowed {
			t.Fatal("unknown action kinds must be unconditionally allowed")
		}
		if res.Remaining != math.MaxInt {
			t.Fatalf("unknown action remaining = %d, want math.MaxInt", res.Remaining)
		}
	}
}

func TestPeek_DoesNotConsumeQuota(t *testing.T) {
	l := NewLimiter(testRules())

	l.Check("identity-a", "vote")
	for i := 0; i < 20; i++ {
		res := l.Peek("identity-a", "vote")
		if !res.Allowed {
			t.Fatal("peek should report allowed")
		}
		if res.Remaining != 4 {
			t.Fatalf("peek remaining = %d, want 4 (one check recorded)", res.Remaining)
		}
	}

	// The peeks must not have consumed anything.
	res := l.Check("identity-a", "vote")
	if res.Remaining != 3 {
		t.Errorf("check after peeks remaining = %d, want 3", res.Remaining)
	}
}

func TestReset_ClearsSingleKey(t *testing.T) {
	l := NewLimiter(testRules())

	for i := 0; i < 5; i++ {
		l.Check("identity-a", "vote")
	}
	l.Check("identity-a", "play")

	l.Reset("identity-a", "vote")

	if res := l.Check("identity-a", "vote"); !res.Allowed || res.Remaining != 4 {
		t.Errorf("after reset: allowed=%v remaining=%d, want fresh window", res.Allowed, res.Remaining)
	}
	// Other key untouched.
	if res := l.Peek("identity-a", "play"); res.Remaining != 2 {
		t.Errorf("play remaining = %d, want 2", res.Remaining)
	}
}

func TestClear_DropsAllState(t *testing.T) {
	l := NewLimiter(testRules())
	for i := 0; i < 5; i++ {
		l.Check("identity-a", "vote")
	}
	l.Clear()
	if res := l.Check("identity-a", "vote"); res.Remaining != 4 {
		t.Errorf("after clear remaining = %d, want 4", res.Remaining)
	}
}

func TestCheck_ConcurrentCallersRespectLimit(t *testing.T) {
	l := NewLimiter(map[string]Rule{"vote": {MaxRequests: 50, Window: time.Minute}})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if l.Check("shared-identity", "vote").Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50 across all goroutines", allowed)
	}
}
