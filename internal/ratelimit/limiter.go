// Package ratelimit implements per-identity, per-action sliding-window
// admission control. State is process-local and in-memory; nothing survives
// a restart and nothing needs to.
package ratelimit

import (
	"hash/fnv"
	"math"
	"sync"
	"time"
)

// Rule defines the limit for a single action kind.
type Rule struct {
	MaxRequests int
	Window      time.Duration
}

// Result is the outcome of a Check or Peek.
type Result struct {
	Allowed   bool  `json:"allowed"`
	Remaining int   `json:"remaining"`
	ResetAt   int64 `json:"resetAtEpochMs"`
}

// DefaultRules mirror the endpoint quotas of the public engagement surface.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"vote":     {MaxRequests: 10, Window: time.Minute},
		"play":     {MaxRequests: 100, Window: time.Hour},
		"download": {MaxRequests: 50, Window: time.Hour},
		"view":     {MaxRequests: 200, Window: time.Hour},
	}
}

const shardCount = 32

// shard holds the timestamp lists for a slice of the key space. Per-shard
// locking keeps unrelated callers from serializing on one global mutex.
type shard struct {
	mu      sync.Mutex
	entries map[string][]int64 // key -> admission timestamps, ms, ascending
}

// Limiter is a true sliding-window rate limiter. An action kind absent from
// the rules is unconditionally allowed (fail-open for newly introduced
// kinds), reported with Remaining = math.MaxInt.
type Limiter struct {
	rules  map[string]Rule
	shards [shardCount]*shard
	now    func() time.Time // overridable for tests
}

// NewLimiter creates a limiter with the given rules. Pass DefaultRules()
// for the standard quotas.
func NewLimiter(rules map[string]Rule) *Limiter {
	l := &Limiter{rules: rules, now: time.Now}
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string][]int64)}
	}
	return l
}

// Check applies the sliding window for (identity, action) and, if admitted,
// records the attempt. Rejected attempts are not recorded.
func (l *Limiter) Check(identity, action string) Result {
	return l.check(identity, action, true)
}

// Peek reports the current window status without consuming quota. Stale
// timestamps are still garbage-collected as part of the touch.
func (l *Limiter) Peek(identity, action string) Result {
	return l.check(identity, action, false)
}

func (l *Limiter) check(identity, action string, record bool) Result {
	rule, ok := l.rules[action]
	if !ok {
		return Result{Allowed: true, Remaining: math.MaxInt}
	}

	key := action + ":" + identity
	s := l.shardFor(key)
	nowMs := l.now().UnixMilli()
	windowMs := rule.Window.Milliseconds()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop timestamps that fell out of the trailing window. Lazy GC: keys
	// are only cleaned when touched, never by a background timer.
	stamps := s.entries[key]
	cutoff := nowMs - windowMs
	i := 0
	for i < len(stamps) && stamps[i] <= cutoff {
		i++
	}
	stamps = stamps[i:]

	if len(stamps) >= rule.MaxRequests {
		s.entries[key] = stamps
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   stamps[0] + windowMs,
		}
	}

	if record {
		stamps = append(stamps, nowMs)
	}
	if len(stamps) == 0 {
		// Empty list: evict the key instead of keeping a dead entry.
		delete(s.entries, key)
	} else {
		s.entries[key] = stamps
	}

	remaining := rule.MaxRequests - len(stamps)
	resetAt := nowMs + windowMs
	if len(stamps) > 0 {
		resetAt = stamps[0] + windowMs
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: resetAt}
}

// Reset clears the window for one (identity, action) key. Test/admin use.
func (l *Limiter) Reset(identity, action string) {
	key := action + ":" + identity
	s := l.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Clear drops all recorded state. Test/admin use.
func (l *Limiter) Clear() {
	for _, s := range l.shards {
		s.mu.Lock()
		s.entries = make(map[string][]int64)
		s.mu.Unlock()
	}
}

// Rule returns the configured rule for an action kind, if any.
func (l *Limiter) Rule(action string) (Rule, bool) {
	r, ok := l.rules[action]
	return r, ok
}

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}
