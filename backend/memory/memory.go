// Package memory implements an in-process ratelimit.Backend backed by a
// mutex-protected map, for single-instance deployments and tests that
// don't want a Redis dependency.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alfreddev/ratelimit"
	"github.com/alfreddev/ratelimit/internal/clock"
)

type counter struct {
	remaining int
	deadline  time.Time
}

// Backend is a ratelimit.Backend that tracks counters and blocked users
// in process memory, with no external dependency.
//
// The zero value is not usable; construct with New.
type Backend struct {
	mu            sync.Mutex
	blockedUntil  map[string]time.Time
	counters      map[string]map[string]*counter
	clock         clock.Clock
	cleanupTimers map[string]*time.Timer
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{
		blockedUntil:  make(map[string]time.Time),
		counters:      make(map[string]map[string]*counter),
		clock:         clock.New(),
		cleanupTimers: make(map[string]*time.Timer),
	}
}

// newWithClock is used by tests to control time deterministically.
func newWithClock(c clock.Clock) *Backend {
	b := New()
	b.clock = c
	return b
}

var _ ratelimit.Backend = (*Backend)(nil)

// RetryAfter implements ratelimit.Backend.
func (b *Backend) RetryAfter(_ context.Context, pathOrZone, user string, rule ratelimit.Rule) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if blocked := b.isBlocking(user); blocked > 0 {
		return blocked, nil
	}

	now := b.clock.Now()
	rules := b.counters[pathOrZone]
	if rules == nil {
		rules = make(map[string]*counter)
		b.counters[pathOrZone] = rules
	}

	var retryAfter int
	for _, wk := range rule.Ruleset(pathOrZone, user) {
		existing := rules[wk.Key]

		switch {
		case existing == nil:
			rules[wk.Key] = &counter{remaining: wk.Limit - 1, deadline: now.Add(wk.Window)}
			b.scheduleCleanup(pathOrZone, wk.Key, wk.Window)
		case existing.remaining < 1 && existing.deadline.After(now):
			retryAfter = int(existing.deadline.Sub(now).Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
		case existing.remaining < 1:
			rules[wk.Key] = &counter{remaining: wk.Limit - 1, deadline: now.Add(wk.Window)}
			b.scheduleCleanup(pathOrZone, wk.Key, wk.Window)
		case existing.deadline.After(now):
			existing.remaining--
		default:
			rules[wk.Key] = &counter{remaining: wk.Limit - 1, deadline: now.Add(wk.Window)}
			b.scheduleCleanup(pathOrZone, wk.Key, wk.Window)
		}

		if retryAfter > 0 {
			break
		}
	}

	if retryAfter > 0 {
		if block := rule.BlockDuration(); block > 0 {
			retryAfter = b.setBlockedLocked(user, block, now)
		}
	}

	return retryAfter, nil
}

// isBlocking must be called with b.mu held.
func (b *Backend) isBlocking(user string) int {
	until, ok := b.blockedUntil[user]
	if !ok {
		return 0
	}
	remaining := int(until.Sub(b.clock.Now()).Round(time.Second).Seconds())
	if remaining <= 0 {
		delete(b.blockedUntil, user)
		return 0
	}
	return remaining
}

// setBlockedLocked must be called with b.mu held.
func (b *Backend) setBlockedLocked(user string, block time.Duration, now time.Time) int {
	until := now.Add(block)
	b.blockedUntil[user] = until
	seconds := int(block.Round(time.Second).Seconds())
	time.AfterFunc(block, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cur, ok := b.blockedUntil[user]; ok && !cur.After(until) {
			delete(b.blockedUntil, user)
		}
	})
	return seconds
}

// scheduleCleanup arms a timer to drop a window's counter once it
// expires, so exhausted keys don't accumulate forever under low
// traffic. A request arriving after expiry but before the timer fires
// is handled correctly regardless, by the deadline comparisons in
// RetryAfter — this is cooperative cleanup, not a correctness
// requirement. Must be called with b.mu held.
func (b *Backend) scheduleCleanup(pathOrZone, key string, window time.Duration) {
	timerKey := pathOrZone + "\x00" + key
	if existing, ok := b.cleanupTimers[timerKey]; ok {
		existing.Stop()
	}
	b.cleanupTimers[timerKey] = time.AfterFunc(window, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if rules, ok := b.counters[pathOrZone]; ok {
			if c, ok := rules[key]; ok && !c.deadline.After(b.clock.Now()) {
				delete(rules, key)
			}
		}
		delete(b.cleanupTimers, timerKey)
	})
}
