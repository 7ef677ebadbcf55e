package ratelimit

import (
	"fmt"
	"time"
)

// Bucket windows, matching the WINDOW_SIZE table of the original
// implementation: second, minute, hour, day, and a 31-day month.
const (
	Second = time.Second
	Minute = 60 * time.Second
	Hour   = 60 * Minute
	Day    = 24 * Hour
	Month  = 31 * Day
)

// bucketNames fixes the iteration order for FixedRule's windows so that
// key generation (and the "first exhausted window" tie-break in the
// fixed-window backend) is deterministic.
var bucketNames = [...]string{"second", "minute", "hour", "day", "month"}

// WindowKey is one entry of a rule's expanded ruleset: the store key that
// accumulates hits, the limit for that key, and its window duration.
type WindowKey struct {
	Key    string
	Limit  int
	Window time.Duration
}

// Rule describes a limit policy: a group label, an optional block
// duration, and a method to expand itself into concrete counter keys for
// a given request path and user. FixedRule and CustomRule both implement
// it; there is no shared base type because the two variants store
// block_time at different positions in the source they were ported from,
// and forcing them into one struct would hide that distinction behind
// zero values instead of real optionality.
type Rule interface {
	// GroupName returns the group label this rule applies to.
	GroupName() string

	// BlockDuration returns the penalty window triggered on exhaustion,
	// or 0 if the rule has no block_time configured.
	BlockDuration() time.Duration

	// ZoneOverride returns a counter-key namespace shared across several
	// matching path patterns, or "" to key counters by the request path
	// itself.
	ZoneOverride() string

	// Ruleset expands the rule into its constituent (key, limit, window)
	// tuples for the given counter path (path or zone) and user. Order is
	// significant: callers use it as the tie-break for "first exhausted
	// window".
	Ruleset(pathOrZone, user string) []WindowKey
}

// FixedRule is a policy with independent limits for each of the standard
// buckets (second/minute/hour/day/month). Any bucket left at 0 is
// unconstrained — 0 is a safe "unset" sentinel because valid limits are
// always >= 1.
type FixedRule struct {
	Group string

	Second int
	Minute int
	Hour   int
	Day    int
	Month  int

	// BlockTime triggers a penalty window on exhaustion. 0 disables it.
	BlockTime time.Duration

	// Zone overrides the path used in the counter key, letting several
	// patterns share one budget.
	Zone string
}

var _ Rule = FixedRule{}

func (r FixedRule) GroupName() string { return r.Group }

func (r FixedRule) BlockDuration() time.Duration { return r.BlockTime }

func (r FixedRule) ZoneOverride() string { return r.Zone }

func (r FixedRule) Ruleset(pathOrZone, user string) []WindowKey {
	limits := [...]int{r.Second, r.Minute, r.Hour, r.Day, r.Month}
	windows := [...]time.Duration{Second, Minute, Hour, Day, Month}

	out := make([]WindowKey, 0, len(bucketNames))
	for i, limit := range limits {
		if limit <= 0 {
			continue
		}
		out = append(out, WindowKey{
			Key:    fmt.Sprintf("%s:%s:%s", pathOrZone, user, bucketNames[i]),
			Limit:  limit,
			Window: windows[i],
		})
	}
	return out
}

// CustomPair is one (limit, granularity) window of a CustomRule.
type CustomPair struct {
	Limit       int
	Granularity time.Duration
}

// CustomRule is a policy with an arbitrary, ordered list of (limit,
// granularity) windows instead of the five fixed buckets.
type CustomRule struct {
	Group string
	Pairs []CustomPair

	// BlockTime mirrors FixedRule.BlockTime. It is stored at the same
	// position here as in FixedRule only by convention — the two types
	// are independent, not a shared base struct.
	BlockTime time.Duration

	Zone string
}

var _ Rule = CustomRule{}

func (r CustomRule) GroupName() string { return r.Group }

func (r CustomRule) BlockDuration() time.Duration { return r.BlockTime }

func (r CustomRule) ZoneOverride() string { return r.Zone }

func (r CustomRule) Ruleset(pathOrZone, user string) []WindowKey {
	out := make([]WindowKey, 0, len(r.Pairs))
	for _, p := range r.Pairs {
		if p.Limit <= 0 || p.Granularity <= 0 {
			continue
		}
		out = append(out, WindowKey{
			Key:    fmt.Sprintf("%s:%s:%d/%d", pathOrZone, user, p.Limit, int(p.Granularity.Seconds())),
			Limit:  p.Limit,
			Window: p.Granularity,
		})
	}
	return out
}

// BlockingKey returns the store key used to record a user's penalty
// state, stable across all backends: "blocking:{user}".
func BlockingKey(user string) string {
	return "blocking:" + user
}
