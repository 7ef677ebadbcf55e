package ratelimit

import "context"

// Backend is the counter store contract shared by all rate-limit
// algorithms: given a request's path (or zone), the resolved user
// identity, and the Rule that matched, it decides whether the request is
// currently blocked and, if so, for how many more seconds.
//
// A return of 0 means the request is allowed. A positive return is the
// number of seconds the caller should wait before retrying. Backend
// implementations are responsible for incrementing their own counters as
// a side effect of RetryAfter — there is no separate "commit" step,
// matching the original backend's allow_request/increase_limit being
// fused into one call per window.
type Backend interface {
	RetryAfter(ctx context.Context, pathOrZone, user string, rule Rule) (int, error)
}
